package http

import (
	"net/url"
	"strconv"
	"strings"

	"vendas/internal/core"
)

// parseFilter extracts the raw dimension selection from query
// parameters. `estados`, `filiais` and `meses` repeat per value and may
// also be comma-separated; `ano_ini` and `ano_fim` are single integers.
// Invalid values are ignored here; Normalize applies the bounds.
func parseFilter(query url.Values) core.Filter {
	f := core.Filter{
		States:   parseList(query["estados"]),
		Branches: parseList(query["filiais"]),
	}

	if v := strings.TrimSpace(query.Get("ano_ini")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			f.YearFrom = y
		}
	}
	if v := strings.TrimSpace(query.Get("ano_fim")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			f.YearTo = y
		}
	}

	for _, raw := range parseList(query["meses"]) {
		if m, err := strconv.Atoi(raw); err == nil {
			f.Months = append(f.Months, m)
		}
	}

	return f
}

func parseList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
