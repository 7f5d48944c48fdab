package http

import (
	"net/url"
	"reflect"
	"testing"

	"vendas/internal/core"
)

func TestParseFilter(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  core.Filter
	}{
		{
			name:  "empty query",
			query: "",
			want:  core.Filter{},
		},
		{
			name:  "repeated params",
			query: "estados=SP&estados=MG&filiais=01&meses=1&meses=6",
			want: core.Filter{
				States:   []string{"SP", "MG"},
				Branches: []string{"01"},
				Months:   []int{1, 6},
			},
		},
		{
			name:  "comma separated lists",
			query: "estados=SP,MG&meses=1,2,3",
			want: core.Filter{
				States: []string{"SP", "MG"},
				Months: []int{1, 2, 3},
			},
		},
		{
			name:  "year range",
			query: "ano_ini=2022&ano_fim=2024",
			want:  core.Filter{YearFrom: 2022, YearTo: 2024},
		},
		{
			name:  "garbage values ignored",
			query: "ano_ini=abc&meses=x&estados=%20",
			want:  core.Filter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatal(err)
			}
			got := parseFilter(values)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("parseFilter = %+v, want %+v", got, tt.want)
			}
		})
	}
}
