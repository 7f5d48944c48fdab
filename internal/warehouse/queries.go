package warehouse

import "fmt"

// queries holds the SQL for the three warehouse reads, with the
// schema and quotes-table identifiers already interpolated. Both come
// from configuration and are quoted there; every filter value binds as
// a named parameter.
type queries struct {
	dimensions  string
	facts       string
	predictions string
}

// Distinct filterable values, joined to customers so only states that
// actually occur on quotes are offered.
const dimensionsSQL = `
SELECT DISTINCT c.estado, o.filial
FROM %[1]s.%[2]s o
JOIN %[1]s.anon_clientes c USING (cpf_cnpj_cliente)
`

// The fact table: one row per quote line, left-joined to its order,
// invoice and customer. Order and invoice values are zero-filled when
// there is no downstream match.
const factsSQL = `
SELECT
    o.nro_orcamento, o.dt_evento, o.filial, o.cod_produto, o.produto,
    o.val_bruto, o.custo, o.ano, o.mes, p.nro_pedido, n.nro_nota,
    COALESCE(p.val_bruto, 0) AS val_pedido,
    COALESCE(n.val_bruto, 0) AS val_nf,
    c.cpf_cnpj_cliente, c.nome_cliente, c.cidade, c.estado
FROM %[1]s.%[2]s o
LEFT JOIN %[1]s.anon_pedidos p
    ON p.nro_orcamento = o.nro_orcamento
    AND p.cod_produto = o.cod_produto
    AND p.filial = o.filial
    AND p.cpf_cnpj_cliente = o.cpf_cnpj_cliente
LEFT JOIN %[1]s.notas_fiscais_anon n
    ON n.nro_pedido = p.nro_pedido
    AND n.cod_produto = p.cod_produto
    AND n.filial = p.filial
LEFT JOIN %[1]s.anon_clientes c
    ON c.cpf_cnpj_cliente = o.cpf_cnpj_cliente
WHERE o.ano BETWEEN @ano_ini AND @ano_fim
  AND o.mes = ANY(@meses)
  AND c.estado = ANY(@estados)
  AND o.filial = ANY(@filiais)
`

// The precomputed conversion-probability dataset, filtered the same
// way as the fact table but fully independent of it.
const predictionsSQL = `
SELECT cpf_cnpj_cliente, nome_cliente, val_bruto, custo, probabilidade,
       ano, mes, estado, filial
FROM %[1]s.df_resultado_exportado
WHERE ano BETWEEN @ano_ini AND @ano_fim
  AND mes = ANY(@meses)
  AND estado = ANY(@estados)
  AND filial = ANY(@filiais)
`

func buildQueries(schema, quoteTable string) queries {
	return queries{
		dimensions:  fmt.Sprintf(dimensionsSQL, schema, quoteTable),
		facts:       fmt.Sprintf(factsSQL, schema, quoteTable),
		predictions: fmt.Sprintf(predictionsSQL, schema),
	}
}
