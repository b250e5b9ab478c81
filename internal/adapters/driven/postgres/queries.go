package postgres

import (
	"database/sql"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// The defining queries for a terminal's sale and cancellation rows.
// Result order (date ascending, order number descending) becomes the
// internal item order of the aggregated orders, so it must not change.
// Every column is read as text; absent values stay NULL end to end.

const lineColumns = `
	numpedecf::text, codfilial::text, numcaixa::text,
	to_char(data, 'YYYY-MM-DD') AS data,
	numcupom::text, numserieecf, numitem::text, codprod::text, descricao,
	qt::text, pvenda::text, ptabela::text, perdesc::text, punit::text,
	codauxiliar, unidade, sittribut, cfop, codicmtab, codcob, codplpag,
	codfunccx::text, codusur::text, codcli::text,
	to_char(dtcadastro, 'YYYY-MM-DD HH24:MI:SS') AS dtcadastro,
	to_char(dtexportacao, 'YYYY-MM-DD HH24:MI:SS') AS dtexportacao`

const saleLinesQuery = `
	SELECT ` + lineColumns + `
	FROM itens_venda
	WHERE data = $1::date AND codfilial = $2 AND numcaixa = $3
	ORDER BY data ASC, numpedecf DESC`

const cancellationLinesQuery = `
	SELECT ` + lineColumns + `
	FROM itens_cancelados
	WHERE data = $1::date AND codfilial = $2 AND numcaixa = $3
	ORDER BY data ASC, numpedecf DESC`

const countLinesQuery = `
	SELECT COUNT(*)
	FROM itens_venda
	WHERE data = $1::date AND codfilial = $2 AND numcaixa = $3`

// scanLine reads one row into a SaleLine, normalizing every absent
// column to nil.
func scanLine(rows *sql.Rows) (domain.SaleLine, error) {
	cols := make([]sql.NullString, 26)
	dest := make([]any, len(cols))
	for i := range cols {
		dest[i] = &cols[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return domain.SaleLine{}, err
	}

	p := func(i int) *string { return StringPtr(cols[i]) }

	return domain.SaleLine{
		NumPedECF:    p(0),
		CodFilial:    p(1),
		NumCaixa:     p(2),
		Data:         p(3),
		NumCupom:     p(4),
		NumSerieECF:  p(5),
		NumItem:      p(6),
		CodProd:      p(7),
		Descricao:    p(8),
		Qt:           p(9),
		PVenda:       p(10),
		PTabela:      p(11),
		PerDesc:      p(12),
		PUnit:        p(13),
		CodAuxiliar:  p(14),
		Unidade:      p(15),
		SitTribut:    p(16),
		CFOP:         p(17),
		CodICMTab:    p(18),
		CodCob:       p(19),
		CodPlPag:     p(20),
		CodFunccx:    p(21),
		CodUsur:      p(22),
		CodCli:       p(23),
		DtCadastro:   p(24),
		DtExportacao: p(25),
	}, nil
}
