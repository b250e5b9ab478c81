package domain

import (
	"strconv"
	"strings"
)

// SaleLine is an immutable snapshot of one sale-item row read from a
// terminal database. Every field is nullable: absent source values are
// kept as nil and serialized as explicit null on the wire, mirroring the
// source schema column for column.
type SaleLine struct {
	NumPedECF    *string `json:"NUMPEDECF"`
	CodFilial    *string `json:"CODFILIAL"`
	NumCaixa     *string `json:"NUMCAIXA"`
	Data         *string `json:"DATA"`
	NumCupom     *string `json:"NUMCUPOM"`
	NumSerieECF  *string `json:"NUMSERIEECF"`
	NumItem      *string `json:"NUMITEM"`
	CodProd      *string `json:"CODPROD"`
	Descricao    *string `json:"DESCRICAO"`
	Qt           *string `json:"QT"`
	PVenda       *string `json:"PVENDA"`
	PTabela      *string `json:"PTABELA"`
	PerDesc      *string `json:"PERDESC"`
	PUnit        *string `json:"PUNIT"`
	CodAuxiliar  *string `json:"CODAUXILIAR"`
	Unidade      *string `json:"UNIDADE"`
	SitTribut    *string `json:"SITTRIBUT"`
	CFOP         *string `json:"CFOP"`
	CodICMTab    *string `json:"CODICMTAB"`
	CodCob       *string `json:"CODCOB"`
	CodPlPag     *string `json:"CODPLPAG"`
	CodFunccx    *string `json:"CODFUNCCX"`
	CodUsur      *string `json:"CODUSUR"`
	CodCli       *string `json:"CODCLI"`
	DtCadastro   *string `json:"DTCADASTRO"`
	DtExportacao *string `json:"DTEXPORTACAO"`
}

// CancellationLine is a cancelled sale-item row. It carries the same
// columns as SaleLine; the two are kept as distinct types because they
// come from different queries and are folded into different order lists.
type CancellationLine SaleLine

// Order is the aggregation unit for one customer transaction, keyed by
// order number (NUMPEDECF). Line order is the order the rows were
// returned by the database; no additional sorting is applied.
type Order struct {
	Numero     string
	Filial     string
	Caixa      string
	Data       string
	Itens      []SaleLine
	Cancelados []CancellationLine
}

// OrderPayload is the wire shape accepted by the cloud batch endpoint.
// Derived fields (totals, codcob, registration date, seller) are computed
// at serialization time, never stored on the Order.
type OrderPayload struct {
	Pedido              string             `json:"pedido"`
	Filial              *string            `json:"filial"`
	Caixa               *string            `json:"caixa"`
	Data                *string            `json:"data"`
	Funccx              *string            `json:"funccx"`
	Itens               []SaleLine         `json:"itens"`
	Cancelados          []CancellationLine `json:"cancelados"`
	CodCob              *string            `json:"codcob"`
	TotalItens          float64            `json:"total_itens"`
	TotalCancelados     float64            `json:"total_cancelados"`
	DataRegistroProduto *string            `json:"data_registro_produto"`
	Vendedor            *string            `json:"vendedor"`
}

// ParsePrice converts a nullable price column into a float64 currency
// value. A nil or non-numeric price contributes zero rather than failing
// the batch.
func ParsePrice(s *string) float64 {
	if s == nil {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(*s), 64)
	if err != nil {
		return 0
	}
	return v
}

// Nullable normalizes a string into an explicit null marker when empty.
func Nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Payload serializes the order into the batch wire shape, computing the
// derived fields. Itens and Cancelados are never serialized as null;
// an order with no cancellations carries an empty array.
func (o *Order) Payload() OrderPayload {
	p := OrderPayload{
		Pedido:     o.Numero,
		Filial:     Nullable(o.Filial),
		Caixa:      Nullable(o.Caixa),
		Data:       Nullable(o.Data),
		Itens:      o.Itens,
		Cancelados: o.Cancelados,
	}
	if p.Itens == nil {
		p.Itens = []SaleLine{}
	}
	if p.Cancelados == nil {
		p.Cancelados = []CancellationLine{}
	}

	for _, it := range o.Itens {
		p.TotalItens += ParsePrice(it.PVenda)
	}
	for _, c := range o.Cancelados {
		p.TotalCancelados += ParsePrice(c.PVenda)
	}

	// codcob comes from the first item; registration date, cashier and
	// seller fall back to the first cancellation when no item carries them.
	if len(o.Itens) > 0 {
		first := o.Itens[0]
		p.CodCob = first.CodCob
		p.DataRegistroProduto = first.DtCadastro
		p.Vendedor = first.CodUsur
		p.Funccx = first.CodFunccx
	}
	if len(o.Cancelados) > 0 {
		first := o.Cancelados[0]
		if p.DataRegistroProduto == nil {
			p.DataRegistroProduto = first.DtCadastro
		}
		if p.Vendedor == nil {
			p.Vendedor = first.CodUsur
		}
		if p.Funccx == nil {
			p.Funccx = first.CodFunccx
		}
	}

	return p
}
