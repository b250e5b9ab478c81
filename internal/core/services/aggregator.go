package services

import (
	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

// Aggregate folds raw sale and cancellation rows for one
// terminal/date/register triple into orders keyed by order number
// (NUMPEDECF). Rows are consumed in the order the database returned them,
// which becomes each order's internal item order; no additional sorting
// is applied. Rows without an order number are skipped.
//
// Aggregate is a pure function: the same input always yields the same
// output, and input rows are never mutated.
func Aggregate(filial, caixa, date string, sales []domain.SaleLine, cancels []domain.CancellationLine) []*domain.Order {
	byNumber := make(map[string]*domain.Order)
	var orders []*domain.Order

	lookup := func(numero string) *domain.Order {
		if o, ok := byNumber[numero]; ok {
			return o
		}
		o := &domain.Order{
			Numero: numero,
			Filial: filial,
			Caixa:  caixa,
			Data:   date,
		}
		byNumber[numero] = o
		orders = append(orders, o)
		return o
	}

	for _, line := range sales {
		if line.NumPedECF == nil || *line.NumPedECF == "" {
			continue
		}
		o := lookup(*line.NumPedECF)
		o.Itens = append(o.Itens, line)
	}

	for _, line := range cancels {
		if line.NumPedECF == nil || *line.NumPedECF == "" {
			continue
		}
		o := lookup(*line.NumPedECF)
		o.Cancelados = append(o.Cancelados, line)
	}

	return orders
}

// Payloads serializes an order list into the batch wire shape, computing
// the derived totals and fallback fields per order.
func Payloads(orders []*domain.Order) []domain.OrderPayload {
	out := make([]domain.OrderPayload, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Payload())
	}
	return out
}
