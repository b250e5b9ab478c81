package services

import (
	"reflect"
	"testing"

	"github.com/exd-sistemas/caixa-sync/internal/core/domain"
)

func strPtr(s string) *string { return &s }

func saleRow(pedido, pvenda string) domain.SaleLine {
	return domain.SaleLine{NumPedECF: strPtr(pedido), PVenda: strPtr(pvenda)}
}

func cancelRow(pedido, pvenda string) domain.CancellationLine {
	return domain.CancellationLine{NumPedECF: strPtr(pedido), PVenda: strPtr(pvenda)}
}

func TestAggregateGroupsByOrderNumber(t *testing.T) {
	sales := []domain.SaleLine{
		saleRow("100", "10.50"),
		saleRow("200", "1.00"),
		saleRow("100", "5.00"),
	}
	cancels := []domain.CancellationLine{
		cancelRow("100", "5.00"),
	}

	orders := Aggregate("01", "001", "2026-08-31", sales, cancels)

	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}

	first := orders[0]
	if first.Numero != "100" {
		t.Errorf("expected first order 100, got %s", first.Numero)
	}
	if len(first.Itens) != 2 {
		t.Errorf("expected 2 items on order 100, got %d", len(first.Itens))
	}
	if len(first.Cancelados) != 1 {
		t.Errorf("expected 1 cancellation on order 100, got %d", len(first.Cancelados))
	}
	if first.Filial != "01" || first.Caixa != "001" || first.Data != "2026-08-31" {
		t.Errorf("expected terminal identity on order, got %+v", first)
	}

	second := orders[1]
	if second.Numero != "200" {
		t.Errorf("expected second order 200, got %s", second.Numero)
	}
	if len(second.Cancelados) != 0 {
		t.Errorf("expected no cancellations on order 200, got %d", len(second.Cancelados))
	}
}

func TestAggregateTotals(t *testing.T) {
	sales := []domain.SaleLine{
		saleRow("1234", "10.50"),
		saleRow("1234", "5.00"),
	}
	cancels := []domain.CancellationLine{
		cancelRow("1234", "5.00"),
	}

	orders := Aggregate("01", "001", "2026-08-31", sales, cancels)
	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}

	p := orders[0].Payload()
	if p.TotalItens != 15.50 {
		t.Errorf("expected total_itens 15.50, got %f", p.TotalItens)
	}
	if p.TotalCancelados != 5.00 {
		t.Errorf("expected total_cancelados 5.00, got %f", p.TotalCancelados)
	}
}

func TestAggregateSkipsRowsWithoutOrderNumber(t *testing.T) {
	sales := []domain.SaleLine{
		{NumPedECF: nil, PVenda: strPtr("9.99")},
		{NumPedECF: strPtr(""), PVenda: strPtr("9.99")},
		saleRow("7", "1.00"),
	}

	orders := Aggregate("01", "001", "2026-08-31", sales, nil)

	if len(orders) != 1 {
		t.Fatalf("expected 1 order, got %d", len(orders))
	}
	if len(orders[0].Itens) != 1 {
		t.Errorf("expected 1 item, got %d", len(orders[0].Itens))
	}
}

func TestAggregatePreservesInputOrder(t *testing.T) {
	sales := []domain.SaleLine{
		saleRow("30", "1"),
		saleRow("10", "1"),
		saleRow("20", "1"),
		saleRow("10", "2"),
	}

	orders := Aggregate("01", "001", "2026-08-31", sales, nil)

	var got []string
	for _, o := range orders {
		got = append(got, o.Numero)
	}
	want := []string{"30", "10", "20"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected order sequence %v, got %v", want, got)
	}

	// Within an order, line order is the database return order
	if *orders[1].Itens[0].PVenda != "1" || *orders[1].Itens[1].PVenda != "2" {
		t.Error("expected items in database return order")
	}
}

func TestAggregateDeterministic(t *testing.T) {
	sales := []domain.SaleLine{
		saleRow("5", "2.00"),
		saleRow("3", "4.00"),
		saleRow("5", "1.00"),
	}
	cancels := []domain.CancellationLine{
		cancelRow("3", "4.00"),
	}

	a := Aggregate("01", "001", "2026-08-31", sales, cancels)
	b := Aggregate("01", "001", "2026-08-31", sales, cancels)

	if !reflect.DeepEqual(a, b) {
		t.Error("expected identical output for identical input")
	}
}

func TestAggregateEmptyInput(t *testing.T) {
	orders := Aggregate("01", "001", "2026-08-31", nil, nil)
	if len(orders) != 0 {
		t.Errorf("expected no orders, got %d", len(orders))
	}
}

func TestPayloads(t *testing.T) {
	orders := Aggregate("01", "001", "2026-08-31", []domain.SaleLine{saleRow("1", "2.50")}, nil)

	payloads := Payloads(orders)
	if len(payloads) != 1 {
		t.Fatalf("expected 1 payload, got %d", len(payloads))
	}
	if payloads[0].Pedido != "1" {
		t.Errorf("expected pedido 1, got %s", payloads[0].Pedido)
	}
	if payloads[0].TotalItens != 2.50 {
		t.Errorf("expected total_itens 2.50, got %f", payloads[0].TotalItens)
	}
}
