package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func strPtr(s string) *string { return &s }

func TestParsePrice(t *testing.T) {
	if v := ParsePrice(strPtr("10.50")); v != 10.50 {
		t.Errorf("expected 10.50, got %f", v)
	}
	if v := ParsePrice(strPtr(" 5.00 ")); v != 5.00 {
		t.Errorf("expected 5.00 for padded input, got %f", v)
	}
	if v := ParsePrice(nil); v != 0 {
		t.Errorf("expected 0 for nil, got %f", v)
	}
	if v := ParsePrice(strPtr("abc")); v != 0 {
		t.Errorf("expected 0 for non-numeric, got %f", v)
	}
	if v := ParsePrice(strPtr("")); v != 0 {
		t.Errorf("expected 0 for empty string, got %f", v)
	}
}

func TestNullable(t *testing.T) {
	if Nullable("") != nil {
		t.Error("expected nil for empty string")
	}
	if p := Nullable("01"); p == nil || *p != "01" {
		t.Errorf("expected pointer to '01', got %v", p)
	}
}

func TestOrderPayloadTotals(t *testing.T) {
	order := &Order{
		Numero: "1234",
		Filial: "01",
		Caixa:  "001",
		Data:   "2026-08-31",
		Itens: []SaleLine{
			{NumPedECF: strPtr("1234"), PVenda: strPtr("10.50"), CodCob: strPtr("D"), CodFunccx: strPtr("7"), CodUsur: strPtr("42"), DtCadastro: strPtr("2026-08-31")},
			{NumPedECF: strPtr("1234"), PVenda: strPtr("5.00")},
		},
		Cancelados: []CancellationLine{
			{NumPedECF: strPtr("1234"), PVenda: strPtr("5.00")},
		},
	}

	p := order.Payload()

	if p.Pedido != "1234" {
		t.Errorf("expected pedido 1234, got %s", p.Pedido)
	}
	if p.TotalItens != 15.50 {
		t.Errorf("expected total_itens 15.50, got %f", p.TotalItens)
	}
	if p.TotalCancelados != 5.00 {
		t.Errorf("expected total_cancelados 5.00, got %f", p.TotalCancelados)
	}
	if p.CodCob == nil || *p.CodCob != "D" {
		t.Errorf("expected codcob D from first item, got %v", p.CodCob)
	}
	if p.Funccx == nil || *p.Funccx != "7" {
		t.Errorf("expected funccx 7 from first item, got %v", p.Funccx)
	}
	if p.Vendedor == nil || *p.Vendedor != "42" {
		t.Errorf("expected vendedor 42 from first item, got %v", p.Vendedor)
	}
	if p.DataRegistroProduto == nil || *p.DataRegistroProduto != "2026-08-31" {
		t.Errorf("expected data_registro_produto from first item, got %v", p.DataRegistroProduto)
	}
}

func TestOrderPayloadCancellationFallback(t *testing.T) {
	// An order with cancellations only still derives the registration
	// date, cashier and seller from the first cancellation.
	order := &Order{
		Numero: "99",
		Cancelados: []CancellationLine{
			{NumPedECF: strPtr("99"), PVenda: strPtr("3.00"), CodFunccx: strPtr("2"), CodUsur: strPtr("9"), DtCadastro: strPtr("2026-08-30")},
		},
	}

	p := order.Payload()

	if p.Funccx == nil || *p.Funccx != "2" {
		t.Errorf("expected funccx fallback 2, got %v", p.Funccx)
	}
	if p.Vendedor == nil || *p.Vendedor != "9" {
		t.Errorf("expected vendedor fallback 9, got %v", p.Vendedor)
	}
	if p.DataRegistroProduto == nil || *p.DataRegistroProduto != "2026-08-30" {
		t.Errorf("expected registration date fallback, got %v", p.DataRegistroProduto)
	}
	if p.CodCob != nil {
		t.Errorf("expected codcob nil without items, got %v", p.CodCob)
	}
	if p.TotalItens != 0 {
		t.Errorf("expected total_itens 0, got %f", p.TotalItens)
	}
}

func TestOrderPayloadEmptyArraysNeverNull(t *testing.T) {
	order := &Order{Numero: "1"}

	data, err := json.Marshal(order.Payload())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, `"itens":[]`) {
		t.Errorf("expected itens serialized as empty array, got %s", body)
	}
	if !strings.Contains(body, `"cancelados":[]`) {
		t.Errorf("expected cancelados serialized as empty array, got %s", body)
	}
}

func TestSaleLineJSONKeys(t *testing.T) {
	line := SaleLine{
		NumPedECF: strPtr("1"),
		PVenda:    strPtr("2.50"),
	}

	data, err := json.Marshal(line)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	body := string(data)

	if !strings.Contains(body, `"NUMPEDECF":"1"`) {
		t.Errorf("expected uppercase NUMPEDECF key, got %s", body)
	}
	if !strings.Contains(body, `"PVENDA":"2.50"`) {
		t.Errorf("expected uppercase PVENDA key, got %s", body)
	}
	// Absent columns stay explicit nulls, never omitted
	if !strings.Contains(body, `"DESCRICAO":null`) {
		t.Errorf("expected explicit null for absent column, got %s", body)
	}
}
