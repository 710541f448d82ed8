package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseOrderKind(t *testing.T) {
	cases := map[string]OrderKind{
		"BUY":   OrderKindBuy,
		"buy":   OrderKindBuy,
		" Sell": OrderKindSell,
	}
	for in, want := range cases {
		got, err := ParseOrderKind(in)
		if err != nil {
			t.Fatalf("ParseOrderKind(%q) failed: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseOrderKind(%q) = %s, want %s", in, got, want)
		}
	}

	if _, err := ParseOrderKind("HOLD"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("Expected ErrInvalidKind, got %v", err)
	}
}

func TestProcessedOrder_JSON(t *testing.T) {
	rec := ProcessedOrder{ID: "01", Kind: OrderKindSell, Instrument: "$", Status: ReplySuccess}

	b, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(b, &fields); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if fields["kind"] != "SELL" {
		t.Errorf("Expected kind SELL, got %v", fields["kind"])
	}
	if fields["status"] != "success" {
		t.Errorf("Expected status success, got %v", fields["status"])
	}
}
