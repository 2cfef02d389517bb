package models

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestDeriveTransactionStatus(t *testing.T) {
	cases := []struct {
		name     string
		actual   string
		tendered string
		want     TransactionStatus
	}{
		{"nothing tendered", "100", "0", TransactionStatusUnpaid},
		{"partial payment", "100", "40", TransactionStatusPartialPaid},
		{"exact payment", "100", "100", TransactionStatusPaid},
		{"small remainder", "100", "99.9999", TransactionStatusPartialPaid},
		{"zero actual zero tendered", "0", "0", TransactionStatusUnpaid},
		{"tendered above actual", "100", "150", TransactionStatusPaid},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual := decimal.RequireFromString(tc.actual)
			tendered := decimal.RequireFromString(tc.tendered)
			got := DeriveTransactionStatus(actual, tendered)
			if got != tc.want {
				t.Fatalf("DeriveTransactionStatus(%s, %s) = %q, want %q", tc.actual, tc.tendered, got, tc.want)
			}
		})
	}
}

func TestValidateTransactionItems(t *testing.T) {
	cases := []struct {
		name     string
		items    []NewTransactionItem
		tendered string
		wantErr  bool
	}{
		{"valid single item", []NewTransactionItem{{ProductId: "p1", Quantity: 2}}, "0", false},
		{"empty items", nil, "0", true},
		{"zero quantity", []NewTransactionItem{{ProductId: "p1", Quantity: 0}}, "0", true},
		{"negative quantity", []NewTransactionItem{{ProductId: "p1", Quantity: -3}}, "0", true},
		{"missing product id", []NewTransactionItem{{ProductId: "", Quantity: 1}}, "0", true},
		{"negative tender", []NewTransactionItem{{ProductId: "p1", Quantity: 1}}, "-1", true},
		{"second item bad", []NewTransactionItem{{ProductId: "p1", Quantity: 1}, {ProductId: "p2", Quantity: 0}}, "0", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTransactionItems(tc.items, decimal.RequireFromString(tc.tendered))
			if tc.wantErr && err == nil {
				t.Fatalf("expected a validation error, got nil")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.wantErr && !IsValidationError(err) {
				t.Fatalf("expected ValidationError, got %T: %v", err, err)
			}
		})
	}
}

func TestValidationErrorMatching(t *testing.T) {
	err := newValidationError("bad input")
	if !IsValidationError(err) {
		t.Fatal("newValidationError result should match IsValidationError")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) || ve.Message != "bad input" {
		t.Fatalf("errors.As failed to extract message, got %+v", ve)
	}

	if IsValidationError(ErrInsufficientStock) {
		t.Fatal("sentinel errors must not match IsValidationError")
	}
}
