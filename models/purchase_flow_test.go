package models_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

func TestPurchaseAccumulatesStockAndPayable(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Flour 1kg", "20", "12", "0")

	first := f.receiveStock(t, product.ID, 5)
	f.receiveStock(t, product.ID, 7)

	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("stock after two purchases = %s, want 12", got)
	}

	// First purchase: 5 x 12 = 60 actual, nothing tendered.
	if first.Status != models.TransactionStatusUnpaid {
		t.Fatalf("status = %q, want %q", first.Status, models.TransactionStatusUnpaid)
	}
	payable := f.payableOf(t, first.ID)
	if payable == nil || !payable.Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("payable after create = %+v, want amount 60", payable)
	}

	// Pay it off: the payable disappears.
	updated, err := models.UpdatePurchase(f.ctx, first.ID, &models.NewPurchase{
		StoreId:        f.storeId,
		SupplierId:     f.supplierId,
		TenderedAmount: decimal.NewFromInt(60),
		Items:          []models.NewTransactionItem{{ProductId: product.ID, Quantity: 5}},
	})
	if err != nil {
		t.Fatalf("UpdatePurchase (pay off): %v", err)
	}
	if updated.Status != models.TransactionStatusPaid {
		t.Fatalf("status = %q, want %q", updated.Status, models.TransactionStatusPaid)
	}
	if p := f.payableOf(t, first.ID); p != nil {
		t.Fatalf("payable should be deleted when paid, got %+v", p)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(12)) {
		t.Fatalf("stock after payment update = %s, want 12 (items unchanged)", got)
	}
}

func TestPurchaseDeleteRoundTripsInventory(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Sugar 1kg", "18", "10", "0")
	purchase := f.receiveStock(t, product.ID, 5)

	if err := models.DeletePurchase(f.ctx, purchase.ID); err != nil {
		t.Fatalf("DeletePurchase: %v", err)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.Zero) {
		t.Fatalf("stock after delete = %s, want 0", got)
	}
	if p := f.payableOf(t, purchase.ID); p != nil {
		t.Fatalf("payable should be deleted with the purchase, got %+v", p)
	}
	if _, err := models.GetPurchase(f.ctx, purchase.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetPurchase after delete: err = %v, want record not found", err)
	}
}

func TestPurchaseDeleteBlockedWhenStockConsumed(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Salt 500g", "8", "4", "0")
	purchase := f.receiveStock(t, product.ID, 5)

	// Sell most of it on, then try to take the delivery back out.
	_, err := models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items:      []models.NewTransactionItem{{ProductId: product.ID, Quantity: 4}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	err = models.DeletePurchase(f.ctx, purchase.ID)
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("DeletePurchase err = %v, want ErrInsufficientStock", err)
	}

	// The failed delete must leave everything in place.
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("stock after blocked delete = %s, want 1", got)
	}
	if _, err := models.GetPurchase(f.ctx, purchase.ID); err != nil {
		t.Fatalf("purchase should survive blocked delete: %v", err)
	}
	if p := f.payableOf(t, purchase.ID); p == nil {
		t.Fatal("payable should survive blocked delete")
	}
}

func TestPurchasePricesFromCatalogCost(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Cooking Oil 1L", "45", "32", "0")

	purchase, err := models.CreatePurchase(f.ctx, &models.NewPurchase{
		StoreId:    f.storeId,
		SupplierId: f.supplierId,
		Items:      []models.NewTransactionItem{{ProductId: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CreatePurchase: %v", err)
	}

	if len(purchase.Items) != 1 {
		t.Fatalf("items = %d, want 1", len(purchase.Items))
	}
	if !purchase.Items[0].UnitPrice.Equal(decimal.NewFromInt(32)) {
		t.Fatalf("unit price = %s, want purchase cost 32", purchase.Items[0].UnitPrice)
	}
	if !purchase.ActualAmount.Equal(decimal.NewFromInt(96)) {
		t.Fatalf("actual amount = %s, want 96", purchase.ActualAmount)
	}
}
