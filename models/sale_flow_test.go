package models_test

import (
	"errors"
	"sync"
	"testing"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
)

func TestSaleLifecycleMaintainsStockAndReceivable(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Notebook", "50", "30", "0")
	f.receiveStock(t, product.ID, 10)

	// Create: 2 x 50 = 100 actual, 40 tendered.
	sale, err := models.CreateSale(f.ctx, &models.NewSale{
		StoreId:        f.storeId,
		CustomerId:     f.customerId,
		TenderedAmount: decimal.NewFromInt(40),
		Items:          []models.NewTransactionItem{{ProductId: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != models.TransactionStatusPartialPaid {
		t.Fatalf("status = %q, want %q", sale.Status, models.TransactionStatusPartialPaid)
	}
	if !sale.ActualAmount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("actual amount = %s, want 100", sale.ActualAmount)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stock after sale = %s, want 8", got)
	}
	receivable := f.receivableOf(t, sale.ID)
	if receivable == nil || !receivable.Amount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("receivable after create = %+v, want amount 60", receivable)
	}

	// Pay in full: receivable must disappear.
	sale, err = models.UpdateSale(f.ctx, sale.ID, &models.NewSale{
		StoreId:        f.storeId,
		CustomerId:     f.customerId,
		TenderedAmount: decimal.NewFromInt(100),
		Items:          []models.NewTransactionItem{{ProductId: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("UpdateSale (pay in full): %v", err)
	}
	if sale.Status != models.TransactionStatusPaid {
		t.Fatalf("status = %q, want %q", sale.Status, models.TransactionStatusPaid)
	}
	if r := f.receivableOf(t, sale.ID); r != nil {
		t.Fatalf("receivable should be deleted when paid, got %+v", r)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("stock after update = %s, want 8 (items unchanged)", got)
	}

	// Lower the tender again: the receivable is recreated with the remainder.
	sale, err = models.UpdateSale(f.ctx, sale.ID, &models.NewSale{
		StoreId:        f.storeId,
		CustomerId:     f.customerId,
		TenderedAmount: decimal.NewFromInt(70),
		Items:          []models.NewTransactionItem{{ProductId: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("UpdateSale (lower tender): %v", err)
	}
	receivable = f.receivableOf(t, sale.ID)
	if receivable == nil || !receivable.Amount.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("receivable after lowering tender = %+v, want amount 30", receivable)
	}

	// Delete: stock returns, receivable goes away.
	if err := models.DeleteSale(f.ctx, sale.ID); err != nil {
		t.Fatalf("DeleteSale: %v", err)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("stock after delete = %s, want 10", got)
	}
	if r := f.receivableOf(t, sale.ID); r != nil {
		t.Fatalf("receivable should be deleted with the sale, got %+v", r)
	}
	if _, err := models.GetSale(f.ctx, sale.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetSale after delete: err = %v, want record not found", err)
	}
}

func TestSaleRejectsOversell(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Pencil", "10", "5", "0")
	f.receiveStock(t, product.ID, 5)

	// One line exceeding stock.
	_, err := models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items:      []models.NewTransactionItem{{ProductId: product.ID, Quantity: 6}},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("oversell err = %v, want ErrInsufficientStock", err)
	}

	// Two lines that only jointly exceed stock.
	_, err = models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items: []models.NewTransactionItem{
			{ProductId: product.ID, Quantity: 3},
			{ProductId: product.ID, Quantity: 3},
		},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("joint oversell err = %v, want ErrInsufficientStock", err)
	}

	// Selling a product the store never stocked.
	other := f.createProduct(t, "Eraser", "10", "5", "0")
	_, err = models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items:      []models.NewTransactionItem{{ProductId: other.ID, Quantity: 1}},
	})
	if !errors.Is(err, models.ErrInsufficientStock) {
		t.Fatalf("unstocked sale err = %v, want ErrInsufficientStock", err)
	}

	// Nothing moved, nothing persisted.
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("stock after rejected sales = %s, want 5", got)
	}
	sales, err := models.GetSales(f.ctx)
	if err != nil {
		t.Fatalf("GetSales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("rejected sales must not persist, found %d", len(sales))
	}
}

func TestSaleRequestValidation(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Ruler", "25", "10", "0")
	f.receiveStock(t, product.ID, 4)

	// Overpayment: 1 x 25 actual, 30 tendered.
	_, err := models.CreateSale(f.ctx, &models.NewSale{
		StoreId:        f.storeId,
		CustomerId:     f.customerId,
		TenderedAmount: decimal.NewFromInt(30),
		Items:          []models.NewTransactionItem{{ProductId: product.ID, Quantity: 1}},
	})
	if !models.IsValidationError(err) {
		t.Fatalf("overpayment err = %v, want ValidationError", err)
	}

	// Unknown product.
	_, err = models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items:      []models.NewTransactionItem{{ProductId: "00000000-0000-0000-0000-000000000000", Quantity: 1}},
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("unknown product err = %v, want record not found", err)
	}

	if got := f.stockOf(t, product.ID); !got.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("stock after rejected requests = %s, want 4", got)
	}
}

func TestConcurrentSalesOfLastUnits(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Limited Widget", "100", "60", "0")
	f.receiveStock(t, product.ID, 3)

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, err := models.CreateSale(f.ctx, &models.NewSale{
				StoreId:    f.storeId,
				CustomerId: f.customerId,
				Items:      []models.NewTransactionItem{{ProductId: product.ID, Quantity: 3}},
			})
			results[slot] = err
		}(i)
	}
	wg.Wait()

	var successes, conflicts int
	for _, err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, models.ErrInsufficientStock):
			conflicts++
		default:
			t.Fatalf("unexpected concurrent sale error: %v", err)
		}
	}
	if successes != 1 || conflicts != 1 {
		t.Fatalf("got %d successes and %d conflicts, want exactly 1 of each", successes, conflicts)
	}
	if got := f.stockOf(t, product.ID); !got.Equal(decimal.Zero) {
		t.Fatalf("stock after concurrent sales = %s, want 0", got)
	}
}

func TestSaleAtReorderLevelQueuesStockAlert(t *testing.T) {
	f := setupIntegration(t)

	product := f.createProduct(t, "Bottled Water", "15", "8", "5")
	f.receiveStock(t, product.ID, 6)

	_, err := models.CreateSale(f.ctx, &models.NewSale{
		StoreId:    f.storeId,
		CustomerId: f.customerId,
		Items:      []models.NewTransactionItem{{ProductId: product.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	db := config.GetDB()
	var alerts []models.StockAlertRecord
	err = db.Where("company_id = ? AND product_id = ?", f.companyId, product.ID).Find(&alerts).Error
	if err != nil {
		t.Fatalf("query stock alerts: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("stock alerts = %d, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.PublishStatus != models.StockAlertPublishStatusPending {
		t.Fatalf("alert status = %q, want Pending", alert.PublishStatus)
	}
	if !alert.Quantity.Equal(decimal.NewFromInt(4)) {
		t.Fatalf("alert quantity = %s, want 4", alert.Quantity)
	}
}
