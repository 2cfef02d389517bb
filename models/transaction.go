package models

import (
	"context"
	"errors"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// A Sale and a Purchase run the same flow in opposite directions. The profile
// captures everything that differs: which catalog price values a line and
// which way stock moves on create.
type directionProfile struct {
	direction   TransactionDirection
	unitPriceOf func(pricing *ProductPricing) decimal.Decimal
	outgoing    bool
}

var saleProfile = directionProfile{
	direction:   TransactionDirectionSale,
	unitPriceOf: func(pricing *ProductPricing) decimal.Decimal { return pricing.SalePrice },
	outgoing:    true,
}

var purchaseProfile = directionProfile{
	direction:   TransactionDirectionPurchase,
	unitPriceOf: func(pricing *ProductPricing) decimal.Decimal { return pricing.PurchasePrice },
	outgoing:    false,
}

type NewTransactionItem struct {
	ProductId string `json:"product_id" binding:"required"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

type plannedItem struct {
	pricing   *ProductPricing
	quantity  decimal.Decimal
	unitPrice decimal.Decimal
	amount    decimal.Decimal
}

type transactionPlan struct {
	items          []plannedItem
	actualAmount   decimal.Decimal
	tenderedAmount decimal.Decimal
	status         TransactionStatus
}

// stockLine is the minimal view of a stored item needed to undo its movement.
type stockLine struct {
	ProductId string
	Quantity  decimal.Decimal
}

func validateTransactionItems(items []NewTransactionItem, tenderedAmount decimal.Decimal) error {
	if len(items) == 0 {
		return newValidationError("at least one item is required")
	}
	for _, item := range items {
		if item.ProductId == "" {
			return newValidationError("product id is required on every item")
		}
		if item.Quantity <= 0 {
			return newValidationError("item quantity must be greater than zero")
		}
	}
	if tenderedAmount.IsNegative() {
		return newValidationError("tendered amount must not be negative")
	}
	return nil
}

// planTransaction prices every line from the catalog, totals the actual
// amount and derives the header status. Nothing is written; an unknown
// product or an overpayment aborts here.
func planTransaction(ctx context.Context, companyId string, profile directionProfile, items []NewTransactionItem, tenderedAmount decimal.Decimal) (*transactionPlan, error) {
	if err := validateTransactionItems(items, tenderedAmount); err != nil {
		return nil, err
	}

	plan := transactionPlan{tenderedAmount: tenderedAmount}
	for _, item := range items {
		pricing, err := FetchProductPricing(ctx, companyId, item.ProductId)
		if err != nil {
			return nil, err
		}
		quantity := decimal.NewFromInt(item.Quantity)
		unitPrice := profile.unitPriceOf(pricing)
		planned := plannedItem{
			pricing:   pricing,
			quantity:  quantity,
			unitPrice: unitPrice,
			amount:    unitPrice.Mul(quantity),
		}
		plan.items = append(plan.items, planned)
		plan.actualAmount = plan.actualAmount.Add(planned.amount)
	}

	if tenderedAmount.GreaterThan(plan.actualAmount) {
		return nil, newValidationError("tendered amount must not exceed the transaction amount")
	}
	plan.status = DeriveTransactionStatus(plan.actualAmount, tenderedAmount)
	return &plan, nil
}

// applyStock moves the planned quantities through the ledger. For outgoing
// flows a per-request reservation map rejects requests whose lines jointly
// exceed the stock on hand, before any conditional decrement runs.
func applyStock(tx *gorm.DB, ctx context.Context, companyId string, storeId string, profile directionProfile, plan *transactionPlan) error {
	if !profile.outgoing {
		for _, item := range plan.items {
			if err := increaseStock(tx, ctx, companyId, storeId, item.pricing.ProductId, item.quantity); err != nil {
				return err
			}
		}
		return nil
	}

	reserved := make(map[string]decimal.Decimal) // key: product_id
	for _, item := range plan.items {
		onHand, err := stockOnHand(tx, ctx, companyId, storeId, item.pricing.ProductId)
		if err != nil {
			return err
		}
		already := reserved[item.pricing.ProductId]
		if onHand.Sub(already).LessThan(item.quantity) {
			return ErrInsufficientStock
		}
		reserved[item.pricing.ProductId] = already.Add(item.quantity)
	}

	for _, item := range plan.items {
		err := decreaseStock(tx, ctx, companyId, storeId, item.pricing.ProductId, item.quantity)
		if errors.Is(err, ErrNoInventoryRecord) {
			// selling from a store that never stocked the product
			return ErrInsufficientStock
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// reverseStockLines undoes stored movements: incoming lines are decremented
// back out (strict, a vanished ledger row is an inconsistency), outgoing
// lines are returned to stock.
func reverseStockLines(tx *gorm.DB, ctx context.Context, companyId string, storeId string, profile directionProfile, lines []stockLine) error {
	for _, line := range lines {
		var err error
		if profile.outgoing {
			err = increaseStock(tx, ctx, companyId, storeId, line.ProductId, line.Quantity)
		} else {
			err = decreaseStock(tx, ctx, companyId, storeId, line.ProductId, line.Quantity)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// queueLowStockAlerts writes an outbox row for every distinct product the
// flow drove to or below its reorder level. Runs inside the caller's
// transaction so alerts only exist for committed movements.
func queueLowStockAlerts(tx *gorm.DB, ctx context.Context, companyId string, storeId string, plan *transactionPlan) error {
	correlationId, _ := utils.GetCorrelationIdFromContext(ctx)

	seen := make(map[string]bool)
	for _, item := range plan.items {
		if seen[item.pricing.ProductId] {
			continue
		}
		seen[item.pricing.ProductId] = true

		if item.pricing.ReorderLevel.LessThanOrEqual(decimal.Zero) {
			continue
		}
		onHand, err := stockOnHand(tx, ctx, companyId, storeId, item.pricing.ProductId)
		if err != nil {
			return err
		}
		if onHand.GreaterThan(item.pricing.ReorderLevel) {
			continue
		}
		if err := queueStockAlert(tx, ctx, companyId, storeId, item.pricing, onHand, correlationId); err != nil {
			return err
		}
	}
	return nil
}

// rollbackWith aborts the transaction and passes the cause through. A failed
// rollback leaves partial writes behind, which outranks the original cause.
func rollbackWith(tx *gorm.DB, funcName string, cause error) error {
	if err := tx.Rollback().Error; err != nil {
		config.LogError(config.GetLogger(), "models", funcName, "rollback", nil, err)
		return ErrInconsistentState
	}
	return cause
}

func commitOrInconsistent(tx *gorm.DB, funcName string, reference string) error {
	if err := tx.Commit().Error; err != nil {
		config.LogError(config.GetLogger(), "models", funcName, "commit", reference, err)
		return ErrInconsistentState
	}
	return nil
}
