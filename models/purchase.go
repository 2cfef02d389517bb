package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Purchase struct {
	ID              string            `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId       string            `gorm:"type:char(36);index;not null" json:"company_id"`
	StoreId         string            `gorm:"type:char(36);index;not null" json:"store_id"`
	SupplierId      string            `gorm:"type:char(36);index;not null" json:"supplier_id"`
	CurrencyId      string            `gorm:"type:char(36)" json:"currency_id"`
	PaymentModeId   string            `gorm:"type:char(36)" json:"payment_mode_id"`
	TransactionDate time.Time         `json:"transaction_date"`
	ActualAmount    decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"actual_amount"`
	TenderedAmount  decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"tendered_amount"`
	Status          TransactionStatus `gorm:"size:20;not null" json:"status"`
	Note            string            `gorm:"type:text" json:"note"`
	Items           []PurchaseItem    `gorm:"foreignKey:PurchaseId" json:"items"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseItem struct {
	ID          string          `gorm:"type:char(36);primary_key" json:"id"`
	PurchaseId  string          `gorm:"type:char(36);index;not null" json:"purchase_id"`
	ProductId   string          `gorm:"type:char(36);index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewPurchase struct {
	StoreId         string               `json:"store_id" binding:"required"`
	SupplierId      string               `json:"supplier_id" binding:"required"`
	CurrencyId      string               `json:"currency_id"`
	PaymentModeId   string               `json:"payment_mode_id"`
	TransactionDate time.Time            `json:"transaction_date"`
	TenderedAmount  decimal.Decimal      `json:"tendered_amount"`
	Note            string               `json:"note"`
	Items           []NewTransactionItem `json:"items" binding:"required,dive"`
}

func (p *Purchase) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (i *PurchaseItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (input *NewPurchase) validate(ctx context.Context, companyId string) error {
	if err := validateStoreId(ctx, companyId, input.StoreId); err != nil {
		return newValidationError(err.Error())
	}
	if err := validateSupplierId(ctx, companyId, input.SupplierId); err != nil {
		return newValidationError(err.Error())
	}
	if input.CurrencyId != "" {
		if err := utils.ValidateResourceId[Currency](ctx, companyId, input.CurrencyId); err != nil {
			return newValidationError("currency not found")
		}
	}
	if input.PaymentModeId != "" {
		if err := utils.ValidateResourceId[PaymentMode](ctx, companyId, input.PaymentModeId); err != nil {
			return newValidationError("payment mode not found")
		}
	}
	return nil
}

func purchaseItemsFromPlan(plan *transactionPlan) []PurchaseItem {
	items := make([]PurchaseItem, 0, len(plan.items))
	for _, planned := range plan.items {
		items = append(items, PurchaseItem{
			ProductId:   planned.pricing.ProductId,
			ProductName: planned.pricing.Name,
			Quantity:    planned.quantity,
			UnitPrice:   planned.unitPrice,
			Amount:      planned.amount,
		})
	}
	return items
}

func purchaseStockLines(items []PurchaseItem) []stockLine {
	lines := make([]stockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, stockLine{ProductId: item.ProductId, Quantity: item.Quantity})
	}
	return lines
}

// CreatePurchase costs the request, moves stock into the store and records
// the header, its items and the open payable in one database transaction.
func CreatePurchase(ctx context.Context, input *NewPurchase) (*Purchase, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	plan, err := planTransaction(ctx, companyId, purchaseProfile, input.Items, input.TenderedAmount)
	if err != nil {
		return nil, err
	}

	transactionDate := input.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = time.Now()
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	if err := applyStock(tx, ctx, companyId, input.StoreId, purchaseProfile, plan); err != nil {
		return nil, rollbackWith(tx, "CreatePurchase", err)
	}

	purchase := Purchase{
		CompanyId:       companyId,
		StoreId:         input.StoreId,
		SupplierId:      input.SupplierId,
		CurrencyId:      input.CurrencyId,
		PaymentModeId:   input.PaymentModeId,
		TransactionDate: transactionDate,
		ActualAmount:    plan.actualAmount,
		TenderedAmount:  plan.tenderedAmount,
		Status:          plan.status,
		Note:            input.Note,
		Items:           purchaseItemsFromPlan(plan),
	}
	if err := tx.WithContext(ctx).Create(&purchase).Error; err != nil {
		return nil, rollbackWith(tx, "CreatePurchase", err)
	}

	if err := reconcilePayable(tx, ctx, &purchase); err != nil {
		return nil, rollbackWith(tx, "CreatePurchase", err)
	}

	if err := commitOrInconsistent(tx, "CreatePurchase", purchase.ID); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// UpdatePurchase undoes the old items' stock movements, applies the new
// request and reconciles the payable, all inside one transaction. Undoing an
// increment is a floor-checked decrement: stock already sold on cannot be
// taken back out.
func UpdatePurchase(ctx context.Context, id string, input *NewPurchase) (*Purchase, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	plan, err := planTransaction(ctx, companyId, purchaseProfile, input.Items, input.TenderedAmount)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var purchase Purchase
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("company_id = ?", companyId).
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", utils.ErrorRecordNotFound)
	}

	if err := reverseStockLines(tx, ctx, companyId, purchase.StoreId, purchaseProfile, purchaseStockLines(purchase.Items)); err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}
	if err := tx.WithContext(ctx).Where("purchase_id = ?", purchase.ID).Delete(&PurchaseItem{}).Error; err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}

	if err := applyStock(tx, ctx, companyId, input.StoreId, purchaseProfile, plan); err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}

	transactionDate := input.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = purchase.TransactionDate
	}

	purchase.StoreId = input.StoreId
	purchase.SupplierId = input.SupplierId
	purchase.CurrencyId = input.CurrencyId
	purchase.PaymentModeId = input.PaymentModeId
	purchase.TransactionDate = transactionDate
	purchase.ActualAmount = plan.actualAmount
	purchase.TenderedAmount = plan.tenderedAmount
	purchase.Status = plan.status
	purchase.Note = input.Note
	purchase.Items = nil

	if err := tx.WithContext(ctx).Save(&purchase).Error; err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}

	newItems := purchaseItemsFromPlan(plan)
	for idx := range newItems {
		newItems[idx].PurchaseId = purchase.ID
	}
	if err := tx.WithContext(ctx).Create(&newItems).Error; err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}
	purchase.Items = newItems

	if err := reconcilePayable(tx, ctx, &purchase); err != nil {
		return nil, rollbackWith(tx, "UpdatePurchase", err)
	}

	if err := commitOrInconsistent(tx, "UpdatePurchase", purchase.ID); err != nil {
		return nil, err
	}
	return &purchase, nil
}

// DeletePurchase takes the received quantities back out of stock and removes
// the header, its items and any open payable. Stock already sold on blocks
// the delete.
func DeletePurchase(ctx context.Context, id string) error {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return err
	}

	db := config.GetDB()
	tx := db.Begin()
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback().Error
			panic(r)
		}
	}()
	defer func() { _ = tx.Rollback().Error }()

	var purchase Purchase
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("company_id = ?", companyId).
		First(&purchase, "id = ?", id).Error
	if err != nil {
		return rollbackWith(tx, "DeletePurchase", utils.ErrorRecordNotFound)
	}

	if err := reverseStockLines(tx, ctx, companyId, purchase.StoreId, purchaseProfile, purchaseStockLines(purchase.Items)); err != nil {
		return rollbackWith(tx, "DeletePurchase", err)
	}

	if err := tx.WithContext(ctx).Where("purchase_id = ?", purchase.ID).Delete(&PurchaseItem{}).Error; err != nil {
		return rollbackWith(tx, "DeletePurchase", err)
	}
	if err := tx.WithContext(ctx).Where("purchase_id = ?", purchase.ID).Delete(&Payable{}).Error; err != nil {
		return rollbackWith(tx, "DeletePurchase", err)
	}
	if err := tx.WithContext(ctx).Delete(&purchase).Error; err != nil {
		return rollbackWith(tx, "DeletePurchase", err)
	}

	return commitOrInconsistent(tx, "DeletePurchase", purchase.ID)
}

func GetPurchase(ctx context.Context, id string) (*Purchase, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Purchase](ctx, companyId, id, "Items")
}

func GetPurchases(ctx context.Context) ([]*Purchase, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Purchase](ctx, companyId, "Items")
}
