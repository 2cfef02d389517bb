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

type Sale struct {
	ID              string            `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId       string            `gorm:"type:char(36);index;not null" json:"company_id"`
	StoreId         string            `gorm:"type:char(36);index;not null" json:"store_id"`
	CustomerId      string            `gorm:"type:char(36);index;not null" json:"customer_id"`
	CurrencyId      string            `gorm:"type:char(36)" json:"currency_id"`
	PaymentModeId   string            `gorm:"type:char(36)" json:"payment_mode_id"`
	TransactionDate time.Time         `json:"transaction_date"`
	ActualAmount    decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"actual_amount"`
	TenderedAmount  decimal.Decimal   `gorm:"type:decimal(20,4);not null" json:"tendered_amount"`
	Status          TransactionStatus `gorm:"size:20;not null" json:"status"`
	Note            string            `gorm:"type:text" json:"note"`
	Items           []SaleItem        `gorm:"foreignKey:SaleId" json:"items"`
	CreatedAt       time.Time         `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

type SaleItem struct {
	ID          string          `gorm:"type:char(36);primary_key" json:"id"`
	SaleId      string          `gorm:"type:char(36);index;not null" json:"sale_id"`
	ProductId   string          `gorm:"type:char(36);index;not null" json:"product_id"`
	ProductName string          `gorm:"size:255" json:"product_name"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

type NewSale struct {
	StoreId         string               `json:"store_id" binding:"required"`
	CustomerId      string               `json:"customer_id" binding:"required"`
	CurrencyId      string               `json:"currency_id"`
	PaymentModeId   string               `json:"payment_mode_id"`
	TransactionDate time.Time            `json:"transaction_date"`
	TenderedAmount  decimal.Decimal      `json:"tendered_amount"`
	Note            string               `json:"note"`
	Items           []NewTransactionItem `json:"items" binding:"required,dive"`
}

func (s *Sale) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func (i *SaleItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

func (input *NewSale) validate(ctx context.Context, companyId string) error {
	if err := validateStoreId(ctx, companyId, input.StoreId); err != nil {
		return newValidationError(err.Error())
	}
	if err := validateCustomerId(ctx, companyId, input.CustomerId); err != nil {
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

func saleItemsFromPlan(plan *transactionPlan) []SaleItem {
	items := make([]SaleItem, 0, len(plan.items))
	for _, planned := range plan.items {
		items = append(items, SaleItem{
			ProductId:   planned.pricing.ProductId,
			ProductName: planned.pricing.Name,
			Quantity:    planned.quantity,
			UnitPrice:   planned.unitPrice,
			Amount:      planned.amount,
		})
	}
	return items
}

func saleStockLines(items []SaleItem) []stockLine {
	lines := make([]stockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, stockLine{ProductId: item.ProductId, Quantity: item.Quantity})
	}
	return lines
}

// CreateSale prices the request, moves stock out of the store and records the
// header, its items and the open receivable in one database transaction.
// Nothing persists when any step rejects the request.
func CreateSale(ctx context.Context, input *NewSale) (*Sale, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	plan, err := planTransaction(ctx, companyId, saleProfile, input.Items, input.TenderedAmount)
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

	if err := applyStock(tx, ctx, companyId, input.StoreId, saleProfile, plan); err != nil {
		return nil, rollbackWith(tx, "CreateSale", err)
	}

	sale := Sale{
		CompanyId:       companyId,
		StoreId:         input.StoreId,
		CustomerId:      input.CustomerId,
		CurrencyId:      input.CurrencyId,
		PaymentModeId:   input.PaymentModeId,
		TransactionDate: transactionDate,
		ActualAmount:    plan.actualAmount,
		TenderedAmount:  plan.tenderedAmount,
		Status:          plan.status,
		Note:            input.Note,
		Items:           saleItemsFromPlan(plan),
	}
	if err := tx.WithContext(ctx).Create(&sale).Error; err != nil {
		return nil, rollbackWith(tx, "CreateSale", err)
	}

	if err := reconcileReceivable(tx, ctx, &sale); err != nil {
		return nil, rollbackWith(tx, "CreateSale", err)
	}

	if err := queueLowStockAlerts(tx, ctx, companyId, input.StoreId, plan); err != nil {
		return nil, rollbackWith(tx, "CreateSale", err)
	}

	if err := commitOrInconsistent(tx, "CreateSale", sale.ID); err != nil {
		return nil, err
	}
	return &sale, nil
}

// UpdateSale replaces a sale wholesale: the old items' stock movements are
// undone, the new request is applied as if freshly created and the receivable
// is reconciled against the new amounts. Old items are only gone once the
// whole update commits.
func UpdateSale(ctx context.Context, id string, input *NewSale) (*Sale, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(ctx, companyId); err != nil {
		return nil, err
	}

	plan, err := planTransaction(ctx, companyId, saleProfile, input.Items, input.TenderedAmount)
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

	var sale Sale
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("company_id = ?", companyId).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return nil, rollbackWith(tx, "UpdateSale", utils.ErrorRecordNotFound)
	}

	// put the old quantities back before re-applying against current stock
	if err := reverseStockLines(tx, ctx, companyId, sale.StoreId, saleProfile, saleStockLines(sale.Items)); err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}
	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Delete(&SaleItem{}).Error; err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}

	if err := applyStock(tx, ctx, companyId, input.StoreId, saleProfile, plan); err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}

	transactionDate := input.TransactionDate
	if transactionDate.IsZero() {
		transactionDate = sale.TransactionDate
	}

	sale.StoreId = input.StoreId
	sale.CustomerId = input.CustomerId
	sale.CurrencyId = input.CurrencyId
	sale.PaymentModeId = input.PaymentModeId
	sale.TransactionDate = transactionDate
	sale.ActualAmount = plan.actualAmount
	sale.TenderedAmount = plan.tenderedAmount
	sale.Status = plan.status
	sale.Note = input.Note
	sale.Items = nil

	if err := tx.WithContext(ctx).Save(&sale).Error; err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}

	newItems := saleItemsFromPlan(plan)
	for idx := range newItems {
		newItems[idx].SaleId = sale.ID
	}
	if err := tx.WithContext(ctx).Create(&newItems).Error; err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}
	sale.Items = newItems

	if err := reconcileReceivable(tx, ctx, &sale); err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}

	if err := queueLowStockAlerts(tx, ctx, companyId, input.StoreId, plan); err != nil {
		return nil, rollbackWith(tx, "UpdateSale", err)
	}

	if err := commitOrInconsistent(tx, "UpdateSale", sale.ID); err != nil {
		return nil, err
	}
	return &sale, nil
}

// DeleteSale returns the sold quantities to stock and removes the header, its
// items and any open receivable, all in one transaction.
func DeleteSale(ctx context.Context, id string) error {
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

	var sale Sale
	err = tx.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items").
		Where("company_id = ?", companyId).
		First(&sale, "id = ?", id).Error
	if err != nil {
		return rollbackWith(tx, "DeleteSale", utils.ErrorRecordNotFound)
	}

	if err := reverseStockLines(tx, ctx, companyId, sale.StoreId, saleProfile, saleStockLines(sale.Items)); err != nil {
		return rollbackWith(tx, "DeleteSale", err)
	}

	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Delete(&SaleItem{}).Error; err != nil {
		return rollbackWith(tx, "DeleteSale", err)
	}
	if err := tx.WithContext(ctx).Where("sale_id = ?", sale.ID).Delete(&Receivable{}).Error; err != nil {
		return rollbackWith(tx, "DeleteSale", err)
	}
	if err := tx.WithContext(ctx).Delete(&sale).Error; err != nil {
		return rollbackWith(tx, "DeleteSale", err)
	}

	return commitOrInconsistent(tx, "DeleteSale", sale.ID)
}

func GetSale(ctx context.Context, id string) (*Sale, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Sale](ctx, companyId, id, "Items")
}

func GetSales(ctx context.Context) ([]*Sale, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Sale](ctx, companyId, "Items")
}
