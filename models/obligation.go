package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Receivable is the money a customer still owes on one sale. At most one row
// exists per sale and its amount always equals actual minus tendered.
type Receivable struct {
	ID         string          `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId  string          `gorm:"type:char(36);index;not null" json:"company_id"`
	SaleId     string          `gorm:"type:char(36);uniqueIndex;not null" json:"sale_id"`
	CustomerId string          `gorm:"type:char(36);index" json:"customer_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CurrencyId string          `gorm:"type:char(36)" json:"currency_id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

// Payable mirrors Receivable for the purchase side: what the company still
// owes a supplier on one purchase.
type Payable struct {
	ID         string          `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId  string          `gorm:"type:char(36);index;not null" json:"company_id"`
	PurchaseId string          `gorm:"type:char(36);uniqueIndex;not null" json:"purchase_id"`
	SupplierId string          `gorm:"type:char(36);index" json:"supplier_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	CurrencyId string          `gorm:"type:char(36)" json:"currency_id"`
	CreatedAt  time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (r *Receivable) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

func (p *Payable) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// reconcileObligation keeps the single obligation row of one transaction in
// step with its amounts: outstanding = actual - tendered. A paid transaction
// has no row; a partially paid one has exactly one row holding the remainder.
func reconcileObligation[T any](tx *gorm.DB, ctx context.Context, refColumn string, refId string, actualAmount decimal.Decimal, tenderedAmount decimal.Decimal, build func(outstanding decimal.Decimal) *T) error {
	outstanding := actualAmount.Sub(tenderedAmount)

	if outstanding.LessThanOrEqual(decimal.Zero) {
		return tx.WithContext(ctx).Where(refColumn+" = ?", refId).Delete(new(T)).Error
	}

	var existing T
	err := tx.WithContext(ctx).Where(refColumn+" = ?", refId).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tx.WithContext(ctx).Create(build(outstanding)).Error
	}
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).Model(&existing).Where(refColumn+" = ?", refId).
		Update("amount", outstanding).Error
}

func reconcileReceivable(tx *gorm.DB, ctx context.Context, sale *Sale) error {
	return reconcileObligation(tx, ctx, "sale_id", sale.ID, sale.ActualAmount, sale.TenderedAmount,
		func(outstanding decimal.Decimal) *Receivable {
			return &Receivable{
				CompanyId:  sale.CompanyId,
				SaleId:     sale.ID,
				CustomerId: sale.CustomerId,
				Amount:     outstanding,
				CurrencyId: sale.CurrencyId,
			}
		})
}

func reconcilePayable(tx *gorm.DB, ctx context.Context, purchase *Purchase) error {
	return reconcileObligation(tx, ctx, "purchase_id", purchase.ID, purchase.ActualAmount, purchase.TenderedAmount,
		func(outstanding decimal.Decimal) *Payable {
			return &Payable{
				CompanyId:  purchase.CompanyId,
				PurchaseId: purchase.ID,
				SupplierId: purchase.SupplierId,
				Amount:     outstanding,
				CurrencyId: purchase.CurrencyId,
			}
		})
}

func GetReceivables(ctx context.Context) ([]*Receivable, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Receivable](ctx, companyId)
}

func GetPayables(ctx context.Context) ([]*Payable, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Payable](ctx, companyId)
}
