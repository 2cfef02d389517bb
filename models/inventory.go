package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Inventory holds the on-hand quantity of one product in one store. Records
// are created lazily on the first stock movement that touches the pair.
type Inventory struct {
	ID        string          `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId string          `gorm:"type:char(36);index;not null" json:"company_id"`
	StoreId   string          `gorm:"type:char(36);uniqueIndex:idx_inventory_product_store;not null" json:"store_id"`
	ProductId string          `gorm:"type:char(36);uniqueIndex:idx_inventory_product_store;not null" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"quantity"`
	CreatedAt time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (i *Inventory) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// increaseStock adds qty to the (product, store) record, creating it when it
// does not exist yet. The upsert keeps concurrent increments from losing
// updates.
func increaseStock(tx *gorm.DB, ctx context.Context, companyId string, storeId string, productId string, qty decimal.Decimal) error {
	record := Inventory{
		ID:        uuid.NewString(),
		CompanyId: companyId,
		StoreId:   storeId,
		ProductId: productId,
		Quantity:  qty,
	}
	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "store_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", qty),
		}),
	}).Create(&record).Error
}

// decreaseStock subtracts qty with a floor of zero, as a single conditional
// UPDATE so two concurrent requests cannot jointly oversell. A missing record
// is reported apart from an insufficient one so callers can tell a sale
// against an empty store from a reversal that lost its ledger row.
func decreaseStock(tx *gorm.DB, ctx context.Context, companyId string, storeId string, productId string, qty decimal.Decimal) error {
	result := tx.WithContext(ctx).Model(&Inventory{}).
		Where("company_id = ? AND store_id = ? AND product_id = ? AND quantity >= ?", companyId, storeId, productId, qty).
		Update("quantity", gorm.Expr("quantity - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	var count int64
	err := tx.WithContext(ctx).Model(&Inventory{}).
		Where("company_id = ? AND store_id = ? AND product_id = ?", companyId, storeId, productId).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNoInventoryRecord
	}
	return ErrInsufficientStock
}

// stockOnHand reads the current quantity inside the caller's transaction.
// Missing records read as zero.
func stockOnHand(tx *gorm.DB, ctx context.Context, companyId string, storeId string, productId string) (decimal.Decimal, error) {
	var record Inventory
	err := tx.WithContext(ctx).
		Where("company_id = ? AND store_id = ? AND product_id = ?", companyId, storeId, productId).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return record.Quantity, nil
}

func GetInventories(ctx context.Context, storeId string) ([]*Inventory, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Where("company_id = ?", companyId)
	if storeId != "" {
		dbCtx = dbCtx.Where("store_id = ?", storeId)
	}

	var records []*Inventory
	if err := dbCtx.Order("product_id").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
