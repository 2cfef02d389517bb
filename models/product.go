package models

import (
	"context"
	"fmt"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const productPricingCacheLifetime = 15 * time.Minute

type Product struct {
	ID            string          `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId     string          `gorm:"type:char(36);index;not null" json:"company_id"`
	Name          string          `gorm:"index;size:255;not null" json:"name"`
	Sku           string          `gorm:"size:100" json:"sku"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"sale_price"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"purchase_price"`
	ReorderLevel  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"reorder_level"`
	IsActive      *bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewProduct struct {
	Name          string          `json:"name" binding:"required"`
	Sku           string          `json:"sku"`
	SalePrice     decimal.Decimal `json:"sale_price" binding:"required"`
	PurchasePrice decimal.Decimal `json:"purchase_price" binding:"required"`
	ReorderLevel  decimal.Decimal `json:"reorder_level"`
}

// ProductPricing is the cached read model the orchestrator prices lines with.
type ProductPricing struct {
	ProductId     string          `json:"product_id"`
	Name          string          `json:"name"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	ReorderLevel  decimal.Decimal `json:"reorder_level"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func (input *NewProduct) validate() error {
	if input.SalePrice.LessThanOrEqual(decimal.Zero) {
		return newValidationError("sale price must be greater than zero")
	}
	if input.PurchasePrice.LessThanOrEqual(decimal.Zero) {
		return newValidationError("purchase price must be greater than zero")
	}
	if input.SalePrice.LessThan(input.PurchasePrice) {
		return newValidationError("sale price must not be less than purchase price")
	}
	if input.ReorderLevel.IsNegative() {
		return newValidationError("reorder level must not be negative")
	}
	return nil
}

func CreateProduct(ctx context.Context, input *NewProduct) (*Product, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Product](ctx, companyId, "name", input.Name, ""); err != nil {
		return nil, newValidationError(err.Error())
	}

	product := Product{
		CompanyId:     companyId,
		Name:          input.Name,
		Sku:           input.Sku,
		SalePrice:     input.SalePrice,
		PurchasePrice: input.PurchasePrice,
		ReorderLevel:  input.ReorderLevel,
		IsActive:      utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateProduct(ctx context.Context, id string, input *NewProduct) (*Product, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateUnique[Product](ctx, companyId, "name", input.Name, id); err != nil {
		return nil, newValidationError(err.Error())
	}

	product, err := utils.FetchModel[Product](ctx, companyId, id)
	if err != nil {
		return nil, err
	}

	product.Name = input.Name
	product.Sku = input.Sku
	product.SalePrice = input.SalePrice
	product.PurchasePrice = input.PurchasePrice
	product.ReorderLevel = input.ReorderLevel

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}

	// drop the stale pricing snapshot; next resolve repopulates it
	if err := config.RemoveRedisKey(productPricingCacheKey(companyId, id)); err != nil {
		config.LogError(config.GetLogger(), "models", "UpdateProduct", "invalidate pricing cache", id, err)
	}
	return product, nil
}

func GetProduct(ctx context.Context, id string) (*Product, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Product](ctx, companyId, id)
}

func GetProducts(ctx context.Context) ([]*Product, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Product](ctx, companyId)
}

func productPricingCacheKey(companyId string, productId string) string {
	return fmt.Sprintf("product-pricing:%s:%s", companyId, productId)
}

// FetchProductPricing reads the pricing snapshot for one product, through the
// Redis cache when it is connected. Unknown products surface RecordNotFound.
func FetchProductPricing(ctx context.Context, companyId string, productId string) (*ProductPricing, error) {
	cacheKey := productPricingCacheKey(companyId, productId)

	var cached ProductPricing
	found, err := config.GetRedisObject(cacheKey, &cached)
	if err != nil {
		config.LogError(config.GetLogger(), "models", "FetchProductPricing", "read pricing cache", cacheKey, err)
	}
	if found {
		return &cached, nil
	}

	product, err := utils.FetchModel[Product](ctx, companyId, productId)
	if err != nil {
		return nil, err
	}

	pricing := ProductPricing{
		ProductId:     product.ID,
		Name:          product.Name,
		SalePrice:     product.SalePrice,
		PurchasePrice: product.PurchasePrice,
		ReorderLevel:  product.ReorderLevel,
	}
	if err := config.SetRedisObject(cacheKey, pricing, productPricingCacheLifetime); err != nil {
		config.LogError(config.GetLogger(), "models", "FetchProductPricing", "write pricing cache", cacheKey, err)
	}
	return &pricing, nil
}

// ResolveUnitPrice answers what one unit of the product costs in the given
// direction: the sale price when stock moves out, the purchase cost when it
// moves in.
func ResolveUnitPrice(ctx context.Context, companyId string, productId string, direction TransactionDirection) (decimal.Decimal, error) {
	pricing, err := FetchProductPricing(ctx, companyId, productId)
	if err != nil {
		return decimal.Zero, err
	}
	if direction == TransactionDirectionSale {
		return pricing.SalePrice, nil
	}
	return pricing.PurchasePrice, nil
}
