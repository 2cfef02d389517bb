package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Currency struct {
	ID        string    `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId string    `gorm:"type:char(36);index;not null" json:"company_id"`
	Code      string    `gorm:"size:3;not null" json:"code" binding:"required"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCurrency struct {
	Code string `json:"code" binding:"required,len=3"`
	Name string `json:"name" binding:"required"`
}

func (c *Currency) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func CreateCurrency(ctx context.Context, input *NewCurrency) (*Currency, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Currency](ctx, companyId, "code", input.Code, ""); err != nil {
		return nil, err
	}

	currency := Currency{
		CompanyId: companyId,
		Code:      input.Code,
		Name:      input.Name,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&currency).Error; err != nil {
		return nil, err
	}
	return &currency, nil
}

func GetCurrencies(ctx context.Context) ([]*Currency, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Currency](ctx, companyId)
}
