package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentMode struct {
	ID          string    `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId   string    `gorm:"type:char(36);index;not null" json:"company_id"`
	Name        string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPaymentMode struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (p *PaymentMode) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

func CreatePaymentMode(ctx context.Context, input *NewPaymentMode) (*PaymentMode, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[PaymentMode](ctx, companyId, "name", input.Name, ""); err != nil {
		return nil, err
	}

	paymentMode := PaymentMode{
		CompanyId:   companyId,
		Name:        input.Name,
		Description: input.Description,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&paymentMode).Error; err != nil {
		return nil, err
	}
	return &paymentMode, nil
}

func GetPaymentModes(ctx context.Context) ([]*PaymentMode, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[PaymentMode](ctx, companyId)
}
