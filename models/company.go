package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Company struct {
	ID        string    `gorm:"type:char(36);primary_key" json:"id"`
	Name      string    `gorm:"index;size:255;not null" json:"name" binding:"required"`
	Email     string    `gorm:"size:255;uniqueIndex" json:"email" binding:"required"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCompany struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"required,email"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

func CreateCompany(ctx context.Context, input *NewCompany) (*Company, error) {
	if !utils.IsValidEmail(input.Email) {
		return nil, newValidationError("invalid email")
	}

	company := Company{
		Name:     input.Name,
		Email:    input.Email,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

func GetCompanyById(ctx context.Context, id string) (*Company, error) {
	return utils.FetchSingleModel[Company](ctx, id)
}

func companyIdFromContext(ctx context.Context) (string, error) {
	companyId, ok := utils.GetCompanyIdFromContext(ctx)
	if !ok || companyId == "" {
		return "", errors.New("company id is required")
	}
	return companyId, nil
}
