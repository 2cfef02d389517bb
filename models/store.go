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

type Store struct {
	ID        string    `gorm:"type:char(36);primary_key" json:"id"`
	CompanyId string    `gorm:"type:char(36);index;not null" json:"company_id" binding:"required"`
	Name      string    `gorm:"size:255;not null" json:"name" binding:"required"`
	Address   string    `gorm:"type:text" json:"address"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStore struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (s *Store) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

func CreateStore(ctx context.Context, input *NewStore) (*Store, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if err := utils.ValidateUnique[Store](ctx, companyId, "name", input.Name, ""); err != nil {
		return nil, err
	}

	store := Store{
		CompanyId: companyId,
		Name:      input.Name,
		Address:   input.Address,
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&store).Error; err != nil {
		return nil, err
	}
	return &store, nil
}

func GetStore(ctx context.Context, id string) (*Store, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchModel[Store](ctx, companyId, id)
}

func GetStores(ctx context.Context) ([]*Store, error) {
	companyId, err := companyIdFromContext(ctx)
	if err != nil {
		return nil, err
	}
	return utils.FetchAllModels[Store](ctx, companyId)
}

// validate store exists within the caller's company
func validateStoreId(ctx context.Context, companyId string, storeId string) error {
	if err := utils.ValidateResourceId[Store](ctx, companyId, storeId); err != nil {
		return errors.New("store not found")
	}
	return nil
}
