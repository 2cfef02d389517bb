package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"gorm.io/gorm"
)

type User struct {
	ID        int       `gorm:"primary_key" json:"id"`
	CompanyId string    `gorm:"type:char(36);index;not null" json:"company_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Email     string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Password  string    `gorm:"size:255;not null" json:"-"`
	Role      string    `gorm:"size:50;default:'staff'" json:"role"`
	IsActive  *bool     `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewUser struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Role     string `json:"role"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func CreateUser(ctx context.Context, companyId string, input *NewUser) (*User, error) {
	if !utils.IsValidEmail(input.Email) {
		return nil, newValidationError("invalid email")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	role := input.Role
	if role == "" {
		role = "staff"
	}

	user := User{
		CompanyId: companyId,
		Name:      input.Name,
		Email:     input.Email,
		Password:  string(hashed),
		Role:      role,
		IsActive:  utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Login checks the credential and mints a bearer token whose claims carry
// the user's company scope.
func Login(ctx context.Context, input *LoginInput) (string, error) {
	db := config.GetDB()

	var user User
	err := db.WithContext(ctx).First(&user, "email = ?", input.Email).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", errors.New("invalid email or password")
	}
	if err != nil {
		return "", err
	}
	if user.IsActive != nil && !*user.IsActive {
		return "", errors.New("user is inactive")
	}

	if err := utils.ComparePassword(user.Password, input.Password); err != nil {
		return "", errors.New("invalid email or password")
	}

	return utils.JwtGenerate(user.ID, user.CompanyId, user.Role)
}
