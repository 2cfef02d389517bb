// seed-demo provisions a demo company with a store, a few products and an
// admin user, then prints a bearer token for exercising the API.
//
// Usage (from the backend directory):
//
//	DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-demo
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"bitbucket.org/mmdatafocus/retail_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	demoCompanyName  = "Demo Retail Co"
	demoCompanyEmail = "demo@retail.local"
	demoUserEmail    = "admin@retail.local"
	demoUserPassword = "Retail@Demo1"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	var company models.Company
	err := db.WithContext(ctx).Where("email = ?", demoCompanyEmail).First(&company).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, createErr := models.CreateCompany(ctx, &models.NewCompany{
			Name:  demoCompanyName,
			Email: demoCompanyEmail,
		})
		if createErr != nil {
			fmt.Fprintf(os.Stderr, "failed to create company: %v\n", createErr)
			os.Exit(1)
		}
		company = *created
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup company: %v\n", err)
		os.Exit(1)
	}

	ctx = utils.SetCompanyIdInContext(ctx, company.ID)

	store := seedStore(ctx, db, company.ID, "Main Store")
	seedProduct(ctx, db, company.ID, "Drinking Water 1L", "500", "300", "20")
	seedProduct(ctx, db, company.ID, "Instant Coffee Mix", "3500", "2800", "10")
	seedProduct(ctx, db, company.ID, "Jasmine Rice 5kg", "18000", "15000", "5")

	var user models.User
	err = db.WithContext(ctx).Where("email = ?", demoUserEmail).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		created, createErr := models.CreateUser(ctx, company.ID, &models.NewUser{
			Name:     "Demo Admin",
			Email:    demoUserEmail,
			Password: demoUserPassword,
			Role:     "admin",
		})
		if createErr != nil {
			fmt.Fprintf(os.Stderr, "failed to create user: %v\n", createErr)
			os.Exit(1)
		}
		user = *created
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
		os.Exit(1)
	}

	token, err := utils.JwtGenerate(user.ID, company.ID, user.Role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to mint token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("company_id:", company.ID)
	fmt.Println("store_id:  ", store.ID)
	fmt.Println("login:     ", demoUserEmail, "/", demoUserPassword)
	fmt.Println("token:     ", token)
}

func seedStore(ctx context.Context, db *gorm.DB, companyId string, name string) *models.Store {
	var existing models.Store
	err := db.WithContext(ctx).Where("company_id = ? AND name = ?", companyId, name).First(&existing).Error
	if err == nil {
		return &existing
	}
	store, err := models.CreateStore(ctx, &models.NewStore{Name: name})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed store %q: %v\n", name, err)
		os.Exit(1)
	}
	return store
}

func seedProduct(ctx context.Context, db *gorm.DB, companyId string, name string, salePrice string, purchasePrice string, reorderLevel string) {
	var existing models.Product
	err := db.WithContext(ctx).Where("company_id = ? AND name = ?", companyId, name).First(&existing).Error
	if err == nil {
		return
	}
	_, err = models.CreateProduct(ctx, &models.NewProduct{
		Name:          name,
		SalePrice:     decimal.RequireFromString(salePrice),
		PurchasePrice: decimal.RequireFromString(purchasePrice),
		ReorderLevel:  decimal.RequireFromString(reorderLevel),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to seed product %q: %v\n", name, err)
		os.Exit(1)
	}
}
