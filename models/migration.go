package models

import (
	"log"

	"bitbucket.org/mmdatafocus/retail_backend/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Company{}, &Store{}, &User{},
		&Customer{}, &Supplier{},
		&Currency{}, &PaymentMode{},
		&Product{}, &Inventory{},
		&Sale{}, &SaleItem{}, &Purchase{}, &PurchaseItem{},
		&Receivable{}, &Payable{},
		&StockAlertRecord{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
