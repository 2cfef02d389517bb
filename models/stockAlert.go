package models

import (
	"context"
	"encoding/json"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockAlertRecord is a transactional-outbox row: it is written in the same
// transaction as the stock movement that tripped the reorder level, and a
// background dispatcher publishes it to Pub/Sub after commit. Downstream
// notification (email etc.) lives outside this service.
type StockAlertRecord struct {
	ID           int             `gorm:"primary_key;index:idx_stock_alert_dispatch,priority:3" json:"id"`
	CompanyId    string          `gorm:"type:char(36);index;not null" json:"company_id"`
	StoreId      string          `gorm:"type:char(36);not null" json:"store_id"`
	ProductId    string          `gorm:"type:char(36);not null" json:"product_id"`
	Quantity     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	ReorderLevel decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"reorder_level"`
	Payload      []byte          `gorm:"type:blob" json:"payload"`

	PublishStatus    StockAlertPublishStatus `gorm:"size:20;index;not null;default:'Pending';index:idx_stock_alert_dispatch,priority:1" json:"publish_status"`
	PublishAttempts  int                     `gorm:"not null;default:0" json:"publish_attempts"`
	NextAttemptAt    *time.Time              `gorm:"index;index:idx_stock_alert_dispatch,priority:2" json:"next_attempt_at"`
	LockedAt         *time.Time              `gorm:"index" json:"locked_at"`
	LockedBy         *string                 `gorm:"size:100" json:"locked_by"`
	PublishedAt      *time.Time              `gorm:"index" json:"published_at"`
	PubSubMessageId  *string                 `gorm:"size:255" json:"pubsub_message_id"`
	LastPublishError *string                 `gorm:"type:text" json:"last_publish_error"`
	CorrelationId    string                  `gorm:"size:64;index" json:"correlation_id"`
	CreatedAt        time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

func queueStockAlert(tx *gorm.DB, ctx context.Context, companyId string, storeId string, pricing *ProductPricing, onHand decimal.Decimal, correlationId string) error {
	payload, err := json.Marshal(map[string]interface{}{
		"product_id":    pricing.ProductId,
		"product_name":  pricing.Name,
		"store_id":      storeId,
		"quantity":      onHand,
		"reorder_level": pricing.ReorderLevel,
	})
	if err != nil {
		return err
	}

	record := StockAlertRecord{
		CompanyId:     companyId,
		StoreId:       storeId,
		ProductId:     pricing.ProductId,
		Quantity:      onHand,
		ReorderLevel:  pricing.ReorderLevel,
		Payload:       payload,
		PublishStatus: StockAlertPublishStatusPending,
		CorrelationId: correlationId,
	}
	return tx.WithContext(ctx).Create(&record).Error
}

// ConvertToStockAlertMessage maps an outbox row onto the wire shape the
// dispatcher publishes.
func ConvertToStockAlertMessage(record StockAlertRecord) config.StockAlertMessage {
	return config.StockAlertMessage{
		ID:            record.ID,
		CompanyId:     record.CompanyId,
		StoreId:       record.StoreId,
		ProductId:     record.ProductId,
		Quantity:      record.Quantity.String(),
		ReorderLevel:  record.ReorderLevel.String(),
		OccurredAt:    record.CreatedAt,
		CorrelationId: record.CorrelationId,
		Payload:       record.Payload,
	}
}
