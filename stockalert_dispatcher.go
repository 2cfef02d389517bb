package main

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/retail_backend/config"
	"bitbucket.org/mmdatafocus/retail_backend/models"
	"github.com/bsm/redislock"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const stockAlertDispatchLockKey = "lock:stock-alert-dispatcher"

// StockAlertDispatcher drains the stock-alert outbox: rows are claimed with
// SKIP LOCKED, published to Pub/Sub and marked, with exponential backoff on
// failure. A redis lock keeps multiple replicas from draining concurrently;
// the DB row locks make the claim safe even without it.
type StockAlertDispatcher struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	WorkerID  string
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewStockAlertDispatcher(db *gorm.DB, logger *logrus.Logger) *StockAlertDispatcher {
	return &StockAlertDispatcher{
		DB:        db,
		Logger:    logger,
		WorkerID:  "dispatcher-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  2 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

func (d *StockAlertDispatcher) Run(ctx context.Context) {
	if d == nil || d.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.dispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.Interval):
		}
	}
}

func (d *StockAlertDispatcher) dispatchOnce(ctx context.Context) {
	// Best-effort single-flight across replicas.
	var lock *redislock.Lock
	if locker := config.GetRedisLock(); locker != nil {
		var err error
		lock, err = locker.Obtain(ctx, stockAlertDispatchLockKey, d.LockTTL, nil)
		if err == redislock.ErrNotObtained {
			return
		}
		if err != nil {
			// Redis trouble must not stop dispatching; the SKIP LOCKED claim
			// below is still safe.
			lock = nil
		}
	}
	defer func() {
		if lock != nil {
			_ = lock.Release(ctx)
		}
	}()

	now := time.Now().UTC()
	staleBefore := now.Add(-d.LockTTL)

	var claimed []models.StockAlertRecord
	err := d.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("publish_status IN ?", []models.StockAlertPublishStatus{
				models.StockAlertPublishStatusPending,
				models.StockAlertPublishStatusFailed,
			}).
			Where("(next_attempt_at IS NULL OR next_attempt_at <= ?)", now).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("id ASC").
			Limit(d.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		if len(claimed) == 0 {
			return nil
		}
		for i := range claimed {
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.WorkerID
			if err := tx.Model(&models.StockAlertRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": claimed[i].LockedAt,
					"locked_by": claimed[i].LockedBy,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil || len(claimed) == 0 {
		return
	}

	for _, rec := range claimed {
		msg := models.ConvertToStockAlertMessage(rec)
		messageId, err := config.PublishStockAlert(ctx, msg)
		if err != nil {
			d.markFailed(ctx, rec, err)
			continue
		}
		d.markPublished(ctx, rec, messageId)
	}
}

func (d *StockAlertDispatcher) markPublished(ctx context.Context, rec models.StockAlertRecord, messageId string) {
	now := time.Now().UTC()
	_ = d.DB.WithContext(ctx).Model(&models.StockAlertRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"publish_status":     models.StockAlertPublishStatusPublished,
			"published_at":       &now,
			"pub_sub_message_id": &messageId,
			"publish_attempts":   gorm.Expr("publish_attempts + 1"),
			"last_publish_error": nil,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error
}

func (d *StockAlertDispatcher) markFailed(ctx context.Context, rec models.StockAlertRecord, cause error) {
	attempts := rec.PublishAttempts + 1
	backoff := time.Duration(1<<min(attempts, 8)) * time.Second
	nextAttempt := time.Now().UTC().Add(backoff)
	errMsg := cause.Error()

	_ = d.DB.WithContext(ctx).Model(&models.StockAlertRecord{}).
		Where("id = ?", rec.ID).
		Updates(map[string]interface{}{
			"publish_status":     models.StockAlertPublishStatusFailed,
			"publish_attempts":   attempts,
			"next_attempt_at":    &nextAttempt,
			"last_publish_error": &errMsg,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error

	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"field":      "StockAlertDispatcher",
			"company_id": rec.CompanyId,
			"product_id": rec.ProductId,
			"record_id":  rec.ID,
			"attempts":   attempts,
		}).Error("stock alert publish failed: " + errMsg)
	}
}
