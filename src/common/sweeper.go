package common

import (
	"log"
	"time"
	"tixcore/src/db"
	"tixcore/src/models"
	"tixcore/src/types"

	"gorm.io/gorm"
)

// ExpireStaleTransactions bulk-transitions every pending transaction whose
// expiry has passed. One conditional statement, idempotent, touches no
// inventory: nothing was reserved at checkout time, so nothing is released.
func ExpireStaleTransactions() (int64, error) {
	gdb := db.GetDb()
	var rows int64
	err := gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Transaction{}).
			Where("status = ? AND expires_at < ?", types.TRANSACTION_PENDING, time.Now()).
			Update("status", types.TRANSACTION_EXPIRED)
		if res.Error != nil {
			return res.Error
		}
		rows = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	if rows > 0 {
		log.Printf("[Sweeper] Expired %d stale pending transactions\n", rows)
	}
	return rows, nil
}

// RetryPartnerWebhooks is the sweep-triggered retry path for failed partner
// deliveries.
func RetryPartnerWebhooks() {
	if err := DispatchPendingNotifications(); err != nil {
		log.Printf("[Sweeper] Partner webhook retry run failed: %s\n", err.Error())
	}
}
