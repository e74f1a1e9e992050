package common

import (
	"errors"
	"tixcore/src/models"

	"gorm.io/gorm"
)

// ErrInventoryRace means a completed payment found no stock left: the
// conditional decrement matched zero rows. The order must be reconciled
// manually; retrying risks double-issue.
var ErrInventoryRace = errors.New("stock decrement affected no rows")

// DecrementStock subtracts quantity from an event's current_stock in a
// single conditional update. The filter encodes the precondition, so the
// affected-row count is the concurrency guard against overselling; it must
// run inside the same storage transaction as ticket issuance.
func DecrementStock(tx *gorm.DB, eventId uint, quantity uint) error {
	res := tx.
		Model(&models.Event{}).
		Where("id = ? AND current_stock >= ?", eventId, quantity).
		UpdateColumn("current_stock", gorm.Expr("current_stock - ?", quantity))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInventoryRace
	}
	return nil
}
