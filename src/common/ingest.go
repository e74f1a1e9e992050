package common

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
	"tixcore/src/db"
	"tixcore/src/lib"
	"tixcore/src/models"
	"tixcore/src/types"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/tidwall/gjson"
	"gorm.io/gorm"
)

var (
	ErrUnmappedStatus      = errors.New("gateway status has no internal mapping")
	errDuplicateCompletion = errors.New("transaction already completed")
)

// verifyNotification is swappable so tests can stub the gateway's
// server-to-server verification call.
var verifyNotification = lib.VerifyNotification

// MapGatewayStatus maps a verified gateway status plus fraud flag to exactly
// one internal transaction status. Unmapped combinations fail closed instead
// of leaving the order pending indefinitely.
func MapGatewayStatus(transactionStatus, fraudStatus string) (types.TransactionStatus, error) {
	switch transactionStatus {
	case "capture":
		switch fraudStatus {
		case "accept":
			return types.TRANSACTION_COMPLETED, nil
		case "challenge":
			return types.TRANSACTION_PENDING, nil
		case "deny":
			return types.TRANSACTION_CANCELLED, nil
		}
		return "", fmt.Errorf("%w: capture with fraud_status=%q", ErrUnmappedStatus, fraudStatus)
	case "settlement":
		return types.TRANSACTION_COMPLETED, nil
	case "pending":
		return types.TRANSACTION_PENDING, nil
	case "deny", "cancel", "expire":
		return types.TRANSACTION_CANCELLED, nil
	case "failure":
		return types.TRANSACTION_FAILED, nil
	}
	return "", fmt.Errorf("%w: transaction_status=%q", ErrUnmappedStatus, transactionStatus)
}

// IngestOutcome reports what a webhook delivery did.
type IngestOutcome struct {
	OrderID   string                  `json:"order_id"`
	Status    types.TransactionStatus `json:"status"`
	Duplicate bool                    `json:"duplicate"`
	Reconcile bool                    `json:"reconcile"`
}

// ProcessGatewayNotification drives the full webhook pipeline: audit log,
// server-to-server verification, status mapping, and, on a confirmed
// payment, the single atomic unit of stock decrement, ticket issuance and
// fee persistence. Returns an outcome, the HTTP status owed to the gateway,
// and an error. Non-2xx statuses make the gateway redeliver, so every path
// here must pick its status deliberately.
func ProcessGatewayNotification(payload []byte) (*IngestOutcome, int, error) {
	if !gjson.ValidBytes(payload) {
		return nil, http.StatusBadRequest, errors.New("request body is not valid JSON")
	}
	orderId := gjson.GetBytes(payload, "order_id").String()
	if orderId == "" {
		return nil, http.StatusBadRequest, errors.New("missing order_id in notification")
	}

	// The raw payload goes to the audit log before anything else so the
	// trail survives a crash mid-pipeline.
	gdb := db.GetDb()
	logEntry := models.WebhookLogEntry{
		OrderID:    orderId,
		RawPayload: string(payload),
	}
	if err := gdb.Create(&logEntry).Error; err != nil {
		log.Printf("[Webhook] Error writing log entry for order %s: %s\n", orderId, err.Error())
		return nil, http.StatusInternalServerError, err
	}

	st, err := verifyNotification(orderId)
	if err != nil {
		log.Printf("[Webhook] SECURITY: verification failed for order %s: %s\n", orderId, err.Error())
		markLogError(logEntry.ID, err)
		return nil, http.StatusUnauthorized, err
	}

	mapped, err := MapGatewayStatus(st.TransactionStatus, st.FraudStatus)
	if err != nil {
		log.Printf("[Webhook] %s\n", err.Error())
		markLogError(logEntry.ID, err)
		return nil, http.StatusBadRequest, err
	}

	var txn models.Transaction
	if err := gdb.
		Model(&models.Transaction{}).
		Where(&models.Transaction{ExternalOrderID: orderId}).
		First(&txn).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err := fmt.Errorf("no transaction found for order %s", orderId)
			log.Printf("[Webhook] %s\n", err.Error())
			markLogError(logEntry.ID, err)
			return nil, http.StatusNotFound, err
		}
		markLogError(logEntry.ID, err)
		return nil, http.StatusInternalServerError, err
	}

	outcome := &IngestOutcome{OrderID: orderId, Status: mapped}
	switch mapped {
	case types.TRANSACTION_PENDING:
		// Nothing to transition; record gateway metadata only.
		if err := applyGatewayMetadata(gdb, &txn, st, logEntry.ID); err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return outcome, http.StatusOK, nil

	case types.TRANSACTION_CANCELLED, types.TRANSACTION_FAILED:
		if err := applyTerminalStatus(gdb, &txn, st, mapped, logEntry.ID); err != nil {
			return nil, http.StatusInternalServerError, err
		}
		return outcome, http.StatusOK, nil
	}

	// Confirmed payment.
	if txn.Status == types.TRANSACTION_COMPLETED {
		// Duplicate delivery: non-critical metadata only, still a success
		// so the gateway stops redelivering.
		log.Printf("[Webhook] Duplicate completion for order %s, skipping stock and tickets\n", orderId)
		if err := applyGatewayMetadata(gdb, &txn, st, logEntry.ID); err != nil {
			return nil, http.StatusInternalServerError, err
		}
		outcome.Duplicate = true
		return outcome, http.StatusOK, nil
	}

	err = completeTransaction(gdb, &txn, st, logEntry.ID)
	if errors.Is(err, errDuplicateCompletion) {
		// Lost the race against a concurrent delivery of the same webhook.
		outcome.Duplicate = true
		markLogProcessed(logEntry.ID)
		return outcome, http.StatusOK, nil
	}
	if errors.Is(err, ErrInventoryRace) {
		// Fatal for this order. Flag it outside the rolled-back unit and
		// answer definitively so the gateway's retries stop.
		log.Printf("[Webhook] Inventory race on order %s, flagging for reconciliation\n", orderId)
		flagForReconciliation(txn.ID, "completed payment with no remaining stock")
		markLogError(logEntry.ID, err)
		outcome.Reconcile = true
		return outcome, http.StatusOK, nil
	}
	if err != nil {
		log.Printf("[Webhook] Error completing order %s: %s\n", orderId, err.Error())
		markLogError(logEntry.ID, err)
		return nil, http.StatusInternalServerError, err
	}

	// The durable notification rows committed with the transaction; the
	// broker message is only a nudge, the retry sweep covers a miss.
	go NudgePartnerDispatch()
	go invalidateEventCache(txn.EventID)
	return outcome, http.StatusOK, nil
}

// completeTransaction is the atomic unit behind a confirmed payment:
// conditional pending→completed flip, stock decrement, ticket issuance, fee
// persistence, audit-log update and partner-notification enqueue. Any error
// rolls the whole unit back.
func completeTransaction(gdb *gorm.DB, txn *models.Transaction, st *coreapi.TransactionStatusResponse, logId uint) error {
	fees, err := CalculateFees(txn.GrossAmount, st.PaymentType)
	if err != nil {
		return err
	}
	now := time.Now()
	return gdb.Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&models.Transaction{}).
			Where("id = ? AND status <> ?", txn.ID, types.TRANSACTION_COMPLETED).
			Updates(&models.Transaction{
				Status:               types.TRANSACTION_COMPLETED,
				GatewayTransactionID: &st.TransactionID,
				PaymentMethod:        &st.PaymentType,
				CompletedAt:          &now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errDuplicateCompletion
		}
		if err := DecrementStock(tx, txn.EventID, txn.Quantity); err != nil {
			return err
		}
		if _, err := IssueTickets(tx, txn); err != nil {
			return err
		}
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ?", txn.ID).
			Updates(map[string]any{
				"fee_breakdown": types.JSONB{
					"gateway_fee":  fees.GatewayFee,
					"platform_fee": fees.PlatformFee,
					"total_fee":    fees.TotalFee,
					"breakdown":    fees.Breakdown,
				},
				"net_amount": fees.NetAmount,
			}).
			Error; err != nil {
			return err
		}
		if err := tx.
			Model(&models.WebhookLogEntry{}).
			Where("id = ?", logId).
			Update("processed", true).
			Error; err != nil {
			return err
		}
		return EnqueuePartnerEvent(tx, "payment.completed", types.JSONB{
			"order_id":     txn.ExternalOrderID,
			"event_id":     txn.EventID,
			"buyer_id":     txn.BuyerID,
			"quantity":     txn.Quantity,
			"gross_amount": txn.GrossAmount,
			"net_amount":   fees.NetAmount,
		})
	})
}

func applyGatewayMetadata(gdb *gorm.DB, txn *models.Transaction, st *coreapi.TransactionStatusResponse, logId uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ?", txn.ID).
			Updates(&models.Transaction{
				GatewayTransactionID: &st.TransactionID,
				PaymentMethod:        &st.PaymentType,
			}).
			Error; err != nil {
			return err
		}
		return tx.
			Model(&models.WebhookLogEntry{}).
			Where("id = ?", logId).
			Update("processed", true).
			Error
	})
}

// applyTerminalStatus moves a pending order to cancelled or failed. The
// conditional filter keeps terminal states monotonic; a zero row count just
// means the order already left pending, which is fine.
func applyTerminalStatus(gdb *gorm.DB, txn *models.Transaction, st *coreapi.TransactionStatusResponse, target types.TransactionStatus, logId uint) error {
	return gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Model(&models.Transaction{}).
			Where("id = ? AND status = ?", txn.ID, types.TRANSACTION_PENDING).
			Updates(&models.Transaction{
				Status:               target,
				GatewayTransactionID: &st.TransactionID,
				PaymentMethod:        &st.PaymentType,
			}).
			Error; err != nil {
			return err
		}
		return tx.
			Model(&models.WebhookLogEntry{}).
			Where("id = ?", logId).
			Update("processed", true).
			Error
	})
}

func flagForReconciliation(txnId uuid.UUID, reason string) {
	gdb := db.GetDb()
	if err := gdb.
		Model(&models.Transaction{}).
		Where("id = ?", txnId).
		Updates(map[string]any{
			"needs_reconciliation": true,
			"reconcile_reason":     reason,
		}).
		Error; err != nil {
		log.Printf("[Webhook] Error flagging transaction %s for reconciliation: %s\n", txnId.String(), err.Error())
	}
}

func markLogProcessed(logId uint) {
	gdb := db.GetDb()
	if err := gdb.
		Model(&models.WebhookLogEntry{}).
		Where("id = ?", logId).
		Update("processed", true).
		Error; err != nil {
		log.Printf("[Webhook] Error marking log entry %d processed: %s\n", logId, err.Error())
	}
}

func markLogError(logId uint, cause error) {
	gdb := db.GetDb()
	msg := cause.Error()
	if err := gdb.
		Model(&models.WebhookLogEntry{}).
		Where("id = ?", logId).
		Update("error_message", &msg).
		Error; err != nil {
		log.Printf("[Webhook] Error recording failure on log entry %d: %s\n", logId, err.Error())
	}
}

func invalidateEventCache(eventId uint) {
	rd := lib.GetRedisClient()
	if rd == nil {
		return
	}
	if err := rd.Del(context.Background(), fmt.Sprintf("event:%d", eventId)).Err(); err != nil {
		log.Printf("[redis] Error invalidating cache for event %d: %s\n", eventId, err.Error())
	}
}
