package common

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
	"tixcore/src/db"
	"tixcore/src/lib"
	"tixcore/src/models"
	"tixcore/src/types"

	"gorm.io/gorm"
)

const (
	partnerNotificationsTopic = "partner-notifications"
	defaultMaxRetries         = 3
	retryWindow               = 24 * time.Hour
	retrySpacing              = 10 * time.Minute
	dispatchTimeout           = 10 * time.Second
)

// webhookClient delivers outbound partner webhooks. The bounded timeout
// keeps a slow partner from ever backing up into the gateway response path.
var webhookClient = &http.Client{Timeout: dispatchTimeout}

func NewWebhookClient(c *http.Client) *http.Client {
	webhookClient = c
	return webhookClient
}

func partnerMaxRetries() uint {
	if v := os.Getenv("PARTNER_WEBHOOK_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return uint(n)
		}
	}
	return defaultMaxRetries
}

// SignPayload computes the hex HMAC-SHA256 of a webhook body under the
// partner's shared secret.
func SignPayload(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// EnqueuePartnerEvent records one pending delivery per active partner. It
// runs inside the caller's storage transaction, so the retry state commits
// or rolls back together with the business change that triggered it.
func EnqueuePartnerEvent(tx *gorm.DB, eventType string, data types.JSONB) error {
	var partners []models.Partner
	if err := tx.
		Model(&models.Partner{}).
		Where(&models.Partner{Active: true}).
		Find(&partners).
		Error; err != nil {
		return err
	}
	if len(partners) == 0 {
		return nil
	}
	entries := make([]models.PartnerWebhookLogEntry, 0, len(partners))
	for _, p := range partners {
		entries = append(entries, models.PartnerWebhookLogEntry{
			PartnerID: p.ID,
			EventType: eventType,
			Payload:   data,
		})
	}
	return tx.Create(&entries).Error
}

// NudgePartnerDispatch tells the dispatch consumer that new notifications
// were enqueued. Best-effort: the retry sweep picks up anything a lost
// message leaves behind.
func NudgePartnerDispatch() {
	if err := lib.KafkaProduceMessage("partner_notifier", partnerNotificationsTopic, map[string]any{
		"source": "notifier",
		"at":     time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Printf("[Notifier] Error producing dispatch nudge: %s\n", err.Error())
	}
}

// PartnerNotificationsConsumer drains the dispatch topic and drives pending
// deliveries. Run it once per process from boot.
func PartnerNotificationsConsumer() {
	lib.KafkaConsumeLoop("partner_notifier", []string{partnerNotificationsTopic}, func(value []byte) {
		if err := DispatchPendingNotifications(); err != nil {
			log.Printf("[Notifier] Dispatch run failed: %s\n", err.Error())
		}
	})
}

// DispatchPendingNotifications attempts every undelivered entry that still
// has retries left inside the 24h window, skipping entries retried too
// recently. Also the body of the scheduled retry sweep, so retries survive
// process restarts.
func DispatchPendingNotifications() error {
	gdb := db.GetDb()
	maxRetries := partnerMaxRetries()
	cutoff := time.Now().Add(-retryWindow)
	spacing := time.Now().Add(-retrySpacing)

	var entries []models.PartnerWebhookLogEntry
	if err := gdb.
		Model(&models.PartnerWebhookLogEntry{}).
		Where("success = ? AND retry_count < ? AND created_at > ?", false, maxRetries, cutoff).
		Where("last_retry_at IS NULL OR last_retry_at < ?", spacing).
		Order("created_at asc").
		Limit(100).
		Find(&entries).
		Error; err != nil {
		return err
	}
	for i := range entries {
		entry := &entries[i]
		var partner models.Partner
		if err := gdb.
			Model(&models.Partner{}).
			Where("id = ?", entry.PartnerID).
			First(&partner).
			Error; err != nil {
			log.Printf("[Notifier] Error loading partner %d: %s\n", entry.PartnerID, err.Error())
			continue
		}
		if err := DispatchNotification(gdb, &partner, entry); err != nil {
			log.Printf("[Notifier] Delivery to partner %d failed: %s\n", partner.ID, err.Error())
		}
	}
	return nil
}

// DispatchNotification performs one delivery attempt and records it on the
// log entry. A non-2xx response or transport error counts as a failed
// attempt; the sweep decides whether another one happens.
func DispatchNotification(gdb *gorm.DB, partner *models.Partner, entry *models.PartnerWebhookLogEntry) error {
	now := time.Now().UTC()
	body, err := json.Marshal(map[string]any{
		"event":     entry.EventType,
		"timestamp": now.Format(time.RFC3339),
		"data":      map[string]any(entry.Payload),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, partner.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tixcore-Timestamp", now.Format(time.RFC3339))
	if partner.Secret != "" {
		req.Header.Set("X-Tixcore-Signature", SignPayload(partner.Secret, body))
	}

	// Every attempt counts against the cap, the first one included, so a
	// dead partner gets exactly maxRetries deliveries.
	updates := map[string]any{
		"last_retry_at": &now,
		"retry_count":   gorm.Expr("retry_count + 1"),
	}

	resp, err := webhookClient.Do(req)
	if err != nil {
		msg := err.Error()
		updates["last_error"] = &msg
		if uerr := gdb.
			Model(&models.PartnerWebhookLogEntry{}).
			Where("id = ?", entry.ID).
			Updates(updates).
			Error; uerr != nil {
			log.Printf("[Notifier] Error recording attempt on entry %d: %s\n", entry.ID, uerr.Error())
		}
		return err
	}
	defer resp.Body.Close()

	updates["response_status"] = &resp.StatusCode
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		updates["success"] = true
	} else {
		msg := fmt.Sprintf("partner responded with status %d", resp.StatusCode)
		updates["last_error"] = &msg
	}
	if uerr := gdb.
		Model(&models.PartnerWebhookLogEntry{}).
		Where("id = ?", entry.ID).
		Updates(updates).
		Error; uerr != nil {
		log.Printf("[Notifier] Error recording attempt on entry %d: %s\n", entry.ID, uerr.Error())
		return uerr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("partner %d responded with status %d", partner.ID, resp.StatusCode)
	}
	return nil
}
