package common

import (
	"errors"
	"fmt"
	"log"
	"time"
	"tixcore/src/db"
	"tixcore/src/lib"
	"tixcore/src/models"
	"tixcore/src/types"

	"gorm.io/gorm"
)

type ScanErrorKind string

const (
	ScanNotFound        ScanErrorKind = "NotFound"
	ScanAlreadyUsed     ScanErrorKind = "AlreadyUsed"
	ScanNotAuthorized   ScanErrorKind = "NotAuthorized"
	ScanEventNotStarted ScanErrorKind = "EventNotStarted"
)

// ScanError is a typed scan rejection; callers branch on Kind.
type ScanError struct {
	Kind    ScanErrorKind
	Message string
}

func (e *ScanError) Error() string {
	return e.Message
}

func scanError(kind ScanErrorKind, format string, args ...any) *ScanError {
	return &ScanError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// notifyScan emits the best-effort realtime events after a scan attempt.
// Swappable so tests don't hit the pusher API.
var notifyScan = pusherScanNotification

// ScanWindowOpen reports whether admission scanning is allowed at the given
// instant: from one calendar day before the event date onward.
func ScanWindowOpen(eventDate, now time.Time) bool {
	opens := time.Date(
		eventDate.Year(),
		eventDate.Month(),
		eventDate.Day()-1,
		0, 0, 0, 0,
		eventDate.Location(),
	)
	return !now.Before(opens)
}

// ScanTicket validates one admission attempt. The active→used flip is a
// single conditional update; its affected-row count is the sole arbiter of
// which concurrent scanner won, so a double scan yields exactly one success.
func ScanTicket(code string, scannerId uint, scannerRole string, scannerOrg uint) (*models.Ticket, error) {
	gdb := db.GetDb()

	var ticket models.Ticket
	if err := gdb.
		Model(&models.Ticket{}).
		Where(&models.Ticket{UniqueCode: code}).
		Preload("Event").
		First(&ticket).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, scanError(ScanNotFound, "no ticket found for code %s", code)
		}
		return nil, err
	}

	if scannerRole != "admin" && ticket.Event.OrganizerID != scannerOrg {
		return nil, scanError(ScanNotAuthorized, "scanner is not authorized for this event")
	}
	if !ScanWindowOpen(ticket.Event.DateTime, time.Now()) {
		return nil, scanError(ScanEventNotStarted, "admission opens one day before the event")
	}
	if ticket.Status == types.TICKET_CANCELLED {
		return nil, scanError(ScanNotFound, "ticket %s has been cancelled", code)
	}

	now := time.Now()
	res := gdb.
		Model(&models.Ticket{}).
		Where("unique_code = ? AND status = ?", code, types.TICKET_ACTIVE).
		Updates(map[string]any{
			"status":     types.TICKET_USED,
			"scanned_at": &now,
			"scanned_by": &scannerId,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// Another scanner won the race, or the ticket was already used.
		var current models.Ticket
		if err := gdb.
			Model(&models.Ticket{}).
			Where(&models.Ticket{UniqueCode: code}).
			First(&current).
			Error; err == nil && current.Status == types.TICKET_USED {
			go notifyScan("duplicate-scan", &current)
			return nil, scanError(ScanAlreadyUsed, "ticket %s was already scanned", code)
		}
		return nil, scanError(ScanNotFound, "ticket %s is not scannable", code)
	}

	ticket.Status = types.TICKET_USED
	ticket.ScannedAt = &now
	ticket.ScannedBy = &scannerId
	go notifyScan("ticket-scanned", &ticket)
	return &ticket, nil
}

// pusherScanNotification fans scan outcomes out to the event channel and,
// on success, the holder's own channel. No delivery guarantee; failures are
// only logged.
func pusherScanNotification(event string, ticket *models.Ticket) {
	pc := lib.GetPusherClient()
	data := map[string]any{
		"code":       ticket.UniqueCode,
		"event_id":   ticket.EventID,
		"scanned_at": ticket.ScannedAt,
	}
	channel := fmt.Sprintf("event-%d", ticket.EventID)
	if err := pc.Trigger(channel, event, data); err != nil {
		log.Printf("[Pusher] Error on channel %s: %s\n", channel, err.Error())
	}
	if event != "ticket-scanned" {
		return
	}
	holder := fmt.Sprintf("user-%d", ticket.HolderID)
	if err := pc.Trigger(holder, "your-ticket-scanned", data); err != nil {
		log.Printf("[Pusher] Error on channel %s: %s\n", holder, err.Error())
	}
}
