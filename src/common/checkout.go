package common

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
	"tixcore/src/config"
	"tixcore/src/db"
	"tixcore/src/lib"
	"tixcore/src/models"
	"tixcore/src/types"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNotOnSale    = errors.New("event is not open for sale")
	ErrEventInThePast    = errors.New("event date has already passed")
	ErrInsufficientStock = errors.New("not enough stock for the requested quantity")
)

type CheckoutResult struct {
	OrderID       string    `json:"order_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	PaymentToken  string    `json:"payment_token"`
	RedirectURL   string    `json:"redirect_url"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// NewOrderID mints the external order id shared with the gateway; it doubles
// as the prefix of every ticket code issued for the order. 64 bits of the
// UUID keep collisions out of reach at realistic order volumes.
func NewOrderID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(fmt.Sprintf("TIX-%s", raw[:16]))
}

// CreateCheckout performs a point-in-time stock and date check and creates a
// pending transaction with a payment token. Deliberately does NOT reserve
// stock: the decrement happens only on confirmed payment, trading a small
// oversell window for not needing a reserve/timeout/release cycle.
func CreateCheckout(eventId uint, quantity uint, buyerId uint) (*CheckoutResult, error) {
	gdb := db.GetDb()

	event, err := lookupEvent(gdb, eventId)
	if err != nil {
		return nil, err
	}
	if event.Status != types.EVENT_PUBLISHED {
		return nil, ErrEventNotOnSale
	}
	if time.Now().After(event.DateTime) {
		return nil, ErrEventInThePast
	}

	// Fresh stock read; the cached copy may lag behind completions.
	var currentStock uint
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", eventId).
		Select("current_stock").
		Scan(&currentStock).
		Error; err != nil {
		return nil, err
	}
	if currentStock < quantity {
		return nil, ErrInsufficientStock
	}

	var buyer models.User
	if err := gdb.
		Model(&models.User{}).
		Where(&models.User{ID: buyerId}).
		First(&buyer).
		Error; err != nil {
		return nil, err
	}

	orderId := NewOrderID()
	gross := event.Price * int64(quantity)
	expiresAt := time.Now().Add(config.CheckoutWindowHours * time.Hour)
	txn := models.Transaction{
		ExternalOrderID: orderId,
		BuyerID:         buyerId,
		EventID:         eventId,
		Quantity:        quantity,
		UnitPrice:       event.Price,
		GrossAmount:     gross,
		Status:          types.TRANSACTION_PENDING,
		ExpiresAt:       expiresAt,
	}
	if err := gdb.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&txn).Error
	}); err != nil {
		return nil, err
	}

	snapResp, err := lib.CreateSnapToken(orderId, gross, buyer.Name, buyer.Email)
	if err != nil {
		// The pending row stays; the expiry sweep reclaims it if the buyer
		// never gets a second chance to pay.
		log.Printf("[Checkout] Error creating payment token for order %s: %s\n", orderId, err.Error())
		return nil, err
	}

	return &CheckoutResult{
		OrderID:       orderId,
		TransactionID: txn.ID,
		PaymentToken:  snapResp.Token,
		RedirectURL:   snapResp.RedirectURL,
		ExpiresAt:     expiresAt,
	}, nil
}

// lookupEvent reads the event through the shared redis cache, falling back
// to the database and repopulating on a miss.
func lookupEvent(gdb *gorm.DB, eventId uint) (*models.Event, error) {
	cacheKey := fmt.Sprintf("event:%d", eventId)
	if rd := lib.GetRedisClient(); rd != nil {
		if res := rd.JSONGet(context.Background(), cacheKey).Val(); res != "" {
			var cached models.Event
			if err := json.Unmarshal([]byte(res), &cached); err == nil && cached.ID == eventId {
				return &cached, nil
			}
		}
	}
	var event models.Event
	if err := gdb.
		Model(&models.Event{}).
		Where("id = ?", eventId).
		First(&event).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	go func() {
		if rd := lib.GetRedisClient(); rd != nil {
			if _, err := rd.JSONSet(context.Background(), cacheKey, "$", &event).Result(); err != nil {
				log.Printf("[redis] Error caching event %d: %s\n", eventId, err.Error())
			}
		}
	}()
	return &event, nil
}
