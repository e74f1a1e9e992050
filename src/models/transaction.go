package models

import (
	"time"
	"tixcore/src/types"

	"github.com/google/uuid"
)

type Transaction struct {
	ID uuid.UUID `gorm:"primarykey;type:uuid;default:gen_random_uuid()" json:"id"`

	// ExternalOrderID is the idempotency key shared with the payment gateway.
	ExternalOrderID      string                  `gorm:"uniqueIndex" json:"order_id"`
	BuyerID              uint                    `json:"buyer_id"`
	EventID              uint                    `json:"event_id"`
	Quantity             uint                    `json:"quantity"`
	UnitPrice            int64                   `json:"unit_price"`
	GrossAmount          int64                   `json:"gross_amount"`
	FeeBreakdown         types.JSONB             `gorm:"type:jsonb" json:"fee_breakdown,omitempty"`
	NetAmount            int64                   `json:"net_amount"`
	Status               types.TransactionStatus `gorm:"default:'pending'" json:"status"`
	GatewayTransactionID *string                 `json:"gateway_transaction_id,omitempty"`
	PaymentMethod        *string                 `json:"payment_method,omitempty"`
	ExpiresAt            time.Time               `json:"expires_at"`
	CompletedAt          *time.Time              `json:"completed_at,omitempty"`
	NeedsReconciliation  bool                    `gorm:"default:false" json:"needs_reconciliation"`
	ReconcileReason      *string                 `json:"reconcile_reason,omitempty"`
	Metadata             types.JSONB             `gorm:"type:jsonb" json:"metadata,omitempty"`

	Buyer   User     `gorm:"foreignKey:buyer_id" json:"-"`
	Event   Event    `gorm:"foreignKey:event_id" json:"-"`
	Tickets []Ticket `gorm:"constraint:OnDelete:CASCADE" json:"tickets,omitempty"`

	types.Timestamps
}
