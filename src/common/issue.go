package common

import (
	"fmt"
	"tixcore/src/models"
	"tixcore/src/types"

	"gorm.io/gorm"
)

// TicketCode builds the code for the n-th ticket of an order (1-based).
func TicketCode(orderId string, seq uint) string {
	return fmt.Sprintf("%s-%d", orderId, seq)
}

// IssueTickets creates exactly transaction.Quantity active tickets for a
// freshly completed transaction. It must run inside the same storage
// transaction as the completed-status write; the unique index on
// unique_code backs up the idempotency guard at the storage level.
func IssueTickets(tx *gorm.DB, txn *models.Transaction) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0, txn.Quantity)
	for i := uint(1); i <= txn.Quantity; i++ {
		tickets = append(tickets, models.Ticket{
			TransactionID: txn.ID,
			EventID:       txn.EventID,
			HolderID:      txn.BuyerID,
			UniqueCode:    TicketCode(txn.ExternalOrderID, i),
			Status:        types.TICKET_ACTIVE,
		})
	}
	if err := tx.Create(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}
