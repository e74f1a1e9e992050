package common

import (
	"errors"
	"net/http"
	"testing"
	"tixcore/src/lib"
	"tixcore/src/types"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/stretchr/testify/assert"
)

func TestMapGatewayStatus(t *testing.T) {
	cases := []struct {
		txStatus    string
		fraudStatus string
		want        types.TransactionStatus
		wantErr     bool
	}{
		{"capture", "accept", types.TRANSACTION_COMPLETED, false},
		{"capture", "challenge", types.TRANSACTION_PENDING, false},
		{"capture", "deny", types.TRANSACTION_CANCELLED, false},
		{"capture", "", "", true},
		{"settlement", "", types.TRANSACTION_COMPLETED, false},
		{"settlement", "accept", types.TRANSACTION_COMPLETED, false},
		{"pending", "", types.TRANSACTION_PENDING, false},
		{"deny", "", types.TRANSACTION_CANCELLED, false},
		{"cancel", "", types.TRANSACTION_CANCELLED, false},
		{"expire", "", types.TRANSACTION_CANCELLED, false},
		{"failure", "", types.TRANSACTION_FAILED, false},
		{"refund", "", "", true},
		{"", "", "", true},
	}
	for _, c := range cases {
		got, err := MapGatewayStatus(c.txStatus, c.fraudStatus)
		if c.wantErr {
			assert.ErrorIsf(t, err, ErrUnmappedStatus, "status %q/%q should fail closed", c.txStatus, c.fraudStatus)
			continue
		}
		assert.Nilf(t, err, "status %q/%q", c.txStatus, c.fraudStatus)
		assert.Equal(t, c.want, got)
	}
}

func TestProcessGatewayNotificationRejectsMalformedPayload(t *testing.T) {
	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":`))
	assert.Nil(t, outcome)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotNil(t, err)

	outcome, status, err = ProcessGatewayNotification([]byte(`{}`))
	assert.Nil(t, outcome)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.NotNil(t, err)
}

func TestProcessGatewayNotificationDuplicateDelivery(t *testing.T) {
	_, mock := newMockDB()
	verifyNotification = func(orderID string) (*coreapi.TransactionStatusResponse, error) {
		return &coreapi.TransactionStatusResponse{
			TransactionID:     "mid-1234",
			TransactionStatus: "settlement",
			PaymentType:       "gopay",
		}, nil
	}
	defer func() { verifyNotification = lib.VerifyNotification }()

	mock.
		ExpectQuery(`INSERT INTO "webhook_log_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.
		ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "external_order_id", "status", "quantity", "gross_amount", "event_id", "buyer_id"}).
			AddRow("0b7c9071-5e0c-4c59-a2f3-64e36a14a7a9", "TIX-ABC12345", "completed", 2, 100000, 1, 1))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`UPDATE "webhook_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":"TIX-ABC12345","transaction_status":"settlement"}`))
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, outcome)
	assert.True(t, outcome.Duplicate)
	assert.Equal(t, types.TRANSACTION_COMPLETED, outcome.Status)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayNotificationCompletesPayment(t *testing.T) {
	_, mock := newMockDB()
	verifyNotification = func(orderID string) (*coreapi.TransactionStatusResponse, error) {
		return &coreapi.TransactionStatusResponse{
			TransactionID:     "mid-9001",
			TransactionStatus: "capture",
			FraudStatus:       "accept",
			PaymentType:       "gopay",
		}, nil
	}
	defer func() { verifyNotification = lib.VerifyNotification }()

	mock.
		ExpectQuery(`INSERT INTO "webhook_log_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(4))
	mock.
		ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "external_order_id", "status", "quantity", "gross_amount", "event_id", "buyer_id"}).
			AddRow("9c1f64fb-96f4-43af-9f27-41c0f2e92b6e", "TIX-GHI13579", "pending", 2, 100000, 3, 7))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`UPDATE "events"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectQuery(`INSERT INTO "tickets"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.
		ExpectExec(`UPDATE "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`UPDATE "webhook_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectQuery(`SELECT \* FROM "partners"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "webhook_url", "active"}))
	mock.ExpectCommit()

	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":"TIX-GHI13579","transaction_status":"capture","fraud_status":"accept"}`))
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, outcome)
	assert.False(t, outcome.Duplicate)
	assert.False(t, outcome.Reconcile)
	assert.Equal(t, types.TRANSACTION_COMPLETED, outcome.Status)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayNotificationInventoryRace(t *testing.T) {
	_, mock := newMockDB()
	verifyNotification = func(orderID string) (*coreapi.TransactionStatusResponse, error) {
		return &coreapi.TransactionStatusResponse{
			TransactionID:     "mid-9002",
			TransactionStatus: "settlement",
			PaymentType:       "gopay",
		}, nil
	}
	defer func() { verifyNotification = lib.VerifyNotification }()

	mock.
		ExpectQuery(`INSERT INTO "webhook_log_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))
	mock.
		ExpectQuery(`SELECT \* FROM "transactions"`).
		WillReturnRows(sqlmock.
			NewRows([]string{"id", "external_order_id", "status", "quantity", "gross_amount", "event_id", "buyer_id"}).
			AddRow("9c1f64fb-96f4-43af-9f27-41c0f2e92b6e", "TIX-JKL24680", "pending", 1, 100000, 3, 7))
	mock.ExpectBegin()
	mock.
		ExpectExec(`UPDATE "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// The last stock went to a racing completion; the whole unit rolls back.
	mock.
		ExpectExec(`UPDATE "events"`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()
	mock.
		ExpectExec(`UPDATE "transactions"`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.
		ExpectExec(`UPDATE "webhook_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":"TIX-JKL24680","transaction_status":"settlement"}`))
	assert.Nil(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.NotNil(t, outcome)
	assert.True(t, outcome.Reconcile)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayNotificationUnmappedStatusFailsClosed(t *testing.T) {
	_, mock := newMockDB()
	verifyNotification = func(orderID string) (*coreapi.TransactionStatusResponse, error) {
		return &coreapi.TransactionStatusResponse{
			TransactionID:     "mid-5678",
			TransactionStatus: "refund",
			PaymentType:       "gopay",
		}, nil
	}
	defer func() { verifyNotification = lib.VerifyNotification }()

	mock.
		ExpectQuery(`INSERT INTO "webhook_log_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(2))
	mock.
		ExpectExec(`UPDATE "webhook_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":"TIX-DEF67890","transaction_status":"refund"}`))
	assert.Nil(t, outcome)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.ErrorIs(t, err, ErrUnmappedStatus)
	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestProcessGatewayNotificationVerificationFailure(t *testing.T) {
	_, mock := newMockDB()
	verifyNotification = func(orderID string) (*coreapi.TransactionStatusResponse, error) {
		return nil, errors.New("transaction doesn't exist")
	}
	defer func() { verifyNotification = lib.VerifyNotification }()

	mock.
		ExpectQuery(`INSERT INTO "webhook_log_entries"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.
		ExpectExec(`UPDATE "webhook_log_entries"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, status, err := ProcessGatewayNotification([]byte(`{"order_id":"TIX-FAKE0001"}`))
	assert.Nil(t, outcome)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.NotNil(t, err)
	assert.Nil(t, mock.ExpectationsWereMet())
}
