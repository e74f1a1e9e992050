package lib

import (
	"os"

	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/coreapi"
	"github.com/midtrans/midtrans-go/snap"
)

var snapClient *snap.Client
var coreClient *coreapi.Client

func midtransEnv() midtrans.EnvironmentType {
	if os.Getenv("MIDTRANS_IS_PRODUCTION") == "true" {
		return midtrans.Production
	}
	return midtrans.Sandbox
}

func GetSnapClient() *snap.Client {
	if snapClient != nil {
		return snapClient
	}
	var s snap.Client
	s.New(os.Getenv("MIDTRANS_SERVER_KEY"), midtransEnv())
	snapClient = &s
	return snapClient
}

func GetCoreAPIClient() *coreapi.Client {
	if coreClient != nil {
		return coreClient
	}
	var c coreapi.Client
	c.New(os.Getenv("MIDTRANS_SERVER_KEY"), midtransEnv())
	coreClient = &c
	return coreClient
}

func NewSnapClient(c *snap.Client) *snap.Client {
	snapClient = c
	return snapClient
}

func NewCoreAPIClient(c *coreapi.Client) *coreapi.Client {
	coreClient = c
	return coreClient
}

// CreateSnapToken registers the order with the gateway and returns the
// payment token and redirect URL the buyer pays through.
func CreateSnapToken(orderID string, grossAmount int64, name, email string) (*snap.Response, error) {
	sc := GetSnapClient()
	req := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  orderID,
			GrossAmt: grossAmount,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: name,
			Email: email,
		},
	}
	resp, merr := sc.CreateTransaction(req)
	if merr != nil {
		return nil, merr
	}
	return resp, nil
}

// VerifyNotification re-checks an order's status against the gateway itself
// instead of trusting webhook payload fields.
func VerifyNotification(orderID string) (*coreapi.TransactionStatusResponse, error) {
	cc := GetCoreAPIClient()
	st, merr := cc.CheckTransaction(orderID)
	if merr != nil {
		return nil, merr
	}
	return st, nil
}
