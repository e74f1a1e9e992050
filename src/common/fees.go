package common

import (
	"errors"
	"tixcore/src/types"
)

var ErrInvalidGrossAmount = errors.New("gross amount must be a positive integer")

// FeeBreakdown is the deterministic fee split for a paid order. All amounts
// are integer currency units; every division floors, so
// NetAmount + TotalFee == gross holds exactly.
type FeeBreakdown struct {
	GatewayFee  int64       `json:"gateway_fee"`
	PlatformFee int64       `json:"platform_fee"`
	TotalFee    int64       `json:"total_fee"`
	NetAmount   int64       `json:"net_amount"`
	Breakdown   types.JSONB `json:"breakdown"`
}

// gatewayFee returns the gateway's cut for a payment method. E-wallets are
// percentage-only, cards are percentage plus fixed, bank transfer and
// minimarket are fixed-only. An unrecognized method falls back to zero; the
// caller records the method so the fallback is auditable.
func gatewayFee(gross int64, method string) (fee int64, rule string) {
	switch method {
	case "gopay":
		return gross * 2 / 100, "2%"
	case "shopeepay":
		return gross * 2 / 100, "2%"
	case "qris":
		return gross * 15 / 1000, "1.5%"
	case "credit_card":
		return gross*29/1000 + 2000, "2.9% + 2000"
	case "bank_transfer":
		return 4000, "flat 4000"
	case "cstore":
		return 5000, "flat 5000"
	default:
		return 0, "unknown method, no gateway fee"
	}
}

// CalculateFees computes the fee split for a gross amount and payment
// method. Pure, no I/O. The platform fee is a flat 2% of gross for every
// method.
func CalculateFees(gross int64, method string) (*FeeBreakdown, error) {
	if gross <= 0 {
		return nil, ErrInvalidGrossAmount
	}
	gwFee, rule := gatewayFee(gross, method)
	platformFee := gross * 2 / 100
	totalFee := gwFee + platformFee
	fb := &FeeBreakdown{
		GatewayFee:  gwFee,
		PlatformFee: platformFee,
		TotalFee:    totalFee,
		NetAmount:   gross - totalFee,
		Breakdown: types.JSONB{
			"gateway": types.JSONB{
				"method": method,
				"rule":   rule,
				"amount": gwFee,
			},
			"platform": types.JSONB{
				"rule":   "2%",
				"amount": platformFee,
			},
		},
	}
	return fb, nil
}
