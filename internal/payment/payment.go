// Package payment authorizes charges for paid tiers.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Charge is an amount to authorize against a purchaser.
type Charge struct {
	Email    string
	EventID  string
	TierID   string
	Quantity int
	Amount   decimal.Decimal
}

// Authorizer approves or declines a charge. A false result with a nil error
// is a decline; an error means the authorizer could not decide.
type Authorizer interface {
	Authorize(ctx context.Context, c Charge) (bool, error)
}

// Simulated approves every charge unless DeclineAll is set. It stands in
// for a real gateway.
type Simulated struct {
	DeclineAll bool
	Log        logrus.FieldLogger
}

// Authorize approves every positive charge unless DeclineAll is set.
func (s Simulated) Authorize(ctx context.Context, c Charge) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	approved := !s.DeclineAll && c.Amount.IsPositive()
	if s.Log != nil {
		s.Log.WithFields(logrus.Fields{
			"email":    c.Email,
			"tier_id":  c.TierID,
			"amount":   c.Amount.StringFixed(2),
			"approved": approved,
		}).Info("simulated payment")
	}
	return approved, nil
}
