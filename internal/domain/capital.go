package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Capital is the committed-capital state of a book with invariant checking.
//
// A Buy commits capital (TotalInvested goes up), a Sell releases it
// (TotalInvested goes down). Sells are never refused, so TotalInvested can
// drop below zero; that surplus is extra headroom for later Buys.
type Capital struct {
	TotalInvested decimal.Decimal `json:"total_invested"`
	InvestmentCap decimal.Decimal `json:"investment_cap"`
}

// NewCapital creates a capital state with nothing invested.
func NewCapital(investmentCap decimal.Decimal) Capital {
	return Capital{
		TotalInvested: decimal.Zero,
		InvestmentCap: investmentCap,
	}
}

// Available returns the remaining headroom (cap - invested).
func (c *Capital) Available() decimal.Decimal {
	return c.InvestmentCap.Sub(c.TotalInvested)
}

// CanCommit reports whether committing amount keeps TotalInvested <= InvestmentCap.
func (c *Capital) CanCommit(amount decimal.Decimal) bool {
	return !c.TotalInvested.Add(amount).GreaterThan(c.InvestmentCap)
}

// Commit adds amount to the committed capital. Panics if the cap would be exceeded;
// callers check CanCommit first.
func (c *Capital) Commit(amount decimal.Decimal) {
	if !c.CanCommit(amount) {
		panic(fmt.Sprintf("CAPITAL_CAP_EXCEEDED: commit %s, invested %s, cap %s",
			amount, c.TotalInvested, c.InvestmentCap))
	}
	c.TotalInvested = c.TotalInvested.Add(amount)
}

// Release removes amount from the committed capital.
func (c *Capital) Release(amount decimal.Decimal) {
	c.TotalInvested = c.TotalInvested.Sub(amount)
}

// VerifyInvariant checks that capital satisfies invariants.
// Call this after any state change to ensure data integrity.
func (c *Capital) VerifyInvariant() {
	if c.InvestmentCap.IsNegative() {
		panic(fmt.Sprintf("CAPITAL_INVARIANT_NEGATIVE_CAP: %s", c.InvestmentCap))
	}
	if c.TotalInvested.GreaterThan(c.InvestmentCap) {
		panic(fmt.Sprintf("CAPITAL_INVARIANT_CAP_EXCEEDED: invested=%s, cap=%s",
			c.TotalInvested, c.InvestmentCap))
	}
}
