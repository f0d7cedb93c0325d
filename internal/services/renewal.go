package services

import (
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/models"
)

// CycleDays is the fixed renewal cycle. Not configurable, not prorated.
const CycleDays = 30

// RenewalService advances a client's renewal date on an explicit operator
// action. It never touches persistence; the caller writes the result back.
type RenewalService struct{}

func NewRenewalService() *RenewalService { return &RenewalService{} }

// Advance computes the next renewal date. An already-expired subscription
// restarts from today; an unexpired one stacks the new cycle on top of its
// remaining validity.
func (s *RenewalService) Advance(renewalDate string, today dates.Date) (string, error) {
	current, err := dates.Parse(renewalDate)
	if err != nil {
		return "", err
	}
	base := current
	if current.Before(today) {
		base = today
	}
	return base.AddDays(CycleDays).String(), nil
}

// Renew applies Advance to the client in place. On a malformed renewal date
// the client is left unmodified and the parse error is returned.
func (s *RenewalService) Renew(c *models.Client, today dates.Date) error {
	next, err := s.Advance(c.RenewalDate, today)
	if err != nil {
		return err
	}
	c.RenewalDate = next
	return nil
}
