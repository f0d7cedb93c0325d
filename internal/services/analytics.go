package services

import (
	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/models"
)

// MonthlyBucket is one month of reconstructed history: confirmed revenue,
// how many clients were active, and the new vs recurring split.
type MonthlyBucket struct {
	Month          string  `json:"month"` // short label, e.g. "Oct/24"
	Revenue        float64 `json:"revenue"`
	TotalActive    int     `json:"totalActive"`
	NewCount       int     `json:"newCount"`
	RecurringCount int     `json:"recurringCount"`
	RevenueGrowth  float64 `json:"revenueGrowth"` // % vs previous bucket
	ActiveGrowth   float64 `json:"activeGrowth"`  // % vs previous bucket
}

// AnalyticsService rebuilds a month-by-month ledger from nothing but each
// client's start/renewal date pair. There is no transaction log behind it:
// the series is exactly as accurate as the current date fields, so editing a
// client's start date silently rewrites its past. That is an accepted
// property of the reconstruction, not a defect.
type AnalyticsService struct{}

func NewAnalyticsService() *AnalyticsService { return &AnalyticsService{} }

// MonthlyBuckets produces the last `months` calendar months ending with the
// current one, oldest first. A client belongs to a month when its billable
// interval [startDate, renewalDate] overlaps the month at all; among those,
// it is new when its start date falls inside the month, recurring otherwise.
// Clients with a malformed date are left out of every bucket.
func (s *AnalyticsService) MonthlyBuckets(clients []models.Client, months int, today dates.Date) []MonthlyBucket {
	if months < 1 {
		return nil
	}
	type span struct {
		start dates.Date
		end   dates.Date
		price float64
	}
	spans := make([]span, 0, len(clients))
	for i := range clients {
		start, err := dates.Parse(clients[i].StartDate)
		if err != nil {
			continue
		}
		end, err := dates.Parse(clients[i].RenewalDate)
		if err != nil {
			continue
		}
		spans = append(spans, span{start: start, end: end, price: clients[i].Price})
	}

	buckets := make([]MonthlyBucket, 0, months)
	for i := months - 1; i >= 0; i-- {
		monthStart := today.MonthStart().AddMonths(-i)
		monthEnd := monthStart.MonthEnd()
		b := MonthlyBucket{Month: monthStart.MonthKey()}
		for _, sp := range spans {
			// overlap test: the billable window intersects the month, even
			// when both endpoints fall outside it
			if sp.start.After(monthEnd) || sp.end.Before(monthStart) {
				continue
			}
			b.Revenue += sp.price
			b.TotalActive++
			if !sp.start.Before(monthStart) && !sp.start.After(monthEnd) {
				b.NewCount++
			} else {
				b.RecurringCount++
			}
		}
		if n := len(buckets); n > 0 {
			prev := buckets[n-1]
			b.RevenueGrowth = growth(b.Revenue, prev.Revenue)
			b.ActiveGrowth = growth(float64(b.TotalActive), float64(prev.TotalActive))
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// growth is the month-over-month % change. With no usable previous value the
// convention is 0%, never a division by zero.
func growth(current, previous float64) float64 {
	if previous == 0 {
		return 0
	}
	return (current - previous) / previous * 100
}
