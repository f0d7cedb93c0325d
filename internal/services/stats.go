package services

import (
	"sort"
	"strings"

	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/models"
)

// ClientStats is the fleet-wide summary shown on the dashboard cards.
// Recomputed on demand from the client collection, never persisted.
type ClientStats struct {
	TotalClients  int     `json:"totalClients"`
	ActiveRevenue float64 `json:"activeRevenue"`
	ExpiringSoon  int     `json:"expiringSoon"`
}

// StatusCounts breaks the collection down by classification. All is the
// total across every classification.
type StatusCounts struct {
	All      int `json:"all"`
	Active   int `json:"active"`
	Expiring int `json:"expiring"`
	Expired  int `json:"expired"`
}

// StatsService computes pure, synchronous aggregates over a snapshot of the
// client collection. It holds no state and never mutates its input.
type StatsService struct{}

func NewStatsService() *StatsService { return &StatsService{} }

// ComputeStats makes a single pass over the collection: every valid client
// counts toward the total, billable ones toward revenue, and clients inside
// the near-expiry window toward expiringSoon. Records with an invalid
// renewal date are excluded from every aggregate and reported back by ID so
// a broken date can never poison a revenue total.
func (s *StatsService) ComputeStats(clients []models.Client, today dates.Date) (ClientStats, []string) {
	var stats ClientStats
	var skipped []string
	for i := range clients {
		days, err := clients[i].DaysUntilRenewal(today)
		if err != nil {
			skipped = append(skipped, clients[i].ID)
			continue
		}
		stats.TotalClients++
		if Billable(days) {
			stats.ActiveRevenue += clients[i].Price
		}
		if Classify(days) == StatusExpiring {
			stats.ExpiringSoon++
		}
	}
	return stats, skipped
}

// ComputeStatusCounts tallies clients per classification.
func (s *StatsService) ComputeStatusCounts(clients []models.Client, today dates.Date) (StatusCounts, []string) {
	var counts StatusCounts
	var skipped []string
	for i := range clients {
		days, err := clients[i].DaysUntilRenewal(today)
		if err != nil {
			skipped = append(skipped, clients[i].ID)
			continue
		}
		counts.All++
		switch Classify(days) {
		case StatusActive:
			counts.Active++
		case StatusExpiring:
			counts.Expiring++
		case StatusExpired:
			counts.Expired++
		}
	}
	return counts, skipped
}

// FilterAndSort returns the clients matching query and statusFilter, most
// urgent first. The query matches case-insensitively against name, server,
// phone and MAC address as a substring; empty matches everything. An empty
// statusFilter passes all classifications through. Ties on day-offset keep
// their input order. The input slice is not modified.
func (s *StatsService) FilterAndSort(clients []models.Client, query string, statusFilter Status, today dates.Date) []models.Client {
	q := strings.ToLower(strings.TrimSpace(query))
	type entry struct {
		client models.Client
		days   int
	}
	matched := make([]entry, 0, len(clients))
	for i := range clients {
		c := clients[i]
		days, err := c.DaysUntilRenewal(today)
		if err != nil {
			continue
		}
		if q != "" && !matchesQuery(&c, q) {
			continue
		}
		if statusFilter != "" && Classify(days) != statusFilter {
			continue
		}
		matched = append(matched, entry{client: c, days: days})
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].days < matched[j].days })
	out := make([]models.Client, len(matched))
	for i, e := range matched {
		out[i] = e.client
	}
	return out
}

func matchesQuery(c *models.Client, q string) bool {
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Server), q) ||
		strings.Contains(c.Phone, q) ||
		strings.Contains(strings.ToLower(c.MACAddress), q)
}
