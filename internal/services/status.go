package services

// Status is the lifecycle classification of a client derived from its
// day-offset to renewal. It is the single authoritative rule used for both
// per-client state and fleet-wide counts.
type Status string

const (
	StatusActive   Status = "active"
	StatusExpiring Status = "expiring"
	StatusExpired  Status = "expired"
)

// ExpiringWindowDays is the near-expiry window: 0..3 days remaining.
const ExpiringWindowDays = 3

// billableGraceDays keeps a client in the revenue total for up to 30 days
// past expiry. This is a distinct rule from Classify, not a fourth state.
const billableGraceDays = 30

// Classify maps a signed day-offset onto exactly one status. The partition
// boundaries sit at -1/0 (expired vs expiring) and 3/4 (expiring vs active).
func Classify(daysUntilRenewal int) Status {
	switch {
	case daysUntilRenewal < 0:
		return StatusExpired
	case daysUntilRenewal <= ExpiringWindowDays:
		return StatusExpiring
	default:
		return StatusActive
	}
}

// Billable reports whether a client still counts toward aggregate revenue.
// Clients expired for more than 30 days are written off.
func Billable(daysUntilRenewal int) bool {
	return daysUntilRenewal > -billableGraceDays
}

// ParseStatus maps a query-string filter value onto a Status. The empty
// string and "all" mean no filtering; anything else is invalid.
func ParseStatus(s string) (Status, bool) {
	switch s {
	case "", "all":
		return "", true
	case string(StatusActive):
		return StatusActive, true
	case string(StatusExpiring):
		return StatusExpiring, true
	case string(StatusExpired):
		return StatusExpired, true
	}
	return "", false
}
