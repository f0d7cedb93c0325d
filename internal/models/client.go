package models

import (
	"time"

	"github.com/diewo77/subtrack/internal/dates"
	"github.com/diewo77/subtrack/internal/validation"
)

// Client is the core entity: one recurring subscription sold to one customer.
// StartDate and RenewalDate are stored as plain YYYY-MM-DD strings so the
// database round-trip can never shift them across a timezone boundary.
type Client struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint      `gorm:"not null;index" json:"-"` // owning operator account
	Name           string    `gorm:"not null;index" json:"name"`
	Phone          string    `gorm:"not null" json:"phone"`
	StartDate      string    `gorm:"not null;size:10" json:"startDate"`
	RenewalDate    string    `gorm:"not null;size:10" json:"renewalDate"`
	Price          float64   `gorm:"not null" json:"price"`
	Devices        int       `gorm:"not null;default:1" json:"devices"`
	Notes          string    `json:"notes,omitempty"`
	Server         string    `json:"server,omitempty"`
	MACAddress     string    `gorm:"column:mac_address" json:"macAddress,omitempty"`
	DevicePassword string    `json:"devicePassword,omitempty"`
	CreatedAt      time.Time `json:"-"`
	UpdatedAt      time.Time `json:"-"`
}

// Validate checks the fields every aggregation depends on. A record failing
// validation is rejected before it can leak NaN or a bogus date into stats.
func (c *Client) Validate() validation.Violations {
	v := validation.Violations{}
	validation.Required("name", c.Name, v)
	validation.Required("phone", c.Phone, v)
	validation.DateField("start_date", c.StartDate, v)
	validation.DateField("renewal_date", c.RenewalDate, v)
	validation.NonNegativeFloat("price", c.Price, v)
	validation.PositiveInt("devices", c.Devices, v)
	return v
}

// DaysUntilRenewal is the signed day-offset between the renewal date and
// today: positive means days remaining, negative means days overdue.
func (c *Client) DaysUntilRenewal(today dates.Date) (int, error) {
	renewal, err := dates.Parse(c.RenewalDate)
	if err != nil {
		return 0, err
	}
	return dates.DaysBetween(renewal, today), nil
}
