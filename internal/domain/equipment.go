package domain

import "time"

// Equipment is an installed device at a customer site.
type Equipment struct {
	ID             string
	SerialNumber   string
	Name           string
	Category       string
	ManufacturerID string
	CustomerOrgID  string
	CreatedAt      time.Time
}
