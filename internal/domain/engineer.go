package domain

import "time"

// EngineerLevel ranks engineers from junior (1) to senior (3).
type EngineerLevel int

const (
	EngineerLevelJunior EngineerLevel = 1
	EngineerLevelMid    EngineerLevel = 2
	EngineerLevelSenior EngineerLevel = 3
)

// Valid reports whether the level is within range.
func (l EngineerLevel) Valid() bool {
	return l >= EngineerLevelJunior && l <= EngineerLevelSenior
}

// EngineerStatus marks whether an engineer can take work.
type EngineerStatus string

const (
	EngineerStatusActive   EngineerStatus = "active"
	EngineerStatusInactive EngineerStatus = "inactive"
)

// Engineer is a field engineer owned by exactly one organization.
type Engineer struct {
	ID              string
	Name            string
	Email           string
	Phone           string
	OrganizationID  string
	Specializations []string
	Level           EngineerLevel
	Status          EngineerStatus
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the engineer can be assigned.
func (e Engineer) Active() bool {
	return e.Status == EngineerStatusActive
}
