package domain

import (
	"strings"
	"time"
)

// OrgType enumerates the kinds of organizations in the service network.
type OrgType string

const (
	OrgTypeManufacturer    OrgType = "manufacturer"
	OrgTypeDistributor     OrgType = "distributor"
	OrgTypeDealer          OrgType = "dealer"
	OrgTypeHospital        OrgType = "hospital"
	OrgTypeServiceProvider OrgType = "service_provider"
)

// Valid reports whether t is a known organization type.
func (t OrgType) Valid() bool {
	switch t {
	case OrgTypeManufacturer, OrgTypeDistributor, OrgTypeDealer, OrgTypeHospital, OrgTypeServiceProvider:
		return true
	}
	return false
}

// OrgStatus is the soft-deactivation flag of an organization.
type OrgStatus string

const (
	OrgStatusActive   OrgStatus = "active"
	OrgStatusInactive OrgStatus = "inactive"
)

// Organization is a node of the service partnership graph.
type Organization struct {
	ID              string
	Name            string
	Type            OrgType
	Status          OrgStatus
	Specializations []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Active reports whether the organization participates in resolution.
func (o Organization) Active() bool {
	return o.Status == OrgStatusActive
}

// NormalizeTags lower-cases, trims and drops empty tags.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
