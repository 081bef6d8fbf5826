package memory

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// Seed describes an organization graph fixture. Records carry explicit ids so
// edges can reference them.
type Seed struct {
	Organizations []SeedOrganization `yaml:"organizations"`
	Engineers     []SeedEngineer     `yaml:"engineers"`
	Equipment     []SeedEquipment    `yaml:"equipment"`
	Associations  []SeedAssociation  `yaml:"associations"`
}

type SeedOrganization struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Type            string   `yaml:"type"`
	Inactive        bool     `yaml:"inactive"`
	Specializations []string `yaml:"specializations"`
}

type SeedEngineer struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Email           string   `yaml:"email"`
	Phone           string   `yaml:"phone"`
	OrganizationID  string   `yaml:"organization"`
	Level           int      `yaml:"level"`
	Inactive        bool     `yaml:"inactive"`
	Specializations []string `yaml:"specializations"`
}

type SeedEquipment struct {
	ID             string `yaml:"id"`
	SerialNumber   string `yaml:"serial"`
	Name           string `yaml:"name"`
	Category       string `yaml:"category"`
	ManufacturerID string `yaml:"manufacturer"`
	CustomerOrgID  string `yaml:"customer"`
}

type SeedAssociation struct {
	Parent      string `yaml:"parent"`
	Partner     string `yaml:"partner"`
	EquipmentID string `yaml:"equipment"`
	RelType     string `yaml:"rel_type"`
}

// LoadSeedFile parses a YAML seed file.
func LoadSeedFile(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return &seed, nil
}

// Apply inserts the seed records into the store. Associations with an
// equipment id become equipment-specific overrides.
func (s *Store) Apply(ctx context.Context, seed *Seed) error {
	for _, o := range seed.Organizations {
		org := &domain.Organization{
			ID:              o.ID,
			Name:            o.Name,
			Type:            domain.OrgType(o.Type),
			Status:          domain.OrgStatusActive,
			Specializations: domain.NormalizeTags(o.Specializations),
		}
		if !org.Type.Valid() {
			return fmt.Errorf("organization %s: unknown type %q", o.ID, o.Type)
		}
		if o.Inactive {
			org.Status = domain.OrgStatusInactive
		}
		if err := s.Organizations().Create(ctx, org); err != nil {
			return fmt.Errorf("organization %s: %w", o.ID, err)
		}
	}
	for _, e := range seed.Engineers {
		engineer := &domain.Engineer{
			ID:              e.ID,
			Name:            e.Name,
			Email:           e.Email,
			Phone:           e.Phone,
			OrganizationID:  e.OrganizationID,
			Level:           domain.EngineerLevel(e.Level),
			Status:          domain.EngineerStatusActive,
			Specializations: domain.NormalizeTags(e.Specializations),
		}
		if !engineer.Level.Valid() {
			return fmt.Errorf("engineer %s: level %d out of range", e.ID, e.Level)
		}
		if e.Inactive {
			engineer.Status = domain.EngineerStatusInactive
		}
		if err := s.Engineers().Create(ctx, engineer); err != nil {
			return fmt.Errorf("engineer %s: %w", e.ID, err)
		}
	}
	for _, eq := range seed.Equipment {
		equipment := &domain.Equipment{
			ID:             eq.ID,
			SerialNumber:   eq.SerialNumber,
			Name:           eq.Name,
			Category:       eq.Category,
			ManufacturerID: eq.ManufacturerID,
			CustomerOrgID:  eq.CustomerOrgID,
		}
		if err := s.Equipment().Create(ctx, equipment); err != nil {
			return fmt.Errorf("equipment %s: %w", eq.ID, err)
		}
	}
	for _, a := range seed.Associations {
		assoc := &domain.PartnerAssociation{
			ParentOrgID:     a.Parent,
			PartnerOrgID:    a.Partner,
			AssociationType: domain.AssociationGeneral,
			RelType:         a.RelType,
		}
		if assoc.RelType == "" {
			assoc.RelType = domain.DefaultRelType
		}
		if a.EquipmentID != "" {
			equipmentID := a.EquipmentID
			assoc.AssociationType = domain.AssociationEquipmentSpecific
			assoc.EquipmentID = &equipmentID
		}
		if err := s.Associations().Create(ctx, assoc); err != nil {
			return fmt.Errorf("association %s -> %s: %w", a.Parent, a.Partner, err)
		}
	}
	return nil
}
