package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/resolver"
	apperrors "github.com/spec-kit/equipment-service/pkg/util/errorutil"
)

// GraphService manages the organization graph: organizations, their
// engineers, equipment, and partner associations.
type GraphService struct {
	orgs            repository.OrganizationRepository
	associations    repository.PartnerAssociationRepository
	engineers       repository.EngineerRepository
	equipment       repository.EquipmentRepository
	reader          repository.GraphReader
	snapshotTimeout time.Duration
	logger          *zap.Logger
}

// GraphDependencies bundles repositories for the graph service.
type GraphDependencies struct {
	OrganizationRepo repository.OrganizationRepository
	AssociationRepo  repository.PartnerAssociationRepository
	EngineerRepo     repository.EngineerRepository
	EquipmentRepo    repository.EquipmentRepository
	GraphReader      repository.GraphReader
	SnapshotTimeout  time.Duration
	Logger           *zap.Logger
}

// NewGraphService constructs the service.
func NewGraphService(deps GraphDependencies) *GraphService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphService{
		orgs:            deps.OrganizationRepo,
		associations:    deps.AssociationRepo,
		engineers:       deps.EngineerRepo,
		equipment:       deps.EquipmentRepo,
		reader:          deps.GraphReader,
		snapshotTimeout: deps.SnapshotTimeout,
		logger:          logger,
	}
}

// OrganizationInput describes organization onboarding.
type OrganizationInput struct {
	Name            string
	Type            domain.OrgType
	Specializations []string
}

// EngineerInput describes an engineer added to an organization roster.
type EngineerInput struct {
	OrganizationID  string
	Name            string
	Email           string
	Phone           string
	Specializations []string
	Level           domain.EngineerLevel
}

// EquipmentInput describes equipment registration.
type EquipmentInput struct {
	SerialNumber   string
	Name           string
	Category       string
	ManufacturerID string
	CustomerOrgID  string
}

// AssociationInput identifies a partner edge to create.
type AssociationInput struct {
	ParentOrgID     string
	PartnerOrgID    string
	AssociationType domain.AssociationType
	EquipmentID     *string
	RelType         string
}

// CreateOrganization onboards an organization in active status.
func (s *GraphService) CreateOrganization(ctx context.Context, input OrganizationInput) (*domain.Organization, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !input.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid organization type", map[string]any{"org_type": input.Type})
	}
	org := &domain.Organization{
		Name:            name,
		Type:            input.Type,
		Status:          domain.OrgStatusActive,
		Specializations: domain.NormalizeTags(input.Specializations),
	}
	if err := s.orgs.Create(ctx, org); err != nil {
		return nil, mapStoreError(err)
	}
	return org, nil
}

// GetOrganization fetches an organization by id.
func (s *GraphService) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	org, err := s.orgs.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "organization", map[string]any{"organization_id": id})
	}
	return org, nil
}

// ListOrganizations lists organizations.
func (s *GraphService) ListOrganizations(ctx context.Context, filter repository.OrganizationFilter) ([]domain.Organization, error) {
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, apperrors.NewValidationError("invalid organization type", map[string]any{"org_type": *filter.Type})
	}
	orgs, err := s.orgs.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return orgs, nil
}

// DeactivateOrganization soft-deactivates an organization. Deactivated
// organizations no longer contribute engineers to resolution.
func (s *GraphService) DeactivateOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	if err := s.orgs.UpdateStatus(ctx, id, domain.OrgStatusInactive); err != nil {
		return nil, lookupError(err, "organization", map[string]any{"organization_id": id})
	}
	return s.GetOrganization(ctx, id)
}

// CreateEngineer adds an active engineer to an organization roster.
func (s *GraphService) CreateEngineer(ctx context.Context, input EngineerInput) (*domain.Engineer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required", nil)
	}
	if !input.Level.Valid() {
		return nil, apperrors.NewValidationError("engineer_level must be 1, 2 or 3", map[string]any{"engineer_level": input.Level})
	}
	if _, err := s.GetOrganization(ctx, input.OrganizationID); err != nil {
		return nil, err
	}
	engineer := &domain.Engineer{
		Name:            name,
		Email:           strings.TrimSpace(input.Email),
		Phone:           strings.TrimSpace(input.Phone),
		OrganizationID:  input.OrganizationID,
		Specializations: domain.NormalizeTags(input.Specializations),
		Level:           input.Level,
		Status:          domain.EngineerStatusActive,
	}
	if err := s.engineers.Create(ctx, engineer); err != nil {
		return nil, mapStoreError(err)
	}
	return engineer, nil
}

// engineerPageSize is how many engineers GetEngineers reads per query.
var engineerPageSize = 500

// GetEngineers returns every active engineer of an organization, paging
// through the roster until a short page comes back.
func (s *GraphService) GetEngineers(ctx context.Context, orgID string) ([]domain.Engineer, error) {
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	status := domain.EngineerStatusActive
	var engineers []domain.Engineer
	for offset := 0; ; offset += engineerPageSize {
		page, err := s.engineers.List(ctx, repository.EngineerFilter{
			OrganizationID: &orgID,
			Status:         &status,
			Limit:          engineerPageSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		engineers = append(engineers, page...)
		if len(page) < engineerPageSize {
			return engineers, nil
		}
	}
}

// GetEngineer fetches an engineer by id regardless of status.
func (s *GraphService) GetEngineer(ctx context.Context, id string) (*domain.Engineer, error) {
	engineer, err := s.engineers.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "engineer", map[string]any{"engineer_id": id})
	}
	return engineer, nil
}

// DeactivateEngineer removes an engineer from every future candidate pool.
// Existing assignments are left untouched.
func (s *GraphService) DeactivateEngineer(ctx context.Context, id string) (*domain.Engineer, error) {
	if err := s.engineers.UpdateStatus(ctx, id, domain.EngineerStatusInactive); err != nil {
		return nil, lookupError(err, "engineer", map[string]any{"engineer_id": id})
	}
	return s.GetEngineer(ctx, id)
}

// CreateEquipment registers equipment. The manufacturer linkage is fixed at creation.
func (s *GraphService) CreateEquipment(ctx context.Context, input EquipmentInput) (*domain.Equipment, error) {
	serial := strings.TrimSpace(input.SerialNumber)
	if serial == "" {
		return nil, apperrors.NewValidationError("serial_number is required", nil)
	}
	manufacturer, err := s.GetOrganization(ctx, input.ManufacturerID)
	if err != nil {
		return nil, err
	}
	if manufacturer.Type != domain.OrgTypeManufacturer {
		return nil, apperrors.NewValidationError("manufacturer_id must reference a manufacturer",
			map[string]any{"organization_id": manufacturer.ID, "org_type": manufacturer.Type})
	}
	if _, err := s.GetOrganization(ctx, input.CustomerOrgID); err != nil {
		return nil, err
	}
	equipment := &domain.Equipment{
		SerialNumber:   serial,
		Name:           strings.TrimSpace(input.Name),
		Category:       strings.TrimSpace(input.Category),
		ManufacturerID: input.ManufacturerID,
		CustomerOrgID:  input.CustomerOrgID,
	}
	if err := s.equipment.Create(ctx, equipment); err != nil {
		return nil, mapStoreError(err)
	}
	return equipment, nil
}

// GetEquipment fetches equipment by id.
func (s *GraphService) GetEquipment(ctx context.Context, id string) (*domain.Equipment, error) {
	equipment, err := s.equipment.GetByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, "equipment", map[string]any{"equipment_id": id})
	}
	return equipment, nil
}

// GetPartners returns the partner edges of orgID, equipment-specific edges
// first.
func (s *GraphService) GetPartners(ctx context.Context, orgID string, filter resolver.PartnerFilter) ([]domain.PartnerAssociation, error) {
	if filter.AssociationType != nil && !filter.AssociationType.Valid() {
		return nil, apperrors.NewValidationError("invalid association_type", map[string]any{"association_type": *filter.AssociationType})
	}
	if _, err := s.GetOrganization(ctx, orgID); err != nil {
		return nil, err
	}
	associations, err := s.associations.ListByParent(ctx, orgID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return resolver.OrderPartners(associations, filter), nil
}

// UpsertAssociation creates a partner edge. Re-submitting an existing edge
// updates its rel_type and returns it; a second equipment-specific edge for
// the same (parent, equipment) pair is a conflict.
func (s *GraphService) UpsertAssociation(ctx context.Context, input AssociationInput) (*domain.PartnerAssociation, error) {
	assoc, err := s.validateAssociation(ctx, input)
	if err != nil {
		return nil, err
	}

	existing, err := s.associations.Find(ctx, assoc.ParentOrgID, assoc.PartnerOrgID, assoc.EquipmentID)
	switch {
	case err == nil:
		if existing.RelType == assoc.RelType {
			return existing, nil
		}
		if err := s.associations.UpdateRelType(ctx, existing.ID, assoc.RelType); err != nil {
			return nil, lookupError(err, "association", map[string]any{"association_id": existing.ID})
		}
		s.logger.Info("partner association relabelled",
			zap.String("association_id", existing.ID),
			zap.String("from_rel_type", existing.RelType),
			zap.String("rel_type", assoc.RelType))
		existing.RelType = assoc.RelType
		return existing, nil
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, apperrors.MapError(err)
	}

	if assoc.AssociationType == domain.AssociationEquipmentSpecific {
		current, err := s.associations.FindSpecific(ctx, assoc.ParentOrgID, *assoc.EquipmentID)
		if err == nil {
			return nil, apperrors.NewConflict("equipment already has a specific partner", map[string]any{
				"parent_org_id":  current.ParentOrgID,
				"partner_org_id": current.PartnerOrgID,
				"equipment_id":   *assoc.EquipmentID,
			})
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
	}

	if err := s.associations.Create(ctx, assoc); err != nil {
		return nil, mapStoreError(err)
	}
	s.logger.Info("partner association created",
		zap.String("parent_org_id", assoc.ParentOrgID),
		zap.String("partner_org_id", assoc.PartnerOrgID),
		zap.String("association_type", string(assoc.AssociationType)))
	return assoc, nil
}

func (s *GraphService) validateAssociation(ctx context.Context, input AssociationInput) (*domain.PartnerAssociation, error) {
	parentID := strings.TrimSpace(input.ParentOrgID)
	partnerID := strings.TrimSpace(input.PartnerOrgID)
	if parentID == "" || partnerID == "" {
		return nil, apperrors.NewValidationError("parent_org_id and partner_org_id are required", nil)
	}
	if parentID == partnerID {
		return nil, apperrors.NewValidationError("an organization cannot partner with itself", map[string]any{"organization_id": parentID})
	}
	if !input.AssociationType.Valid() {
		return nil, apperrors.NewValidationError("invalid association_type", map[string]any{"association_type": input.AssociationType})
	}
	equipmentID := trimmedPtr(input.EquipmentID)
	switch input.AssociationType {
	case domain.AssociationEquipmentSpecific:
		if equipmentID == nil {
			return nil, apperrors.NewValidationError("equipment_id is required for equipment_specific associations", nil)
		}
	case domain.AssociationGeneral:
		if equipmentID != nil {
			return nil, apperrors.NewValidationError("equipment_id is only allowed on equipment_specific associations", nil)
		}
	}

	if _, err := s.GetOrganization(ctx, parentID); err != nil {
		return nil, err
	}
	if _, err := s.GetOrganization(ctx, partnerID); err != nil {
		return nil, err
	}
	if equipmentID != nil {
		if _, err := s.GetEquipment(ctx, *equipmentID); err != nil {
			return nil, err
		}
	}

	relType := strings.TrimSpace(input.RelType)
	if relType == "" {
		relType = domain.DefaultRelType
	}
	return &domain.PartnerAssociation{
		ParentOrgID:     parentID,
		PartnerOrgID:    partnerID,
		AssociationType: input.AssociationType,
		EquipmentID:     equipmentID,
		RelType:         relType,
	}, nil
}

// RemoveAssociation deletes the edge identified by the triple. Removing an
// edge that does not exist succeeds.
func (s *GraphService) RemoveAssociation(ctx context.Context, parentID, partnerID string, equipmentID *string) error {
	removed, err := s.associations.Delete(ctx, parentID, partnerID, trimmedPtr(equipmentID))
	if err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Debug("partner association removed",
		zap.String("parent_org_id", parentID),
		zap.String("partner_org_id", partnerID),
		zap.Int64("removed", removed))
	return nil
}

// Snapshot reads a consistent copy of the graph, bounded by the snapshot timeout.
func (s *GraphService) Snapshot(ctx context.Context) (*resolver.Graph, error) {
	if s.snapshotTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.snapshotTimeout)
		defer cancel()
	}
	graph, err := s.reader.Snapshot(ctx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewUnavailable("organization graph unavailable", err)
		}
		return nil, apperrors.MapError(err)
	}
	return graph, nil
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
