package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/equipment-service/internal/domain"
	"github.com/spec-kit/equipment-service/internal/repository"
	"github.com/spec-kit/equipment-service/internal/resolver"
)

type organizations struct{ s *Store }

func (r organizations) Create(_ context.Context, org *domain.Organization) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	if org.ID == "" {
		org.ID = newID()
	}
	if _, exists := r.s.orgs[org.ID]; exists {
		return repository.ErrDuplicate
	}
	org.CreatedAt, org.UpdatedAt = now, now
	stored := *org
	stored.Specializations = copyStrings(org.Specializations)
	r.s.orgs[org.ID] = stored
	return nil
}

func (r organizations) GetByID(_ context.Context, id string) (*domain.Organization, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	org, ok := r.s.orgs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	org.Specializations = copyStrings(org.Specializations)
	return &org, nil
}

func (r organizations) List(_ context.Context, filter repository.OrganizationFilter) ([]domain.Organization, error) {
	r.s.mu.RLock()
	var result []domain.Organization
	for _, org := range r.s.orgs {
		if filter.Type != nil && org.Type != *filter.Type {
			continue
		}
		if filter.Status != nil && org.Status != *filter.Status {
			continue
		}
		org.Specializations = copyStrings(org.Specializations)
		result = append(result, org)
	}
	r.s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset, 100), nil
}

func (r organizations) UpdateStatus(_ context.Context, id string, status domain.OrgStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	org, ok := r.s.orgs[id]
	if !ok {
		return pgx.ErrNoRows
	}
	org.Status = status
	org.UpdatedAt = r.s.now()
	r.s.orgs[id] = org
	return nil
}

type associations struct{ s *Store }

func (r associations) Create(_ context.Context, assoc *domain.PartnerAssociation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.associations {
		if existing.ParentOrgID != assoc.ParentOrgID {
			continue
		}
		switch assoc.AssociationType {
		case domain.AssociationEquipmentSpecific:
			if existing.AssociationType == domain.AssociationEquipmentSpecific &&
				existing.EquipmentID != nil && assoc.EquipmentID != nil && *existing.EquipmentID == *assoc.EquipmentID {
				return repository.ErrDuplicate
			}
		case domain.AssociationGeneral:
			if existing.AssociationType == domain.AssociationGeneral && existing.PartnerOrgID == assoc.PartnerOrgID {
				return repository.ErrDuplicate
			}
		}
	}
	assoc.ID = newID()
	assoc.CreatedAt = r.s.now()
	stored := *assoc
	stored.EquipmentID = copyStringPtr(assoc.EquipmentID)
	r.s.associations[assoc.ID] = stored
	return nil
}

func (r associations) ListByParent(_ context.Context, parentOrgID string) ([]domain.PartnerAssociation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.PartnerAssociation
	for _, assoc := range r.s.associations {
		if assoc.ParentOrgID == parentOrgID {
			assoc.EquipmentID = copyStringPtr(assoc.EquipmentID)
			result = append(result, assoc)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (r associations) Find(_ context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (*domain.PartnerAssociation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, assoc := range r.s.associations {
		if assoc.Matches(parentOrgID, partnerOrgID, equipmentID) {
			assoc.EquipmentID = copyStringPtr(assoc.EquipmentID)
			return &assoc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r associations) FindSpecific(_ context.Context, parentOrgID, equipmentID string) (*domain.PartnerAssociation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, assoc := range r.s.associations {
		if assoc.ParentOrgID == parentOrgID && assoc.AssociationType == domain.AssociationEquipmentSpecific &&
			assoc.EquipmentID != nil && *assoc.EquipmentID == equipmentID {
			assoc.EquipmentID = copyStringPtr(assoc.EquipmentID)
			return &assoc, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r associations) UpdateRelType(_ context.Context, id, relType string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	assoc, ok := r.s.associations[id]
	if !ok {
		return pgx.ErrNoRows
	}
	assoc.RelType = relType
	r.s.associations[id] = assoc
	return nil
}

func (r associations) Delete(_ context.Context, parentOrgID, partnerOrgID string, equipmentID *string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var removed int64
	for id, assoc := range r.s.associations {
		if assoc.Matches(parentOrgID, partnerOrgID, equipmentID) {
			delete(r.s.associations, id)
			removed++
		}
	}
	return removed, nil
}

type engineers struct{ s *Store }

func (r engineers) Create(_ context.Context, engineer *domain.Engineer) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.orgs[engineer.OrganizationID]; !ok {
		return pgx.ErrNoRows
	}
	if engineer.ID == "" {
		engineer.ID = newID()
	}
	now := r.s.now()
	engineer.CreatedAt, engineer.UpdatedAt = now, now
	stored := *engineer
	stored.Specializations = copyStrings(engineer.Specializations)
	r.s.engineers[engineer.ID] = stored
	return nil
}

func (r engineers) GetByID(_ context.Context, id string) (*domain.Engineer, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	engineer, ok := r.s.engineers[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	engineer.Specializations = copyStrings(engineer.Specializations)
	return &engineer, nil
}

func (r engineers) List(_ context.Context, filter repository.EngineerFilter) ([]domain.Engineer, error) {
	r.s.mu.RLock()
	var result []domain.Engineer
	for _, engineer := range r.s.engineers {
		if filter.OrganizationID != nil && engineer.OrganizationID != *filter.OrganizationID {
			continue
		}
		if filter.Status != nil && engineer.Status != *filter.Status {
			continue
		}
		if filter.Level != nil && engineer.Level != *filter.Level {
			continue
		}
		engineer.Specializations = copyStrings(engineer.Specializations)
		result = append(result, engineer)
	}
	r.s.mu.RUnlock()
	sort.Slice(result, func(i, j int) bool {
		if result[i].Level != result[j].Level {
			return result[i].Level > result[j].Level
		}
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return paginate(result, filter.Limit, filter.Offset, 100), nil
}

func (r engineers) UpdateStatus(_ context.Context, id string, status domain.EngineerStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	engineer, ok := r.s.engineers[id]
	if !ok {
		return pgx.ErrNoRows
	}
	engineer.Status = status
	engineer.UpdatedAt = r.s.now()
	r.s.engineers[id] = engineer
	return nil
}

type equipmentRepo struct{ s *Store }

func (r equipmentRepo) Create(_ context.Context, equipment *domain.Equipment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if equipment.ID == "" {
		equipment.ID = newID()
	}
	if _, exists := r.s.equipment[equipment.ID]; exists {
		return repository.ErrDuplicate
	}
	equipment.CreatedAt = r.s.now()
	r.s.equipment[equipment.ID] = *equipment
	return nil
}

func (r equipmentRepo) GetByID(_ context.Context, id string) (*domain.Equipment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	equipment, ok := r.s.equipment[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &equipment, nil
}

type graphReader struct{ s *Store }

func (r graphReader) Snapshot(ctx context.Context) (*resolver.Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	orgs := make([]domain.Organization, 0, len(r.s.orgs))
	for _, org := range r.s.orgs {
		org.Specializations = copyStrings(org.Specializations)
		orgs = append(orgs, org)
	}
	assocs := make([]domain.PartnerAssociation, 0, len(r.s.associations))
	for _, assoc := range r.s.associations {
		assocs = append(assocs, assoc)
	}
	engs := make([]domain.Engineer, 0, len(r.s.engineers))
	for _, engineer := range r.s.engineers {
		engs = append(engs, engineer)
	}
	// NewGraph copies what it keeps, so handing it map values is safe.
	return resolver.NewGraph(orgs, assocs, engs), nil
}

func paginate[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
