package resolver

import (
	"sort"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// Graph is an immutable snapshot of the organization graph. It is safe for
// concurrent use once built.
type Graph struct {
	orgs         map[string]domain.Organization
	associations map[string][]domain.PartnerAssociation
	engineers    map[string][]domain.Engineer
	ordered      []string
}

// NewGraph indexes the given records. Inactive engineers are dropped; the
// inputs are copied so later mutation by the caller cannot leak in.
func NewGraph(orgs []domain.Organization, associations []domain.PartnerAssociation, engineers []domain.Engineer) *Graph {
	g := &Graph{
		orgs:         make(map[string]domain.Organization, len(orgs)),
		associations: make(map[string][]domain.PartnerAssociation),
		engineers:    make(map[string][]domain.Engineer),
	}
	for _, org := range orgs {
		org.Specializations = domain.NormalizeTags(org.Specializations)
		g.orgs[org.ID] = org
		g.ordered = append(g.ordered, org.ID)
	}
	sort.Slice(g.ordered, func(i, j int) bool {
		a, b := g.orgs[g.ordered[i]], g.orgs[g.ordered[j]]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})

	for _, assoc := range associations {
		if assoc.EquipmentID != nil {
			id := *assoc.EquipmentID
			assoc.EquipmentID = &id
		}
		g.associations[assoc.ParentOrgID] = append(g.associations[assoc.ParentOrgID], assoc)
	}
	for parent := range g.associations {
		sortAssociations(g.associations[parent])
	}

	for _, eng := range engineers {
		if !eng.Active() {
			continue
		}
		eng.Specializations = append([]string(nil), eng.Specializations...)
		g.engineers[eng.OrganizationID] = append(g.engineers[eng.OrganizationID], eng)
	}
	for org := range g.engineers {
		sortEngineers(g.engineers[org])
	}
	return g
}

// Organization looks up an organization by id.
func (g *Graph) Organization(id string) (domain.Organization, bool) {
	org, ok := g.orgs[id]
	return org, ok
}

// Engineers returns the active engineers of orgID.
func (g *Graph) Engineers(orgID string) []domain.Engineer {
	return append([]domain.Engineer(nil), g.engineers[orgID]...)
}

// Partners returns the associations whose parent is parentID, ordered by OrderPartners.
func (g *Graph) Partners(parentID string, filter PartnerFilter) []domain.PartnerAssociation {
	return OrderPartners(g.associations[parentID], filter)
}

// PartnerFilter narrows an association lookup.
type PartnerFilter struct {
	AssociationType *domain.AssociationType
	EquipmentID     *string
}

// OrderPartners filters associations and orders equipment-specific edges
// before general ones; each group is ordered by creation time then id. When
// an equipment id is given, equipment-specific edges for other equipment are
// excluded.
func OrderPartners(associations []domain.PartnerAssociation, filter PartnerFilter) []domain.PartnerAssociation {
	var specific, general []domain.PartnerAssociation
	for _, assoc := range associations {
		if filter.AssociationType != nil && assoc.AssociationType != *filter.AssociationType {
			continue
		}
		switch assoc.AssociationType {
		case domain.AssociationEquipmentSpecific:
			if filter.EquipmentID != nil && (assoc.EquipmentID == nil || *assoc.EquipmentID != *filter.EquipmentID) {
				continue
			}
			specific = append(specific, assoc)
		case domain.AssociationGeneral:
			general = append(general, assoc)
		}
	}
	sortAssociations(specific)
	sortAssociations(general)
	return append(specific, general...)
}

func sortAssociations(list []domain.PartnerAssociation) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
}

func sortEngineers(list []domain.Engineer) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].Level != list[j].Level {
			return list[i].Level > list[j].Level
		}
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].ID < list[j].ID
	})
}
