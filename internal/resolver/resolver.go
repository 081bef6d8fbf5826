// Package resolver computes the tiered pools of engineers eligible to
// service a ticket. Everything here is pure: the same graph and ticket
// always produce the same ordered result.
package resolver

import (
	"strings"

	"github.com/spec-kit/equipment-service/internal/domain"
)

// TierCandidate is one organization's engineers within a tier.
type TierCandidate struct {
	Tier             domain.AssignmentTier
	OrganizationID   string
	OrganizationName string
	Engineers        []domain.Engineer
}

// Resolution is the ordered candidate list, tier_1 first.
type Resolution []TierCandidate

// Empty reports whether no engineer is eligible at any tier.
func (r Resolution) Empty() bool {
	return len(r) == 0
}

// Pool returns every engineer eligible at tier, across organizations.
func (r Resolution) Pool(tier domain.AssignmentTier) []domain.Engineer {
	var pool []domain.Engineer
	for _, candidate := range r {
		if candidate.Tier == tier {
			pool = append(pool, candidate.Engineers...)
		}
	}
	return pool
}

// Organizations returns the organization ids contributing to tier, in order.
func (r Resolution) Organizations(tier domain.AssignmentTier) []string {
	var ids []string
	for _, candidate := range r {
		if candidate.Tier == tier {
			ids = append(ids, candidate.OrganizationID)
		}
	}
	return ids
}

// Locate finds engineerID inside the given tier.
func (r Resolution) Locate(engineerID string, tier domain.AssignmentTier) (TierCandidate, domain.Engineer, bool) {
	for _, candidate := range r {
		if candidate.Tier != tier {
			continue
		}
		for _, eng := range candidate.Engineers {
			if eng.ID == engineerID {
				return candidate, eng, true
			}
		}
	}
	return TierCandidate{}, domain.Engineer{}, false
}

// FirstNonEmpty returns the earliest tier that has engineers.
func (r Resolution) FirstNonEmpty() (domain.AssignmentTier, bool) {
	if len(r) == 0 {
		return "", false
	}
	return r[0].Tier, true
}

// Resolve walks the organization graph for ticket and returns the candidate
// pools ordered tier_1 to tier_4. An organization is reported only in the
// earliest tier that reaches it, and candidates without engineers are left out.
func Resolve(ticket domain.Ticket, equipment domain.Equipment, graph *Graph) Resolution {
	b := &builder{graph: graph, seen: map[string]struct{}{}}

	b.add(domain.TierOEM, ticket.ManufacturerID)

	for _, orgID := range partnerPool(graph, ticket.ManufacturerID, ticket.EquipmentID) {
		b.add(domain.TierPartner, orgID)
	}

	for _, orgID := range multiBrandPool(graph, equipment.Category) {
		b.add(domain.TierServiceProvider, orgID)
	}

	b.add(domain.TierHospital, ticket.CustomerOrgID)

	return b.out
}

type builder struct {
	graph *Graph
	seen  map[string]struct{}
	out   Resolution
}

func (b *builder) add(tier domain.AssignmentTier, orgID string) {
	if orgID == "" {
		return
	}
	if _, dup := b.seen[orgID]; dup {
		return
	}
	org, ok := b.graph.Organization(orgID)
	if !ok || !org.Active() {
		return
	}
	b.seen[orgID] = struct{}{}
	engineers := b.graph.Engineers(orgID)
	if len(engineers) == 0 {
		return
	}
	b.out = append(b.out, TierCandidate{
		Tier:             tier,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Engineers:        engineers,
	})
}

// partnerPool applies the precedence rule for tier 2: an equipment-specific
// association with an active partner replaces every general association of
// the manufacturer; otherwise all general partners form one pool.
func partnerPool(graph *Graph, manufacturerID, equipmentID string) []string {
	if manufacturerID == "" {
		return nil
	}
	var general []string
	for _, assoc := range graph.Partners(manufacturerID, PartnerFilter{EquipmentID: &equipmentID}) {
		if !partnerActive(graph, assoc.PartnerOrgID) {
			continue
		}
		switch assoc.AssociationType {
		case domain.AssociationEquipmentSpecific:
			return []string{assoc.PartnerOrgID}
		case domain.AssociationGeneral:
			general = append(general, assoc.PartnerOrgID)
		}
	}
	return general
}

func partnerActive(graph *Graph, orgID string) bool {
	org, ok := graph.Organization(orgID)
	return ok && org.Active()
}

// multiBrandPool returns the multi-brand providers whose specializations
// cover category. No category means no tier 3 at all.
func multiBrandPool(graph *Graph, category string) []string {
	wanted := domain.NormalizeTags(strings.Split(category, ","))
	if len(wanted) == 0 {
		return nil
	}
	var ids []string
	for _, orgID := range graph.ordered {
		org := graph.orgs[orgID]
		if !servesMultiBrand(org.Type) {
			continue
		}
		if intersects(org.Specializations, wanted) {
			ids = append(ids, orgID)
		}
	}
	return ids
}

// servesMultiBrand decides tier 3 eligibility per organization type. Every
// type is listed so a new one must be classified here explicitly.
func servesMultiBrand(t domain.OrgType) bool {
	switch t {
	case domain.OrgTypeServiceProvider:
		return true
	case domain.OrgTypeManufacturer, domain.OrgTypeDistributor, domain.OrgTypeDealer, domain.OrgTypeHospital:
		return false
	default:
		return false
	}
}

func intersects(have, want []string) bool {
	for _, h := range have {
		for _, w := range want {
			if h == w {
				return true
			}
		}
	}
	return false
}
