// Package learnings implements the multi-tenant Learnings Store:
// namespace parsing (domain.Namespace), CRUD+search, priority-weighted
// retrieval, access control, and promotion rules.
package learnings

import (
	"context"

	"github.com/productionorchestrator/orchestrator/internal/domain"
)

// Store is the single contract both back-ends implement.
type Store interface {
	Create(ctx context.Context, l domain.Learning) (string, error)
	Get(ctx context.Context, namespace, id string) (domain.Learning, error)
	Update(ctx context.Context, l domain.Learning) error
	Delete(ctx context.Context, namespace, id string) error
	List(ctx context.Context, namespace string, limit, offset int, tags []string) ([]domain.Learning, error)
	Search(ctx context.Context, namespaces []string, queryText string, topK int, tags []string) ([]domain.SearchResult, error)
	NamespaceExists(ctx context.Context, namespace string) (bool, error)
	DeleteNamespace(ctx context.Context, namespace string) error
	Validate(ctx context.Context, namespace, id string, success bool) error
}

// RetrievalContext identifies who is retrieving, for priority ordering
// and access control.
type RetrievalContext struct {
	OrgID     string
	ActorID   string
	SessionID string
	Role      Role
}

// Role is a coarse access-control role.
type Role string

const (
	RoleActor       Role = "actor"
	RoleOrgAdmin    Role = "org_admin"
	RolePlatformAdmin Role = "platform_admin"
)

// ApplicableNamespaces returns the priority-ordered namespace path list
// for a provider and context, per §4.3's weights table.
func ApplicableNamespaces(providerID string, rc RetrievalContext) []domain.Namespace {
	var out []domain.Namespace
	out = append(out, domain.Namespace{Level: domain.LevelPlatform, Suffix: ""})
	out = append(out, domain.Namespace{Level: domain.LevelPlatform, Suffix: "providers/" + providerID})
	if rc.OrgID != "" {
		out = append(out, domain.Namespace{Level: domain.LevelOrg, OrgID: rc.OrgID, Suffix: ""})
		out = append(out, domain.Namespace{Level: domain.LevelOrg, OrgID: rc.OrgID, Suffix: "providers/" + providerID})
	}
	if rc.OrgID != "" && rc.ActorID != "" {
		out = append(out, domain.Namespace{Level: domain.LevelUser, OrgID: rc.OrgID, ActorID: rc.ActorID, Suffix: ""})
		out = append(out, domain.Namespace{Level: domain.LevelUser, OrgID: rc.OrgID, ActorID: rc.ActorID, Suffix: "providers/" + providerID})
	}
	if rc.OrgID != "" && rc.ActorID != "" && rc.SessionID != "" {
		out = append(out, domain.Namespace{
			Level: domain.LevelSession, OrgID: rc.OrgID, ActorID: rc.ActorID, SessionID: rc.SessionID,
			Suffix: "providers/" + providerID,
		})
	}
	return out
}

// CanRead reports whether rc may read namespace ns, per §4.3 access
// control: always PLATFORM and own ORG; own USER path unless ORG-admin.
func CanRead(ns domain.Namespace, rc RetrievalContext) bool {
	switch ns.Level {
	case domain.LevelPlatform:
		return true
	case domain.LevelOrg:
		return ns.OrgID == rc.OrgID
	case domain.LevelUser, domain.LevelSession:
		if ns.OrgID != rc.OrgID {
			return false
		}
		if rc.Role == RoleOrgAdmin || rc.Role == RolePlatformAdmin {
			return true
		}
		return ns.ActorID == rc.ActorID
	default:
		return false
	}
}

// CanWrite reports whether rc may write namespace ns.
func CanWrite(ns domain.Namespace, rc RetrievalContext) bool {
	switch ns.Level {
	case domain.LevelPlatform:
		return rc.Role == RolePlatformAdmin
	case domain.LevelOrg:
		return ns.OrgID == rc.OrgID && (rc.Role == RoleOrgAdmin || rc.Role == RolePlatformAdmin)
	case domain.LevelUser, domain.LevelSession:
		if ns.OrgID != rc.OrgID {
			return false
		}
		if rc.Role == RoleOrgAdmin || rc.Role == RolePlatformAdmin {
			return true
		}
		return ns.ActorID == rc.ActorID
	default:
		return false
	}
}
