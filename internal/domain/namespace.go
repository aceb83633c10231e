package domain

import (
	"fmt"
	"strings"
)

// NamespaceLevel is totally ordered PLATFORM > ORG > USER > SESSION.
type NamespaceLevel int

const (
	LevelSession NamespaceLevel = iota
	LevelUser
	LevelOrg
	LevelPlatform
)

func (l NamespaceLevel) String() string {
	switch l {
	case LevelPlatform:
		return "PLATFORM"
	case LevelOrg:
		return "ORG"
	case LevelUser:
		return "USER"
	case LevelSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Namespace is a parsed path-structured identifier, e.g.
// /platform/providers/luma, /org/acme/providers/luma,
// /org/acme/actor/alice/providers/luma,
// /org/acme/actor/alice/sessions/s1/providers/luma.
type Namespace struct {
	Level     NamespaceLevel
	OrgID     string
	ActorID   string
	SessionID string
	Suffix    string // remaining path segment, e.g. "providers/luma" or "global"
}

// Parse is purely lexical and deterministic, per §4.3.
func Parse(path string) (Namespace, error) {
	trimmed := strings.Trim(path, "/")
	segs := strings.Split(trimmed, "/")
	if len(segs) == 0 || segs[0] == "" {
		return Namespace{}, errInvalid("namespace path must not be empty")
	}

	switch segs[0] {
	case "platform":
		return Namespace{Level: LevelPlatform, Suffix: strings.Join(segs[1:], "/")}, nil
	case "org":
		if len(segs) < 2 {
			return Namespace{}, errInvalid("org namespace requires an org id")
		}
		orgID := segs[1]
		rest := segs[2:]
		if len(rest) >= 2 && rest[0] == "actor" {
			actorID := rest[1]
			tail := rest[2:]
			if len(tail) >= 2 && tail[0] == "sessions" {
				sessionID := tail[1]
				return Namespace{
					Level: LevelSession, OrgID: orgID, ActorID: actorID,
					SessionID: sessionID, Suffix: strings.Join(tail[2:], "/"),
				}, nil
			}
			return Namespace{
				Level: LevelUser, OrgID: orgID, ActorID: actorID,
				Suffix: strings.Join(tail, "/"),
			}, nil
		}
		return Namespace{Level: LevelOrg, OrgID: orgID, Suffix: strings.Join(rest, "/")}, nil
	default:
		return Namespace{}, errInvalid(fmt.Sprintf("unrecognized namespace root %q", segs[0]))
	}
}

// Build renders a Namespace back to its canonical path string. Parse and
// Build are inverses for every valid Namespace — round-trip identity is
// a testable property (§8).
func (n Namespace) Build() string {
	var b strings.Builder
	switch n.Level {
	case LevelPlatform:
		b.WriteString("/platform")
	case LevelOrg:
		fmt.Fprintf(&b, "/org/%s", n.OrgID)
	case LevelUser:
		fmt.Fprintf(&b, "/org/%s/actor/%s", n.OrgID, n.ActorID)
	case LevelSession:
		fmt.Fprintf(&b, "/org/%s/actor/%s/sessions/%s", n.OrgID, n.ActorID, n.SessionID)
	}
	if n.Suffix != "" {
		b.WriteString("/")
		b.WriteString(n.Suffix)
	}
	return b.String()
}

// IsGlobal reports whether the suffix names the provider-agnostic
// "globals" bucket rather than a specific provider path.
func (n Namespace) IsGlobal() bool {
	return n.Suffix == "" || n.Suffix == "global" || n.Suffix == "globals"
}

// PriorityWeight implements the §4.3 weights table.
func (n Namespace) PriorityWeight() float64 {
	switch n.Level {
	case LevelPlatform:
		if n.IsGlobal() {
			return 1.00
		}
		return 0.95
	case LevelOrg:
		if n.IsGlobal() {
			return 0.85
		}
		return 0.80
	case LevelUser:
		if n.IsGlobal() {
			return 0.70
		}
		return 0.65
	case LevelSession:
		return 0.50
	default:
		return 0
	}
}

// Path returns Build() without its leading slash, for use under memory/
// on disk. Path separators are kept, so each namespace segment becomes a
// directory level.
func (n Namespace) Path() string {
	return strings.TrimPrefix(n.Build(), "/")
}
