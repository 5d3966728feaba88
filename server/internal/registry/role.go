package registry

import "strings"

// Role classifies a connection and decides which messages it receives.
type Role int

const (
	// RoleViewer is a display client. It follows redirects.
	RoleViewer Role = iota
	// RoleManager is the operator console. It never receives unsolicited
	// redirects but does receive library updates.
	RoleManager
)

// ParseRole maps the path segment of a connect request to a Role.
// Anything other than "manager" is a viewer.
func ParseRole(s string) Role {
	if strings.EqualFold(strings.TrimSpace(s), "manager") {
		return RoleManager
	}
	return RoleViewer
}

func (r Role) String() string {
	switch r {
	case RoleManager:
		return "manager"
	default:
		return "viewer"
	}
}

// Receives reports whether a connection with role r is a target for
// messages of kind k.
func (r Role) Receives(k Kind) bool {
	switch k {
	case KindRedirect:
		return r != RoleManager
	case KindLibrary:
		return r == RoleManager
	default:
		return true
	}
}
