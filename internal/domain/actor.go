package domain

// Actor is the authenticated caller for a single request, decoded from the
// bearer token. It is built per request and never shared across requests.
type Actor struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
