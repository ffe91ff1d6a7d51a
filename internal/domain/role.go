package domain

// Account roles. Role is fixed at signup; there is no promotion flow.
const (
	RoleUser   = "user"
	RoleVendor = "vendor"
)

// ValidRole reports whether r is one of the roles a client may sign up with.
func ValidRole(r string) bool {
	return r == RoleUser || r == RoleVendor
}
