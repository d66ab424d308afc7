package auth

// UserClaims is what the auth middleware attaches to a request.
type UserClaims interface {
	DispatcherID() string
	Role() string
	Source() string
}

const (
	RoleDispatcher = "DISPATCHER"
	RoleViewer     = "VIEWER"
)

// DispatcherClaims come from a verified bearer token.
type DispatcherClaims struct {
	Subject   string
	RoleValue string
	TokenID   string
}

func (c *DispatcherClaims) DispatcherID() string { return c.Subject }
func (c *DispatcherClaims) Role() string {
	if c.RoleValue == "" {
		return RoleDispatcher
	}
	return c.RoleValue
}
func (c *DispatcherClaims) Source() string { return "JWT" }

// CanMutate reports whether the claims allow assignment writes.
func CanMutate(c UserClaims) bool {
	return c != nil && c.Role() == RoleDispatcher
}
