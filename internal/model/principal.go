package model

// Principal is the authenticated caller of a request, resolved once
// from the access token.
type Principal struct {
    UserID string
    Role   string
}

// IsAdmin reports whether the principal carries the Admin role.
func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// CanAccess reports whether the principal may act on a resource owned
// by ownerID: administrators always, everyone else only on their own.
func (p Principal) CanAccess(ownerID string) bool {
    if p.IsAdmin() {
        return true
    }
    return p.UserID != "" && p.UserID == ownerID
}
