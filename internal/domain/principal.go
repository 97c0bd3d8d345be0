package domain

// Role is the capacity a user acts in.
type Role string

// Roles.
const (
	RoleAuthor   Role = "author"
	RoleReviewer Role = "reviewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAuthor || r == RoleReviewer
}

// Principal is the authenticated user behind a request.
type Principal struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   Role   `json:"role"`
}

// IsReviewer reports whether p may review submissions.
func (p Principal) IsReviewer() bool {
	return p.Role == RoleReviewer
}

// CanView reports whether p may read sub: owners see their own work,
// reviewers see everything.
func (p Principal) CanView(sub *Submission) bool {
	return p.IsReviewer() || sub.IsOwnedBy(p.UserID)
}
