package domain

// Role represents a user's role in the reporting dashboard.
type Role string

// User roles.
const (
	RoleStudent    Role = "student"
	RoleWorker     Role = "worker"
	RoleSupervisor Role = "supervisor"
)

// User represents an authenticated member of the university community.
type User struct {
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name,omitempty"`
	Code      string `json:"code,omitempty"`
}

// IsValid checks if the role is valid.
func (r Role) IsValid() bool {
	return r == RoleStudent || r == RoleWorker || r == RoleSupervisor
}
