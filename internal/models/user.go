package models

// UserRole identifies the role carried by an authenticated principal.
type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleFaculty UserRole = "faculty"
	RoleAdmin   UserRole = "admin"
)

// Valid reports whether the role is one of the supported roles.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleFaculty, RoleAdmin:
		return true
	default:
		return false
	}
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
