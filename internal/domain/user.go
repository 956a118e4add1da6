package domain

import "time"

// Role enumerates the actor roles known to the municipality.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleAuthority  Role = "AUTHORITY"
	RoleManager    Role = "MANAGER"
	RoleTechnician Role = "TECHNICIAN"
	RoleCitizen    Role = "CITIZEN"
)

// Valid reports whether the role belongs to the closed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAuthority, RoleManager, RoleTechnician, RoleCitizen:
		return true
	}
	return false
}

// User is the domain model for every actor: citizens filing requests as
// well as municipal staff.
type User struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Address      string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsStaff reports whether the user holds any municipal staff role.
func (u *User) IsStaff() bool {
	return u.Role != RoleCitizen
}

// CanAssignTasks reports whether the user may create task assignments.
func (u *User) CanAssignTasks() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager
}

// CanUpdateRequestStatus reports whether the user may drive request
// status transitions.
func (u *User) CanUpdateRequestStatus() bool {
	return u.Role == RoleAdmin || u.Role == RoleManager || u.Role == RoleTechnician
}

// CanViewReports reports whether the user may read aggregate statistics.
func (u *User) CanViewReports() bool {
	return u.Role == RoleAdmin || u.Role == RoleAuthority || u.Role == RoleManager
}
