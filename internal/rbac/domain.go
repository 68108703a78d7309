// Package rbac authorizes operators against their organisation role.
package rbac

// Role is an operator's role within one organisation.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleFinance Role = "finance"
	RoleTeacher Role = "teacher"
)
