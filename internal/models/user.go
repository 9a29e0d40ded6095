package models

// Role represents an organizer-side role carried in access tokens.
// Users themselves are managed by the external identity service.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
	RolePresenter Role = "presenter"
	RoleAudience  Role = "audience"
)

// OrganizerRoles may run events: create them, moderate questions and launch polls.
var OrganizerRoles = []Role{RoleAdmin, RoleModerator, RolePresenter}
