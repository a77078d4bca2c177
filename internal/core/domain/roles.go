package domain

type Role string

const (
	RoleParalegal Role = "paralegal"
	RoleLawyer    Role = "lawyer"
	RolePartner   Role = "partner"
	RoleAdmin     Role = "admin"
)

type Action string

const (
	ActionCategorize Action = "categorize"
	ActionValidate   Action = "validate"
	ActionReassign   Action = "reassign"
	ActionExport     Action = "export"
)

// Can reports whether a role may perform an action. Partners and admins hold
// every import-pipeline permission; paralegals and lawyers only categorize.
func Can(role Role, action Action) bool {
	switch role {
	case RoleAdmin, RolePartner:
		return true
	case RoleLawyer, RoleParalegal:
		return action == ActionCategorize
	default:
		return false
	}
}

// NormalizeRole maps unknown role strings to the least-privileged role.
func NormalizeRole(role string) Role {
	switch Role(role) {
	case RoleParalegal, RoleLawyer, RolePartner, RoleAdmin:
		return Role(role)
	default:
		return RoleParalegal
	}
}

// AuthUser is the resolved identity of an API caller.
type AuthUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role"`
}
