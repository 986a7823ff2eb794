package tracking

import "slices"

type Permission string

const (
	PermAddParts     Permission = "add_parts"
	PermEditParts    Permission = "edit_parts"
	PermDeleteParts  Permission = "delete_parts"
	PermGenerateQR   Permission = "generate_qr"
	PermViewAuditLog Permission = "view_audit_log"
	PermManageStages Permission = "manage_stages"
	PermManageRoutes Permission = "manage_routes"
	PermViewReports  Permission = "view_reports"
	PermManageUsers  Permission = "manage_users"
)

var AllPermissions = []Permission{
	PermAddParts, PermEditParts, PermDeleteParts, PermGenerateQR, PermViewAuditLog,
	PermManageStages, PermManageRoutes, PermViewReports, PermManageUsers,
}

// ValidPermission reports whether name is a known capability.
func ValidPermission(name string) bool {
	return slices.Contains(AllPermissions, Permission(name))
}

// Actor identifies who performs an operation. A nil UserID marks an
// anonymous shop-floor operator or a system task.
type Actor struct {
	UserID      *int64
	Username    string
	Permissions []string
}

// System is used for actions not initiated by a person (imports from the CLI, seeding).
var System = Actor{Username: "system", Permissions: []string{string(PermManageUsers)}}

// Can reports whether the actor holds p. manage_users implies every capability.
func (a Actor) Can(p Permission) bool {
	for _, have := range a.Permissions {
		if have == string(p) || have == string(PermManageUsers) {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool { return a.Can(PermManageUsers) }

func (a Actor) name() string {
	if a.Username == "" {
		return "anonymous"
	}
	return a.Username
}
