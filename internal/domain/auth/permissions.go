package auth

import "strings"

const (
	RoleAdministrator = "Administrator"
	RoleManager       = "Manager"
	RoleEmployee      = "Employee"
	RoleIntern        = "Intern"
)

const (
	PermDashboardsRead = "dashboards.read"
	PermDashboardsTeam = "dashboards.team"
	PermReportsExport  = "reports.export"
	PermRecordsWrite   = "records.write"
	PermAuditRead      = "audit.read"
)

var DefaultPermissions = []string{
	PermDashboardsRead,
	PermDashboardsTeam,
	PermReportsExport,
	PermRecordsWrite,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleAdministrator: {
		PermDashboardsRead,
		PermDashboardsTeam,
		PermReportsExport,
		PermRecordsWrite,
		PermAuditRead,
	},
	RoleManager: {
		PermDashboardsRead,
		PermDashboardsTeam,
		PermReportsExport,
	},
	RoleEmployee: {
		PermDashboardsRead,
		PermReportsExport,
	},
	RoleIntern: {
		PermDashboardsRead,
	},
}

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID string
	Name   string
	Email  string
	Role   string
}

// CanonicalRole matches role case-insensitively against the known roles.
// Unknown roles come back unchanged and carry no permissions.
func CanonicalRole(role string) string {
	trimmed := strings.TrimSpace(role)
	for known := range RolePermissions {
		if strings.EqualFold(known, trimmed) {
			return known
		}
	}
	return trimmed
}

// StaticPermissions resolves permissions from RolePermissions.
type StaticPermissions struct{}

func (StaticPermissions) HasPermission(role, permission string) bool {
	for _, perm := range RolePermissions[CanonicalRole(role)] {
		if perm == permission {
			return true
		}
	}
	return false
}

// SelfScoped reports whether callers with role only see their own
// employee-level data.
func SelfScoped(role string) bool {
	return !(StaticPermissions{}).HasPermission(role, PermDashboardsTeam)
}
