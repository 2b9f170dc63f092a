package auth

import "context"

type Role string

const (
	RoleOwner    Role = "owner"    // Company owner - full access
	RoleManager  Role = "manager"  // Runs payroll and approves revisions
	RoleEmployee Role = "employee" // Reads own payslips only
)

type Permission string

const (
	PermissionCompensationView Permission = "compensation.view"
	PermissionRevisionDraft    Permission = "revision.draft"
	PermissionRevisionApprove  Permission = "revision.approve"
	PermissionPayrollView      Permission = "payroll.view"
	PermissionPayrollManage    Permission = "payroll.manage"
	PermissionPayrollAmend     Permission = "payroll.amend"
)

// RolePermissions maps roles to their permissions
var RolePermissions = map[Role][]Permission{
	RoleOwner: {
		PermissionCompensationView,
		PermissionRevisionDraft,
		PermissionRevisionApprove,
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollAmend,
	},
	RoleManager: {
		PermissionCompensationView,
		PermissionRevisionDraft,
		PermissionRevisionApprove,
		PermissionPayrollView,
		PermissionPayrollManage,
		PermissionPayrollAmend,
	},
	RoleEmployee: {
		PermissionCompensationView,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role Role, permission Permission) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// Claims is the verified caller: TenantID comes from company_id, ActorID from user_id.
type Claims struct {
	TenantID string
	ActorID  string
	Role     Role
}

type claimsKey struct{}

func WithClaims(ctx context.Context, c Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(Claims)
	return c, ok
}
