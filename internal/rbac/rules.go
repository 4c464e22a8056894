package rbac

// Role is the portal's access tier, carried in the JWT and resolved to
// permission grants below.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
	RoleDean     Role = "dean"
	RoleAdmin    Role = "admin"
)

// RolePermissions is the default grant table. A trailing * on a grant
// matches any permission with that prefix.
var RolePermissions = map[Role][]string{
	RoleStudent: {
		"assessment:view",
		"attempt:create",
		"attempt:save",
		"attempt:submit",
		"attempt:view-own",
		"grade:view-own",
		"user:change_password",
	},
	RoleLecturer: {
		"assessment:create",
		"assessment:view",
		"assessment:author",
		"attempt:view-all",
		"attempt:grade",
		"grade:view-all",
		"grade:sync",
	},
	RoleDean: {
		"assessment:view",
		"assessment:author",
		"attempt:view-all",
		"attempt:grade",
		"grade:view-all",
		"grade:sync",
	},
	RoleAdmin: {
		"*",
	},
}
