package rbac

// Default policy for the driving-school roles.
var RolePermissions = map[string][]string{
	"student": {
		"quiz:view",
		"attempt:submit",
		"attempt:view-own",
	},
	"teacher": {
		"quiz:view",
		"quiz:create",
		"attempt:view-all",
	},
	"manager": {
		"*", // everything
	},
}
