package rbac

// RolePermissions is the built-in policy. Teachers own the question bank and
// see every student's results; students see questions without answers and
// only their own submissions.
var RolePermissions = map[string][]string{
	"student": {
		"problem:view",
		"session:browse",
		"session:answer",
		"submission:view-own",
		"grade:preview",
	},
	"teacher": {
		"problem:*", // view, view-answers, create
		"session:browse",
		"session:answer",
		"submission:view-all",
		"submission:export",
		"grade:preview",
	},
	"admin": {
		"*",
	},
}
