package auth

// Permission represents a named capability in the system.
type Permission string

// Permission constants.
const (
	PermTicketIssue   Permission = "ticket:issue"
	PermTicketVerify  Permission = "ticket:verify"
	PermPublish       Permission = "message:publish"
	PermBrokerConnect Permission = "broker:connect"
	PermAuditRead     Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
// This is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RolePublisher: {
		PermTicketIssue,
		PermTicketVerify,
		PermPublish,
	},
	RoleBroker: {
		PermTicketVerify,
		PermBrokerConnect,
	},
	RoleAdmin: {
		PermTicketIssue,
		PermTicketVerify,
		PermPublish,
		PermBrokerConnect,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
