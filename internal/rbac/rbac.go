package rbac

// Role constants
const (
	RoleClient  = "client"
	RoleCleaner = "cleaner"
	RoleAdmin   = "admin"
)

// Permission constants
const (
	PermCreateBooking  = "create_booking"
	PermCheckout       = "checkout"
	PermApproveBooking = "approve_booking"
	PermOpenDispute    = "open_dispute"
	PermResolveDispute = "resolve_dispute"
	PermGrantCredits   = "grant_credits"
	PermDebitCredits   = "debit_credits"
	PermRunCampaign    = "run_campaign"
	PermRunPayouts     = "run_payouts"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleClient: {
		PermCreateBooking, PermApproveBooking, PermOpenDispute,
	},
	RoleCleaner: {
		PermCheckout, PermOpenDispute,
	},
	RoleAdmin: {
		PermCreateBooking, PermCheckout, PermApproveBooking, PermOpenDispute,
		PermResolveDispute, PermGrantCredits, PermDebitCredits,
		PermRunCampaign, PermRunPayouts,
	},
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsFinancialOperation reports whether a permission moves credits directly
// (admin-only surface).
func IsFinancialOperation(permission string) bool {
	switch permission {
	case PermGrantCredits, PermDebitCredits, PermRunCampaign, PermRunPayouts:
		return true
	}
	return false
}
