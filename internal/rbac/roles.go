package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleClinicAdmin   = "clinic_admin"
	RoleVeterinarian  = "veterinarian"
	RoleTechnician    = "technician"
	RoleReceptionist  = "receptionist"
	RolePlatformAdmin = "platform_admin"
	RoleSupportAgent  = "support_agent" // hidden role
)

func IsPlatformAdmin(role string) bool { return role == RolePlatformAdmin }

func IsHiddenRole(role string) bool { return role == RoleSupportAgent }
