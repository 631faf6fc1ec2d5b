package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the only supported JWT claims shape for this service.
// Multi-tenant invariant: ClinicID must be present for all non-admin activity.
// Tokens are issued by the dashboard backend; this service only verifies.
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"user_id"`
	ClinicID string `json:"clinic_id"`
	Role     string `json:"role"`
}
