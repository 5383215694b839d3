package auth

import (
	"github.com/angelmondragon/dispensary-crm/pkg/enums"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	OrgID  string
	Role   enums.MemberRole
	JTI    string
}

// AccessTokenClaims represents the typed JWT presented by dashboard clients.
type AccessTokenClaims struct {
	UserID uuid.UUID        `json:"user_id"`
	OrgID  string           `json:"org_id"`
	Role   enums.MemberRole `json:"role"`
	jwt.RegisteredClaims
}
