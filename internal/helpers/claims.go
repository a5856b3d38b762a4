package helpers

import "github.com/golang-jwt/jwt/v5"

type Claims struct {
	Role  string `json:"role"`
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Principal is the authenticated caller stored on the gin context under "user".
type Principal struct {
	*Claims
	UserID string `json:"id"`
	Role   string `json:"role"`
	Email  string `json:"email,omitempty"`
	Name   string `json:"name,omitempty"`
}

func NewPrincipal(claims *Claims) *Principal {
	return &Principal{
		Claims: claims,
		UserID: claims.Subject,
		Role:   claims.Role,
		Email:  claims.Email,
		Name:   claims.Name,
	}
}

// Helper methods for role checking
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == "admin"
}

func (p *Principal) HasRole(role string) bool {
	return p != nil && p.Role == role
}

func (p *Principal) IsOwner(userID string) bool {
	return p != nil && p.UserID != "" && p.UserID == userID
}

func (p *Principal) GetSafeRole() string {
	if p == nil || p.Role == "" {
		return "guest"
	}
	return p.Role
}
