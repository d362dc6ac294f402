package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Identity string `json:"identity"`
	Secret   string `json:"secret"`
}

// LoginResponse is returned on successful authentication. The credential
// token is held client-side for the session; nothing is stored server-side.
type LoginResponse struct {
	Identity        string      `json:"identity"`
	DisplayName     string      `json:"displayName"`
	Role            domain.Role `json:"role"`
	CredentialToken string      `json:"credentialToken"`
	ExpiresAt       time.Time   `json:"expiresAt"`
}
