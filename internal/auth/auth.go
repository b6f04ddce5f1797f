// Package auth is a stubbed auth collaborator. It resolves every request to
// a fixed, configured user, standing in for a real identity provider. The
// engines never call it directly; handlers resolve the user and pass ids and
// admin flags down.
package auth

import (
	"eventqa-service/internal/domain"
)

type Service struct {
	user *domain.User
}

// NewService builds the stub around a configured mock user. A nil user means
// unauthenticated requests.
func NewService(user *domain.User) *Service {
	return &Service{user: user}
}

// CurrentUser returns the resolved user, or nil when unauthenticated.
func (s *Service) CurrentUser() *domain.User {
	return s.user
}

// IsAdmin reports whether the current user holds the admin role.
func (s *Service) IsAdmin() bool {
	return s.user != nil && s.user.Role == domain.RoleAdmin
}
