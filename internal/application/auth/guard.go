package auth

import (
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// Authorize decides whether session may perform an operation that needs
// requiredRole. A nil session is always denied. Role comes from the session
// snapshot, not from the store.
func Authorize(session *domain.Session, requiredRole string) error {
	if session == nil || strings.TrimSpace(session.UserID) == "" {
		return domain.ErrUnauthorized()
	}
	if !domain.IsValidRole(requiredRole) {
		// misconfigured route
		return domain.ErrInsufficientRole(requiredRole)
	}
	if !domain.IsValidRole(session.Role) {
		return domain.ErrInsufficientRole(requiredRole)
	}
	if domain.RoleRank(session.Role) < domain.RoleRank(requiredRole) {
		return domain.ErrInsufficientRole(requiredRole)
	}
	return nil
}
