package auth

import (
	"context"
	"strings"

	"github.com/miharyjoe/ameua-sub001/internal/domain"
)

// adminAudit builds the audit closure shared by admin actions.
func (s *Service) adminAudit(action string, actor *domain.Session, targetID string) func(result string, err error, extra map[string]string) {
	actorID, actorRole := "", ""
	if actor != nil {
		actorID, actorRole = actor.UserID, actor.Role
	}
	return func(result string, err error, extra map[string]string) {
		fields := map[string]string{
			"actor_id":   actorID,
			"actor_role": actorRole,
			"target_id":  targetID,
			"result":     result,
		}
		if err != nil {
			fields["error_code"] = domainCode(err)
		}
		for k, v := range extra {
			fields[k] = v
		}
		s.audit(action, fields)
	}
}

// ListUsers returns every user without password hashes. Admin only.
func (s *Service) ListUsers(ctx context.Context, actor *domain.Session) ([]domain.PublicUser, error) {
	if err := Authorize(actor, string(domain.RoleAdmin)); err != nil {
		return nil, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	users, err := s.users.List(sctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// UpdateUserRole sets the role of targetUserID. Admin only; an admin may
// not move their own account off the admin role.
func (s *Service) UpdateUserRole(
	ctx context.Context,
	actor *domain.Session,
	targetUserID, newRole string,
) (domain.PublicUser, error) {
	targetUserID = strings.TrimSpace(targetUserID)
	newRole = strings.TrimSpace(newRole)

	audit := s.adminAudit("admin.update_user_role", actor, targetUserID)

	// --- RBAC: admin only ---
	if err := Authorize(actor, string(domain.RoleAdmin)); err != nil {
		audit("error", err, map[string]string{"required_role": string(domain.RoleAdmin)})
		return domain.PublicUser{}, err
	}

	// --- input validation ---
	if targetUserID == "" {
		err := domain.ErrMissingField("user_id")
		audit("error", err, nil)
		return domain.PublicUser{}, err
	}
	if newRole == "" {
		err := domain.ErrMissingField("role")
		audit("error", err, nil)
		return domain.PublicUser{}, err
	}
	if !domain.IsValidRole(newRole) {
		err := domain.ErrInvalidRole(newRole)
		audit("error", err, nil)
		return domain.PublicUser{}, err
	}

	// --- hard rule: cannot demote self ---
	if actor.UserID == targetUserID && newRole != string(domain.RoleAdmin) {
		err := domain.ErrSelfDemotionForbidden()
		audit("error", err, map[string]string{"new_role": newRole})
		return domain.PublicUser{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	// --- ensure target exists & get current role ---
	target, err := s.users.GetByID(sctx, targetUserID)
	if err != nil {
		audit("error", err, nil)
		return domain.PublicUser{}, err
	}

	if err := s.users.SetRole(sctx, targetUserID, newRole); err != nil {
		audit("error", err, nil)
		return domain.PublicUser{}, err
	}

	audit("success", nil, map[string]string{
		"old_role": target.Role,
		"new_role": newRole,
	})

	target.Role = newRole
	return target.Public(), nil
}

// DeleteUser removes targetUserID and its member profile. Admin only; an
// admin may not delete their own account.
func (s *Service) DeleteUser(ctx context.Context, actor *domain.Session, targetUserID string) error {
	targetUserID = strings.TrimSpace(targetUserID)

	audit := s.adminAudit("admin.delete_user", actor, targetUserID)

	if err := Authorize(actor, string(domain.RoleAdmin)); err != nil {
		audit("error", err, map[string]string{"required_role": string(domain.RoleAdmin)})
		return err
	}

	if targetUserID == "" {
		err := domain.ErrMissingField("user_id")
		audit("error", err, nil)
		return err
	}

	// --- hard rule: cannot delete self ---
	if actor.UserID == targetUserID {
		err := domain.ErrSelfDeletionForbidden()
		audit("error", err, nil)
		return err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	if _, err := s.users.GetByID(sctx, targetUserID); err != nil {
		audit("error", err, nil)
		return err
	}

	if err := s.users.Delete(sctx, targetUserID); err != nil {
		audit("error", err, nil)
		return err
	}

	audit("success", nil, nil)
	return nil
}

// CurrentUser loads the user behind a session.
func (s *Service) CurrentUser(ctx context.Context, session *domain.Session) (domain.PublicUser, error) {
	if err := Authorize(session, string(domain.RoleUser)); err != nil {
		return domain.PublicUser{}, err
	}

	sctx, cancel := s.storeCtx(ctx)
	defer cancel()

	u, err := s.users.GetByID(sctx, session.UserID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return u.Public(), nil
}
