package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"student-registry/internal/apperr"
	"student-registry/internal/metrics"
	"student-registry/internal/models"
	"student-registry/internal/repository"
	"student-registry/pkg/utils"
)

const MinPasswordLength = 6

var usernamePattern = regexp.MustCompile(`^[a-z0-9_.-]{3,50}$`)

type UserService struct {
	userRepo *repository.UserRepository
	creds    *CredentialService
	audit    *AuditService
	metrics  *metrics.Metrics
}

func NewUserService(
	userRepo *repository.UserRepository,
	creds *CredentialService,
	audit *AuditService,
	m *metrics.Metrics,
) *UserService {
	return &UserService{
		userRepo: userRepo,
		creds:    creds,
		audit:    audit,
		metrics:  m,
	}
}

// AuthResponse is returned by register and login.
// Token is the only time the plain API token is shown.
type AuthResponse struct {
	Token    string      `json:"token"`
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
}

// NormalizeUsername trims and lowercases a username
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// ValidUsername reports whether a normalized username is acceptable
func ValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Register creates a Guest account and issues its first token
func (s *UserService) Register(ctx context.Context, username, password string) (*AuthResponse, error) {
	user, err := s.create(ctx, username, password, models.RoleGuest)
	if err != nil {
		return nil, err
	}

	token, err := s.creds.IssueToken(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.Username, "user_registration", fmt.Sprintf("User %s registered", user.Username))
	s.metrics.Registration()

	return &AuthResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

func (s *UserService) create(ctx context.Context, username, password string, role models.Role) (*models.User, error) {
	username = NormalizeUsername(username)
	if !ValidUsername(username) {
		return nil, fmt.Errorf("%w: username must be 3-50 characters of a-z, 0-9, '_', '.', '-'", apperr.ErrInvalid)
	}
	if len(password) < MinPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalid, MinPasswordLength)
	}

	hash, err := s.creds.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, apperr.ErrConflict) {
			return nil, fmt.Errorf("%w: username already exists", apperr.ErrConflict)
		}
		return nil, err
	}
	return user, nil
}

// Login verifies credentials and replaces the user's token.
// Unknown users and wrong passwords produce the same error.
func (s *UserService) Login(ctx context.Context, username, password string) (*AuthResponse, error) {
	username = NormalizeUsername(username)

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if !s.creds.VerifyPassword(user, password) {
		s.metrics.Login("failure")
		return nil, fmt.Errorf("%w: invalid credentials", apperr.ErrUnauthenticated)
	}
	if user.Suspended {
		s.metrics.Login("suspended")
		return nil, fmt.Errorf("%w: account suspended", apperr.ErrForbidden)
	}

	token, err := s.creds.IssueToken(ctx, user.Username)
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, user.Username, "user_login", fmt.Sprintf("User %s logged in", user.Username))
	s.metrics.Login("success")

	return &AuthResponse{
		Token:    token,
		Username: user.Username,
		Role:     user.Role,
	}, nil
}

// Logout revokes the caller's token
func (s *UserService) Logout(ctx context.Context, actor *models.User) error {
	if err := RequireActive(actor); err != nil {
		return err
	}
	return s.creds.RevokeToken(ctx, actor.Username)
}

// List returns every account (owner only)
func (s *UserService) List(ctx context.Context, actor *models.User) ([]models.UserSummary, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}

	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]models.UserSummary, len(users))
	for i := range users {
		summaries[i] = users[i].Summary()
	}
	return summaries, nil
}

// Suspend blocks a user from authenticating and revokes its token (owner only)
func (s *UserService) Suspend(ctx context.Context, actor *models.User, username string) (*models.UserSummary, error) {
	return s.setSuspended(ctx, actor, username, true)
}

// Unsuspend lifts a suspension (owner only). No token is issued.
func (s *UserService) Unsuspend(ctx context.Context, actor *models.User, username string) (*models.UserSummary, error) {
	return s.setSuspended(ctx, actor, username, false)
}

func (s *UserService) setSuspended(ctx context.Context, actor *models.User, username string, suspended bool) (*models.UserSummary, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}

	user, err := s.userRepo.Update(ctx, NormalizeUsername(username), func(u *models.User) error {
		if err := CheckTarget(actor, u); err != nil {
			return err
		}
		u.Suspended = suspended
		if suspended {
			u.TokenHash = nil
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "user_unsuspend"
	if suspended {
		action = "user_suspend"
	}
	s.audit.Record(ctx, actor.Username, action, fmt.Sprintf("User %s suspended=%t", user.Username, suspended))

	summary := user.Summary()
	return &summary, nil
}

// ChangeRole sets the role of another user to Guest or VIP (owner only)
func (s *UserService) ChangeRole(ctx context.Context, actor *models.User, username, newRole string) (*models.UserSummary, error) {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return nil, err
	}
	role, err := AssignableRole(newRole)
	if err != nil {
		return nil, err
	}

	var oldRole models.Role
	user, err := s.userRepo.Update(ctx, NormalizeUsername(username), func(u *models.User) error {
		if err := CheckTarget(actor, u); err != nil {
			return err
		}
		oldRole = u.Role
		u.Role = role
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actor.Username, "user_role_change",
		fmt.Sprintf("User %s role %s -> %s", user.Username, oldRole, role))

	summary := user.Summary()
	return &summary, nil
}

// Delete removes another user's account (owner only)
func (s *UserService) Delete(ctx context.Context, actor *models.User, username string) error {
	if err := Authorize(actor, OpManageUsers); err != nil {
		return err
	}

	target, err := s.userRepo.FindByUsername(ctx, NormalizeUsername(username))
	if err != nil {
		return err
	}
	if err := CheckTarget(actor, target); err != nil {
		return err
	}
	if err := s.userRepo.Delete(ctx, target.Username); err != nil {
		return err
	}

	s.audit.Record(ctx, actor.Username, "user_delete", fmt.Sprintf("User %s deleted", target.Username))
	return nil
}

// Bootstrap creates the Owner account when none exists.
// If password is empty a random one is generated and returned so the caller can report it.
func (s *UserService) Bootstrap(ctx context.Context, username, password string) (string, error) {
	if _, err := s.userRepo.FindOwner(ctx); err == nil {
		return "", nil
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return "", err
	}

	generated := ""
	if password == "" {
		token, err := utils.GenerateToken()
		if err != nil {
			return "", err
		}
		password = token[:24]
		generated = password
	}

	user, err := s.create(ctx, username, password, models.RoleOwner)
	if err != nil {
		return "", fmt.Errorf("failed to bootstrap owner: %w", err)
	}

	s.audit.Record(ctx, user.Username, "owner_bootstrap", fmt.Sprintf("Owner %s created", user.Username))
	return generated, nil
}
