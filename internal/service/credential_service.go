package service

import (
	"context"
	"errors"
	"fmt"

	"student-registry/internal/apperr"
	"student-registry/internal/models"
	"student-registry/internal/repository"
	"student-registry/pkg/utils"
)

// CredentialService hashes passwords and issues and resolves API tokens.
// Tokens are stored as SHA-256 hashes on the user row; a user holds at most one.
type CredentialService struct {
	userRepo   *repository.UserRepository
	bcryptCost int

	// compared against when the username is unknown so that login timing
	// does not reveal whether an account exists
	dummyHash string
}

func NewCredentialService(userRepo *repository.UserRepository, bcryptCost int) (*CredentialService, error) {
	dummy, err := utils.HashPassword("not-a-real-password", bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare dummy hash: %w", err)
	}
	return &CredentialService{
		userRepo:   userRepo,
		bcryptCost: bcryptCost,
		dummyHash:  dummy,
	}, nil
}

func (s *CredentialService) HashPassword(password string) (string, error) {
	hash, err := utils.HashPassword(password, s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return hash, nil
}

// VerifyPassword checks password against digest. A nil user burns the same
// time against the dummy hash and always fails.
func (s *CredentialService) VerifyPassword(user *models.User, password string) bool {
	if user == nil {
		utils.ComparePassword(s.dummyHash, password)
		return false
	}
	return utils.ComparePassword(user.PasswordHash, password)
}

// IssueToken generates a new token for username, invalidating the previous one
func (s *CredentialService) IssueToken(ctx context.Context, username string) (string, error) {
	token, err := utils.GenerateToken()
	if err != nil {
		return "", err
	}
	hash := utils.HashToken(token)
	if err := s.userRepo.SetTokenHash(ctx, username, &hash); err != nil {
		return "", err
	}
	return token, nil
}

// RevokeToken drops the active token of username
func (s *CredentialService) RevokeToken(ctx context.Context, username string) error {
	return s.userRepo.SetTokenHash(ctx, username, nil)
}

// ResolveToken returns the user bound to token
func (s *CredentialService) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", apperr.ErrUnauthenticated)
	}

	user, err := s.userRepo.FindByTokenHash(ctx, utils.HashToken(token))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid token", apperr.ErrUnauthenticated)
		}
		return nil, err
	}
	if user.Suspended {
		return nil, fmt.Errorf("%w: account suspended", apperr.ErrForbidden)
	}
	return user, nil
}
