package service

import (
	"context"
	"testing"

	"student-registry/internal/metrics"
	"student-registry/internal/models"
	"student-registry/internal/repository"
	"student-registry/internal/testutil"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type fixture struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	creds    *CredentialService
	audit    *AuditService
	users    *UserService
	students *StudentService
	chat     *ChatService
	metrics  *metrics.Metrics
	owner    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.TestDB(t)
	userRepo := repository.NewUserRepo(db)
	creds, err := NewCredentialService(userRepo, bcrypt.MinCost)
	require.NoError(t, err)

	m := metrics.New("test")
	audit := NewAuditService(repository.NewAuditRepo(db))
	f := &fixture{
		db:       db,
		userRepo: userRepo,
		creds:    creds,
		audit:    audit,
		users:    NewUserService(userRepo, creds, audit, m),
		students: NewStudentService(repository.NewStudentRepo(db), audit, m),
		chat:     NewChatService(repository.NewChatRepo(db), m),
		metrics:  m,
	}

	_, err = f.users.Bootstrap(context.Background(), "owner", "ownerpass")
	require.NoError(t, err)
	f.owner = f.mustUser(t, "owner")
	return f
}

func (f *fixture) mustUser(t *testing.T, username string) *models.User {
	t.Helper()
	u, err := f.userRepo.FindByUsername(context.Background(), username)
	require.NoError(t, err)
	return u
}

// register creates a user with the given role and returns its current record
func (f *fixture) register(t *testing.T, username string, role models.Role) *models.User {
	t.Helper()
	ctx := context.Background()

	_, err := f.users.Register(ctx, username, "password1")
	require.NoError(t, err)
	if role != models.RoleGuest {
		_, err = f.users.ChangeRole(ctx, f.owner, username, string(role))
		require.NoError(t, err)
	}
	return f.mustUser(t, username)
}
