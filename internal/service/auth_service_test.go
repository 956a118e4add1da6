package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/civic-kit/municipal-services/internal/auth"
	"github.com/civic-kit/municipal-services/internal/domain"
	apperrors "github.com/civic-kit/municipal-services/pkg/util/errorutil"
)

func newAuthService() (*AuthService, *memDB, *auth.TokenManager) {
	store, db, _ := newTestStore()
	tokens := auth.NewTokenManager("test-secret", 15)
	svc := NewAuthService(AuthDependencies{
		Users:      store.Users,
		Tokens:     tokens,
		BcryptCost: 4,
	})
	return svc, db, tokens
}

func TestRegisterCreatesCitizen(t *testing.T) {
	svc, _, tokens := newAuthService()

	session, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Dana Lopez",
		Email:    "Dana@Example.Test",
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.Equal(t, domain.RoleCitizen, session.User.Role)
	require.True(t, session.User.Active)
	require.Equal(t, "dana@example.test", session.User.Email)

	claims, err := tokens.ParseToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, session.User.ID, claims.UserID)
	require.Equal(t, domain.RoleCitizen, claims.Role)
}

func TestRegisterRejectsDuplicateEmailAndShortPassword(t *testing.T) {
	svc, _, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Dana",
		Email:    "dana@example.test",
		Password: "short",
	})
	require.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))

	_, err = svc.Register(context.Background(), RegisterInput{
		Name:     "Dana",
		Email:    "dana@example.test",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), RegisterInput{
		Name:     "Other Dana",
		Email:    "dana@example.test",
		Password: "battery staple",
	})
	require.True(t, apperrors.IsCode(err, "CONFLICT"))
}

func TestLoginVerifiesCredentials(t *testing.T) {
	svc, db, _ := newAuthService()

	_, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Dana",
		Email:    "dana@example.test",
		Password: "correct horse",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "dana@example.test", "wrong")
	require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	_, err = svc.Login(context.Background(), "nobody@example.test", "whatever")
	require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))

	session, err := svc.Login(context.Background(), "dana@example.test", "correct horse")
	require.NoError(t, err)
	require.Equal(t, "dana@example.test", session.User.Email)

	// disabled accounts cannot log in
	db.mu.Lock()
	stale := db.users[session.User.ID]
	stale.Active = false
	db.users[session.User.ID] = stale
	db.mu.Unlock()

	_, err = svc.Login(context.Background(), "dana@example.test", "correct horse")
	require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestListTechniciansRequiresAssignerRole(t *testing.T) {
	svc, db, _ := newAuthService()
	manager := seedUser(db, domain.RoleManager)
	technician := seedUser(db, domain.RoleTechnician)
	seedUser(db, domain.RoleCitizen)

	_, err := svc.ListTechnicians(context.Background(), technician)
	require.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	technicians, err := svc.ListTechnicians(context.Background(), manager)
	require.NoError(t, err)
	require.Len(t, technicians, 1)
	require.Equal(t, technician.ID, technicians[0].ID)
}
