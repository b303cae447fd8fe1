package user

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	users map[string]*User
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*User)}
}

func (f *fakeStore) CreateUser(ctx context.Context, u *User) error {
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, id string) (*User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeStore) UpdateUser(ctx context.Context, u *User) error {
	if _, ok := f.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func TestRegister(t *testing.T) {
	svc := NewService(newFakeStore())

	u, err := svc.Register(context.Background(), "  Press@Example.COM ", "longenough", "Press Owner", "Paper & Co.")
	require.NoError(t, err)

	assert.Equal(t, "press@example.com", u.Email, "email is normalized")
	assert.Equal(t, RoleCustomer, u.Role)
	assert.False(t, u.Approved, "new accounts await approval")
	assert.True(t, u.Active)
	assert.NotEmpty(t, u.PasswordHash)
	assert.NotEqual(t, "longenough", u.PasswordHash)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Register(context.Background(), "press@example.com", "longenough", "A", "")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), "PRESS@example.com", "longenough", "B", "")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(newFakeStore())

	_, err := svc.Register(context.Background(), "not-an-email", "longenough", "A", "")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	_, err = svc.Register(context.Background(), "ok@example.com", "short", "A", "")
	assert.Error(t, err)
}

func TestAuthenticate(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Register(context.Background(), "press@example.com", "longenough", "A", "")
	require.NoError(t, err)

	got, err := svc.Authenticate(context.Background(), "Press@Example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(context.Background(), "press@example.com", "wrong-password")
	assert.ErrorIs(t, err, ErrWrongPassword)

	// An unknown email and a wrong password are indistinguishable.
	_, err = svc.Authenticate(context.Background(), "nobody@example.com", "longenough")
	assert.ErrorIs(t, err, ErrWrongPassword)
}

func TestAuthenticateInactive(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Register(context.Background(), "press@example.com", "longenough", "A", "")
	require.NoError(t, err)
	require.NoError(t, svc.Deactivate(context.Background(), u.ID))

	_, err = svc.Authenticate(context.Background(), "press@example.com", "longenough")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestApprove(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store)

	u, err := svc.Register(context.Background(), "press@example.com", "longenough", "A", "")
	require.NoError(t, err)

	approved, err := svc.Approve(context.Background(), u.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)

	_, err = svc.Approve(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("a@b.co"))
	assert.True(t, ValidEmail("  Upper@Case.COM "))
	assert.False(t, ValidEmail("missing-at.com"))
	assert.False(t, ValidEmail("@leading.dot"))
	assert.False(t, ValidEmail("no@dots"))
	assert.False(t, ValidEmail("spa ce@b.co"))
}
