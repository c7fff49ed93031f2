package service

import (
	"context"
	"testing"
	"time"

	"vidstream-server/internal/domain"
	"vidstream-server/internal/repository"
	"vidstream-server/pkg/hash"
	"vidstream-server/pkg/token"
)

// mockUserRepository stores copies of documents so that, as with the real
// store, a service-side mutation only becomes visible through Update.
type mockUserRepository struct {
	users map[string]*domain.User

	createErr error
	updateErr error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func clone(u *domain.User) *domain.User {
	c := *u
	c.WatchHistory = append([]string(nil), u.WatchHistory...)
	return &c
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return clone(user), nil
}

func (m *mockUserRepository) FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error) {
	for _, user := range m.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return clone(user), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrNotFound
	}
	m.users[user.ID] = clone(user)
	return nil
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := m.FindByIdentifier(ctx, "", email)
	return err == nil, nil
}

func (m *mockUserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := m.FindByIdentifier(ctx, username, "")
	return err == nil, nil
}

func newTestTokenManager() *token.Manager {
	return token.NewManager(token.Config{
		AccessSecret:      "test-access-secret",
		AccessExpiration:  15 * time.Minute,
		RefreshSecret:     "test-refresh-secret",
		RefreshExpiration: 7 * 24 * time.Hour,
	})
}

func seedUser(t *testing.T, repo *mockUserRepository, username, email, password string) *domain.User {
	t.Helper()
	hashed, err := hash.Hash(password)
	if err != nil {
		t.Fatalf("hash.Hash() error = %v", err)
	}
	user := &domain.User{
		ID:       "id-" + username,
		Username: username,
		Email:    email,
		FullName: "Test " + username,
		Password: hashed,
		Avatar:   "http://blobs/avatar-" + username,
	}
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	seedUser(t, repo, "bob", "bob@x.com", "pw123secret")

	tests := []struct {
		name     string
		req      *domain.LoginRequest
		wantKind Kind
	}{
		{
			name: "login by username",
			req:  &domain.LoginRequest{Username: "bob", Password: "pw123secret"},
		},
		{
			name: "login by email",
			req:  &domain.LoginRequest{Email: "bob@x.com", Password: "pw123secret"},
		},
		{
			name: "identifier case is normalized",
			req:  &domain.LoginRequest{Username: "  BOB ", Password: "pw123secret"},
		},
		{
			name:     "unknown user",
			req:      &domain.LoginRequest{Username: "nobody", Password: "pw123secret"},
			wantKind: KindNotFound,
		},
		{
			name:     "wrong password",
			req:      &domain.LoginRequest{Username: "bob", Password: "wrongpassword"},
			wantKind: KindUnauthorized,
		},
		{
			name:     "missing identifier",
			req:      &domain.LoginRequest{Password: "pw123secret"},
			wantKind: KindInvalidInput,
		},
		{
			name:     "missing password",
			req:      &domain.LoginRequest{Username: "bob"},
			wantKind: KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.Login(ctx, tt.req)

			if tt.wantKind != 0 {
				if err == nil {
					t.Fatal("Login() expected error but got none")
				}
				if !IsKind(err, tt.wantKind) {
					t.Fatalf("Login() error kind = %v, want %v", err, tt.wantKind)
				}
				return
			}

			if err != nil {
				t.Fatalf("Login() error = %v", err)
			}
			if resp.AccessToken == "" || resp.RefreshToken == "" {
				t.Error("Login() returned empty token pair")
			}
			if resp.User.Password != "" || resp.User.RefreshToken != "" {
				t.Error("Login() returned unsanitized user")
			}

			stored, err := repo.FindByID(ctx, resp.User.ID)
			if err != nil {
				t.Fatalf("FindByID() error = %v", err)
			}
			if stored.RefreshToken != resp.RefreshToken {
				t.Error("Login() did not persist the issued refresh token")
			}
		})
	}
}

func TestAuthService_RefreshRotation(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	seedUser(t, repo, "bob", "bob@x.com", "pw123secret")

	login, err := svc.Login(ctx, &domain.LoginRequest{Username: "bob", Password: "pw123secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// First use of the refresh token succeeds and rotates the stored value.
	pair, err := svc.Refresh(ctx, login.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if pair.RefreshToken == login.RefreshToken {
		t.Error("Refresh() did not rotate the refresh token")
	}

	// Replaying the original token must fail: it is still structurally
	// valid but no longer matches the stored value.
	if _, err := svc.Refresh(ctx, login.RefreshToken); !IsKind(err, KindUnauthorized) {
		t.Errorf("Refresh() replay error = %v, want Unauthorized", err)
	}

	// The rotated token still works exactly once.
	if _, err := svc.Refresh(ctx, pair.RefreshToken); err != nil {
		t.Errorf("Refresh() with rotated token error = %v", err)
	}
}

func TestAuthService_RefreshRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage string", token: "garbage"},
		{name: "empty token", token: ""},
		{name: "structured but unsigned", token: "a.b.c"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Refresh(ctx, tt.token); !IsKind(err, KindUnauthorized) {
				t.Errorf("Refresh(%q) error = %v, want Unauthorized", tt.token, err)
			}
		})
	}
}

func TestAuthService_LoginRotatesPreviousSession(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	seedUser(t, repo, "bob", "bob@x.com", "pw123secret")

	first, err := svc.Login(ctx, &domain.LoginRequest{Username: "bob", Password: "pw123secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if _, err := svc.Login(ctx, &domain.LoginRequest{Username: "bob", Password: "pw123secret"}); err != nil {
		t.Fatalf("second Login() error = %v", err)
	}

	// Single-session policy: the second login superseded the first.
	if _, err := svc.Refresh(ctx, first.RefreshToken); !IsKind(err, KindUnauthorized) {
		t.Errorf("Refresh() with superseded token error = %v, want Unauthorized", err)
	}
}

func TestAuthService_LogoutInvalidatesRefresh(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	user := seedUser(t, repo, "bob", "bob@x.com", "pw123secret")

	login, err := svc.Login(ctx, &domain.LoginRequest{Username: "bob", Password: "pw123secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	if err := svc.Logout(ctx, user.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	stored, err := repo.FindByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if stored.RefreshToken != "" {
		t.Error("Logout() did not clear the stored refresh token")
	}

	if _, err := svc.Refresh(ctx, login.RefreshToken); !IsKind(err, KindUnauthorized) {
		t.Errorf("Refresh() after logout error = %v, want Unauthorized", err)
	}
}

func TestAuthService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	user := seedUser(t, repo, "bob", "bob@x.com", "pw123secret")
	originalHash := repo.users[user.ID].Password

	// Wrong current password: rejected, stored hash untouched.
	err := svc.ChangePassword(ctx, user.ID, "wrongpassword", "newpassword1")
	if !IsKind(err, KindUnauthorized) {
		t.Fatalf("ChangePassword() error = %v, want Unauthorized", err)
	}
	if repo.users[user.ID].Password != originalHash {
		t.Fatal("ChangePassword() modified the hash despite failed verification")
	}
	if err := hash.Compare(repo.users[user.ID].Password, "pw123secret"); err != nil {
		t.Fatal("old password no longer verifies after rejected change")
	}

	// Correct current password: hash replaced, old password stops working.
	if err := svc.ChangePassword(ctx, user.ID, "pw123secret", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
	stored := repo.users[user.ID]
	if stored.Password == originalHash {
		t.Error("ChangePassword() did not replace the stored hash")
	}
	if err := hash.Compare(stored.Password, "newpassword1"); err != nil {
		t.Errorf("new password does not verify: %v", err)
	}
	if err := hash.Compare(stored.Password, "pw123secret"); err == nil {
		t.Error("old password still verifies after change")
	}

	// Missing fields.
	if err := svc.ChangePassword(ctx, user.ID, "", ""); !IsKind(err, KindInvalidInput) {
		t.Errorf("ChangePassword() error = %v, want InvalidInput", err)
	}
}

func TestAuthService_RefreshLosesRotationRace(t *testing.T) {
	ctx := context.Background()
	repo := newMockUserRepository()
	svc := NewAuthService(repo, newTestTokenManager())

	seedUser(t, repo, "bob", "bob@x.com", "pw123secret")

	login, err := svc.Login(ctx, &domain.LoginRequest{Username: "bob", Password: "pw123secret"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}

	// The store reports a revision conflict: another refresh using the
	// same token won the write. The loser sees Unauthorized.
	repo.updateErr = repository.ErrConflict
	if _, err := svc.Refresh(ctx, login.RefreshToken); !IsKind(err, KindUnauthorized) {
		t.Errorf("Refresh() on losing race error = %v, want Unauthorized", err)
	}
}
