package repository

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"vidstream-server/internal/domain"

	"github.com/go-kivik/kivik/v4/mockdb"
)

type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string   { return e.message }
func (e *statusError) HTTPStatus() int { return e.status }

func conflictError() error {
	return &statusError{status: http.StatusConflict, message: "Document update conflict."}
}

func newTestRepository(t *testing.T) (UserRepository, *mockdb.Client, *mockdb.DB) {
	t.Helper()

	client, mock, err := mockdb.New()
	if err != nil {
		t.Fatalf("mockdb.New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })

	db := mock.NewDB()
	mock.ExpectDB().WithName("vidstream").WillReturn(db)

	return NewUserRepository(client, "vidstream"), mock, db
}

func testUser() *domain.User {
	now := time.Now()
	return &domain.User{
		ID:        "u1",
		Username:  "bob",
		Email:     "bob@x.com",
		FullName:  "Bob B",
		Password:  "$2a$12$hash",
		Avatar:    "http://blobs/avatar.png",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUserRepository_CreateReservesIdentifiers(t *testing.T) {
	repo, mock, db := newTestRepository(t)

	db.ExpectPut().WithDocID("username:bob").WillReturn("1-a")
	db.ExpectPut().WithDocID("email:bob@x.com").WillReturn("1-b")
	db.ExpectPut().WithDocID("user:u1").WillReturn("1-c")

	user := testUser()
	if err := repo.Create(context.Background(), user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if user.Rev != "1-c" {
		t.Errorf("Create() rev = %q, want %q", user.Rev, "1-c")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateUsernameTaken(t *testing.T) {
	// Two concurrent registrations of the same username both pass any
	// read-side check; only one can win the put of the username marker.
	// The loser must see ErrDuplicate and write nothing else.
	repo, mock, db := newTestRepository(t)

	db.ExpectPut().WithDocID("username:bob").WillReturnError(conflictError())

	if err := repo.Create(context.Background(), testUser()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create() error = %v, want ErrDuplicate", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestUserRepository_CreateEmailTakenReleasesUsername(t *testing.T) {
	repo, mock, db := newTestRepository(t)

	db.ExpectPut().WithDocID("username:bob").WillReturn("1-a")
	db.ExpectPut().WithDocID("email:bob@x.com").WillReturnError(conflictError())
	// The username marker claimed above must be handed back.
	db.ExpectGet().WithDocID("username:bob").
		WillReturn(mockdb.DocumentT(t, `{"_id":"username:bob","_rev":"1-a","user_id":"u1"}`))
	db.ExpectDelete().WithDocID("username:bob").WillReturn("2-a")

	if err := repo.Create(context.Background(), testUser()); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("Create() error = %v, want ErrDuplicate", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
