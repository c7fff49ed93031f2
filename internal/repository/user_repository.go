package repository

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"vidstream-server/internal/domain"

	"github.com/go-kivik/kivik/v4"
)

// Sentinel errors the service layer matches with errors.Is.
var (
	// ErrNotFound means no document matched the lookup.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate means the username or email is already taken.
	ErrDuplicate = errors.New("username or email already exists")
	// ErrConflict means a write lost a revision race; the caller saw a
	// stale version of the document.
	ErrConflict = errors.New("document update conflict")
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// FindByIdentifier matches on username or email; empty arguments are
	// ignored. Both values are expected pre-normalized (lowercase, trimmed).
	FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error)
	// Update persists the full document. The document's revision must match
	// the stored one; a stale revision returns ErrConflict.
	Update(ctx context.Context, user *domain.User) error
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type userRepository struct {
	client *kivik.Client
	dbName string
}

func NewUserRepository(client *kivik.Client, dbName string) UserRepository {
	return &userRepository{
		client: client,
		dbName: dbName,
	}
}

func docID(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

func usernameDocID(username string) string {
	return fmt.Sprintf("username:%s", username)
}

func emailDocID(email string) string {
	return fmt.Sprintf("email:%s", email)
}

// reservation is a marker document whose _id carries the claimed
// identifier. CouchDB rejects a second put of the same _id with a 409,
// which is the only uniqueness primitive it offers, so holding the
// marker IS holding the username or email.
type reservation struct {
	Rev    string `json:"_rev,omitempty"`
	UserID string `json:"user_id"`
}

func reserve(ctx context.Context, db *kivik.DB, id, userID string) error {
	if _, err := db.Put(ctx, id, reservation{UserID: userID}); err != nil {
		if kivik.HTTPStatus(err) == http.StatusConflict {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to reserve %q: %w", id, err)
	}
	return nil
}

// release drops a reservation marker. Best effort: a marker that
// outlives its owner blocks reuse of the value but can never let two
// accounts share it.
func release(ctx context.Context, db *kivik.DB, id string) {
	var res reservation
	if err := db.Get(ctx, id).ScanDoc(&res); err != nil {
		return
	}
	_, _ = db.Delete(ctx, id, res.Rev)
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	db := r.client.DB(r.dbName)

	if err := reserve(ctx, db, usernameDocID(user.Username), user.ID); err != nil {
		return err
	}
	if err := reserve(ctx, db, emailDocID(user.Email), user.ID); err != nil {
		release(ctx, db, usernameDocID(user.Username))
		return err
	}

	rev, err := db.Put(ctx, docID(user.ID), user)
	if err != nil {
		release(ctx, db, usernameDocID(user.Username))
		release(ctx, db, emailDocID(user.Email))
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.Rev = rev

	return nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	db := r.client.DB(r.dbName)

	row := db.Get(ctx, docID(id))

	var user domain.User
	if err := row.ScanDoc(&user); err != nil {
		if kivik.HTTPStatus(err) == http.StatusNotFound {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user by id: %w", err)
	}

	return &user, nil
}

func (r *userRepository) FindByIdentifier(ctx context.Context, username, email string) (*domain.User, error) {
	var or []map[string]interface{}
	if username != "" {
		or = append(or, map[string]interface{}{"username": username})
	}
	if email != "" {
		or = append(or, map[string]interface{}{"email": email})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}

	query := map[string]interface{}{
		"selector": map[string]interface{}{
			"$or": or,
		},
		"limit": 1,
	}

	db := r.client.DB(r.dbName)

	rows := db.Find(ctx, query)
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query user by identifier: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}

	var user domain.User
	if err := rows.ScanDoc(&user); err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	db := r.client.DB(r.dbName)

	current, err := r.FindByID(ctx, user.ID)
	if err != nil {
		return err
	}

	// An identifier change has to move its reservation marker, or the old
	// value stays blocked and the new one is open for a second claim.
	usernameChanged := user.Username != current.Username
	emailChanged := user.Email != current.Email

	if usernameChanged {
		if err := reserve(ctx, db, usernameDocID(user.Username), user.ID); err != nil {
			return err
		}
	}
	if emailChanged {
		if err := reserve(ctx, db, emailDocID(user.Email), user.ID); err != nil {
			if usernameChanged {
				release(ctx, db, usernameDocID(user.Username))
			}
			return err
		}
	}

	rev, err := db.Put(ctx, docID(user.ID), user)
	if err != nil {
		if usernameChanged {
			release(ctx, db, usernameDocID(user.Username))
		}
		if emailChanged {
			release(ctx, db, emailDocID(user.Email))
		}
		switch kivik.HTTPStatus(err) {
		case http.StatusConflict:
			return ErrConflict
		case http.StatusNotFound:
			return ErrNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	user.Rev = rev

	if usernameChanged {
		release(ctx, db, usernameDocID(current.Username))
	}
	if emailChanged {
		release(ctx, db, emailDocID(current.Email))
	}

	return nil
}

func (r *userRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := r.FindByIdentifier(ctx, "", email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r *userRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByIdentifier(ctx, username, "")
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
