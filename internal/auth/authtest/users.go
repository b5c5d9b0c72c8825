// Package authtest provides an in-memory user store for tests.
package authtest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cgm/internal/db"
)

// Users is a concurrency-safe in-memory replacement for the users table.
type Users struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]db.User
	err     error
	lookups int
}

func NewUsers() *Users {
	return &Users{byID: make(map[uuid.UUID]db.User)}
}

// Add stores a user with the given role and password hash and returns it.
func (u *Users) Add(email, role, passwordHash string, states ...string) db.User {
	u.mu.Lock()
	defer u.mu.Unlock()

	user := db.User{
		ID:             uuid.New(),
		Email:          email,
		Role:           role,
		PasswordHash:   passwordHash,
		AssignedStates: states,
		CreatedAt:      time.Now().UTC(),
	}
	u.byID[user.ID] = user
	return user
}

func (u *Users) Remove(id uuid.UUID) {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.byID, id)
}

// Fail makes every subsequent lookup return err. Pass nil to recover.
func (u *Users) Fail(err error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.err = err
}

// Lookups returns how many lookups have been served.
func (u *Users) Lookups() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lookups
}

func (u *Users) GetUserByID(ctx context.Context, id uuid.UUID) (db.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lookups++

	if err := ctx.Err(); err != nil {
		return db.User{}, err
	}
	if u.err != nil {
		return db.User{}, u.err
	}
	user, ok := u.byID[id]
	if !ok {
		return db.User{}, db.ErrUserNotFound
	}
	return user, nil
}

func (u *Users) GetUserByEmail(ctx context.Context, email string) (db.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.lookups++

	if err := ctx.Err(); err != nil {
		return db.User{}, err
	}
	if u.err != nil {
		return db.User{}, u.err
	}
	for _, user := range u.byID {
		if strings.EqualFold(user.Email, strings.TrimSpace(email)) {
			return user, nil
		}
	}
	return db.User{}, db.ErrUserNotFound
}
