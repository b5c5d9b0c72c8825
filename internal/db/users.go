package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when no user row matches the lookup key.
var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID             uuid.UUID
	Email          string
	Name           *string
	Role           string
	PasswordHash   string
	AssignedStates []string
	CreatedAt      time.Time
}

const userColumns = `id, email, name, role, password_hash, assigned_states, created_at`

const getUserByIDSQL = `
select ` + userColumns + `
from users
where id = $1;
`

const getUserByEmailSQL = `
select ` + userColumns + `
from users
where lower(email) = lower($1);
`

const insertUserSQL = `
insert into users (email, name, role, password_hash, assigned_states)
values ($1, nullif($2, ''), $3, $4, $5)
returning ` + userColumns + `;
`

const setAssignedStatesSQL = `
update users
set assigned_states = $2
where id = $1
returning ` + userColumns + `;
`

// NewUser carries the fields required to create an account.
type NewUser struct {
	Email          string
	Name           string
	Role           string
	PasswordHash   string
	AssignedStates []string
}

func (p *Pool) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	if p == nil {
		return User{}, errors.New("nil db pool")
	}
	user, err := scanUser(p.QueryRow(ctx, getUserByIDSQL, id))
	if err != nil {
		return user, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (p *Pool) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if p == nil {
		return User{}, errors.New("nil db pool")
	}
	user, err := scanUser(p.QueryRow(ctx, getUserByEmailSQL, strings.TrimSpace(email)))
	if err != nil {
		return user, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

func (p *Pool) CreateUser(ctx context.Context, in NewUser) (User, error) {
	if p == nil {
		return User{}, errors.New("nil db pool")
	}
	states := in.AssignedStates
	if states == nil {
		states = []string{}
	}
	user, err := scanUser(p.QueryRow(ctx, insertUserSQL, strings.TrimSpace(in.Email), in.Name, in.Role, in.PasswordHash, states))
	if err != nil {
		return user, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (p *Pool) SetAssignedStates(ctx context.Context, id uuid.UUID, states []string) (User, error) {
	if p == nil {
		return User{}, errors.New("nil db pool")
	}
	if states == nil {
		states = []string{}
	}
	user, err := scanUser(p.QueryRow(ctx, setAssignedStatesSQL, id, states))
	if err != nil {
		return user, fmt.Errorf("set assigned states: %w", err)
	}
	return user, nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	var passwordHash *string
	err := row.Scan(&user.ID, &user.Email, &user.Name, &user.Role, &passwordHash, &user.AssignedStates, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	if passwordHash != nil {
		user.PasswordHash = *passwordHash
	}
	return user, nil
}
