// Package repository defines the credential store contract shared by the
// Postgres and SQLite backends.
package repository

import (
	"context"
	"errors"

	"github.com/numberadder/numberadder/internal/model"
)

// Common errors for store operations.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailExists  = errors.New("email already exists")
)

// Store persists users and their calculation history.
//
// Every method that references a user id returns ErrUserNotFound when the
// user does not exist. Each call is its own transaction.
type Store interface {
	// CreateUser inserts a user and returns its new id.
	CreateUser(ctx context.Context, email, passwordHash string) (int64, error)
	// GetOrCreateUser returns the user with email, creating it if absent.
	GetOrCreateUser(ctx context.Context, email, passwordHash string) (*model.User, bool, error)

	// FindUserByEmail returns the full record, including the password hash.
	FindUserByEmail(ctx context.Context, email string) (*model.User, error)
	// FindUserByID returns the user without its password hash.
	FindUserByID(ctx context.Context, id int64) (*model.User, error)
	FindUserByAPIKeyHash(ctx context.Context, hash string) (*model.User, error)
	FindUserByBillingRef(ctx context.Context, ref string) (*model.User, error)

	SetPremium(ctx context.Context, id int64) error
	SetBillingRef(ctx context.Context, id int64, ref string) error
	// SetAPIKeyHash overwrites the user's key hash (nil clears it) and
	// returns the hash it replaced.
	SetAPIKeyHash(ctx context.Context, id int64, hash *string) (*string, error)

	// DeleteUser removes the user and all of its calculations atomically
	// and returns the removed record.
	DeleteUser(ctx context.Context, id int64) (*model.User, error)

	SaveCalculation(ctx context.Context, userID int64, op model.OperationKind, a, b, result float64) (int64, error)
	// ListCalculations returns the user's history, most recent first.
	ListCalculations(ctx context.Context, userID int64) ([]model.Calculation, error)
	// ExportUserData reads the user and full history in one snapshot.
	ExportUserData(ctx context.Context, userID int64) (*model.ExportDocument, error)

	Ping(ctx context.Context) error
	Close()
}
