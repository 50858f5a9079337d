package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

const userColumns = `id, email, password_hash, is_premium, billing_customer_id, api_key_hash, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.Premium,
		&u.BillingRef,
		&u.APIKeyHash,
		&u.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Store) findUser(ctx context.Context, what, where string, arg any) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	user, err := scanUser(s.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", what, err)
	}
	return user, nil
}

// CreateUser inserts a new user and returns the assigned id.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	query := `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id
	`

	var id int64
	if err := s.pool.QueryRow(ctx, query, email, passwordHash).Scan(&id); err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrEmailExists
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return id, nil
}

// GetOrCreateUser gets a user by email or creates one if not found.
func (s *Store) GetOrCreateUser(ctx context.Context, email, passwordHash string) (*model.User, bool, error) {
	existing, err := s.FindUserByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, false, err
	}

	id, err := s.CreateUser(ctx, email, passwordHash)
	if err != nil {
		// Handle race condition - another request may have created it
		if errors.Is(err, repository.ErrEmailExists) {
			existing, err := s.FindUserByEmail(ctx, email)
			return existing, false, err
		}
		return nil, false, err
	}

	created, err := s.FindUserByID(ctx, id)
	return created, true, err
}

// FindUserByEmail retrieves a user by exact email, including the password hash.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.findUser(ctx, "email", "email = $1", email)
}

// FindUserByID retrieves a user by id without the password hash.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	user, err := s.findUser(ctx, "ID", "id = $1", id)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// FindUserByAPIKeyHash retrieves the user owning an API key hash.
func (s *Store) FindUserByAPIKeyHash(ctx context.Context, hash string) (*model.User, error) {
	user, err := s.findUser(ctx, "API key", "api_key_hash = $1", hash)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// FindUserByBillingRef retrieves the user linked to a billing customer.
func (s *Store) FindUserByBillingRef(ctx context.Context, ref string) (*model.User, error) {
	user, err := s.findUser(ctx, "billing ref", "billing_customer_id = $1", ref)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

func (s *Store) execOne(ctx context.Context, what, query string, args ...any) error {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", what, err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// SetPremium marks the user as premium. Re-applying is a no-op.
func (s *Store) SetPremium(ctx context.Context, id int64) error {
	return s.execOne(ctx, "set premium", `UPDATE users SET is_premium = TRUE WHERE id = $1`, id)
}

// SetBillingRef records the external billing customer id.
func (s *Store) SetBillingRef(ctx context.Context, id int64, ref string) error {
	return s.execOne(ctx, "set billing ref", `UPDATE users SET billing_customer_id = $2 WHERE id = $1`, id, ref)
}

// SetAPIKeyHash atomically overwrites the key hash and returns the previous one.
func (s *Store) SetAPIKeyHash(ctx context.Context, id int64, hash *string) (*string, error) {
	query := `
		UPDATE users u
		SET api_key_hash = $2
		FROM (SELECT id, api_key_hash FROM users WHERE id = $1 FOR UPDATE) prev
		WHERE u.id = prev.id
		RETURNING prev.api_key_hash
	`

	var previous *string
	if err := s.pool.QueryRow(ctx, query, id, hash).Scan(&previous); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to set api key hash: %w", err)
	}
	return previous, nil
}

// DeleteUser removes the user and its calculations in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id int64) (*model.User, error) {
	var deleted *model.User

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM calculations WHERE user_id = $1`, id); err != nil {
			return fmt.Errorf("delete calculations: %w", err)
		}

		user, err := scanUser(tx.QueryRow(ctx, `DELETE FROM users WHERE id = $1 RETURNING `+userColumns, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("delete user: %w", err)
		}
		user.PasswordHash = ""
		deleted = user
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete user: %w", err)
	}

	return deleted, nil
}
