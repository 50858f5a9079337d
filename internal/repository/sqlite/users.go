package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

func (s *Store) findUser(ctx context.Context, what string, query any, args ...any) (*model.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where(query, args...).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", what, err)
	}
	return row.toModel(), nil
}

func (s *Store) findPublicUser(ctx context.Context, what string, query any, args ...any) (*model.User, error) {
	user, err := s.findUser(ctx, what, query, args...)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = ""
	return user, nil
}

// CreateUser inserts a new user and returns the assigned id.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (int64, error) {
	row := userRow{
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return 0, repository.ErrEmailExists
		}
		return 0, fmt.Errorf("failed to create user: %w", err)
	}
	return row.ID, nil
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
	return s.findUser(ctx, "email", "email = ?", email)
}

// FindUserByID retrieves a user by id without the password hash.
func (s *Store) FindUserByID(ctx context.Context, id int64) (*model.User, error) {
	return s.findPublicUser(ctx, "ID", "id = ?", id)
}

// FindUserByAPIKeyHash retrieves the user owning an API key hash.
func (s *Store) FindUserByAPIKeyHash(ctx context.Context, hash string) (*model.User, error) {
	return s.findPublicUser(ctx, "API key", "api_key_hash = ?", hash)
}

// FindUserByBillingRef retrieves the user linked to a billing customer.
func (s *Store) FindUserByBillingRef(ctx context.Context, ref string) (*model.User, error) {
	return s.findPublicUser(ctx, "billing ref", "billing_customer_id = ?", ref)
}

func (s *Store) updateOne(ctx context.Context, what string, id int64, column string, value any) error {
	// Update, not Updates, so zero values are written.
	result := s.db.WithContext(ctx).Model(&userRow{}).Where("id = ?", id).Update(column, value)
	if result.Error != nil {
		return fmt.Errorf("failed to %s: %w", what, result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

// SetPremium marks the user as premium. Re-applying is a no-op.
func (s *Store) SetPremium(ctx context.Context, id int64) error {
	return s.updateOne(ctx, "set premium", id, "is_premium", true)
}

// SetBillingRef records the external billing customer id.
func (s *Store) SetBillingRef(ctx context.Context, id int64, ref string) error {
	return s.updateOne(ctx, "set billing ref", id, "billing_customer_id", ref)
}

// SetAPIKeyHash atomically overwrites the key hash and returns the previous one.
func (s *Store) SetAPIKeyHash(ctx context.Context, id int64, hash *string) (*string, error) {
	var previous *string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Select("id", "api_key_hash").Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("read api key hash: %w", err)
		}
		previous = row.APIKeyHash

		if err := tx.Model(&userRow{}).Where("id = ?", id).Update("api_key_hash", hash).Error; err != nil {
			return fmt.Errorf("write api key hash: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to set api key hash: %w", err)
	}
	return previous, nil
}

// DeleteUser removes the user and its calculations in one transaction.
func (s *Store) DeleteUser(ctx context.Context, id int64) (*model.User, error) {
	var deleted *model.User

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Where("id = ?", id).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("read user: %w", err)
		}

		if err := tx.Where("user_id = ?", id).Delete(&calculationRow{}).Error; err != nil {
			return fmt.Errorf("delete calculations: %w", err)
		}
		result := tx.Where("id = ?", id).Delete(&userRow{})
		if result.Error != nil {
			return fmt.Errorf("delete user: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return repository.ErrUserNotFound
		}

		deleted = row.toModel()
		deleted.PasswordHash = ""
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
