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

func requireUser(tx *gorm.DB, userID int64) error {
	var count int64
	if err := tx.Model(&userRow{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if count == 0 {
		return repository.ErrUserNotFound
	}
	return nil
}

func listCalculations(tx *gorm.DB, userID int64) ([]model.Calculation, error) {
	var rows []calculationRow
	if err := tx.Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}

	calcs := make([]model.Calculation, 0, len(rows))
	for i := range rows {
		calcs = append(calcs, rows[i].toModel())
	}
	return calcs, nil
}

func wrapRead(what string, err error) error {
	if errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	return fmt.Errorf("failed to %s: %w", what, err)
}

// SaveCalculation appends a history row for the user.
func (s *Store) SaveCalculation(ctx context.Context, userID int64, op model.OperationKind, a, b, result float64) (int64, error) {
	row := calculationRow{
		UserID:    userID,
		Operation: string(op),
		NumA:      a,
		NumB:      b,
		Result:    result,
		CreatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return 0, wrapRead("save calculation", err)
	}
	return row.ID, nil
}

// ListCalculations returns the user's history, most recent first.
func (s *Store) ListCalculations(ctx context.Context, userID int64) ([]model.Calculation, error) {
	var calcs []model.Calculation

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireUser(tx, userID); err != nil {
			return err
		}
		var err error
		calcs, err = listCalculations(tx, userID)
		return err
	})
	if err != nil {
		return nil, wrapRead("list calculations", err)
	}
	return calcs, nil
}

// ExportUserData reads the user and history inside one transaction.
func (s *Store) ExportUserData(ctx context.Context, userID int64) (*model.ExportDocument, error) {
	var doc *model.ExportDocument

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Where("id = ?", userID).Take(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("read user: %w", err)
		}

		calcs, err := listCalculations(tx, userID)
		if err != nil {
			return err
		}
		doc = model.NewExportDocument(row.toModel(), calcs, time.Now())
		return nil
	})
	if err != nil {
		return nil, wrapRead("export user data", err)
	}
	return doc, nil
}
