package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

// SaveCalculation appends a history row for the user.
func (s *Store) SaveCalculation(ctx context.Context, userID int64, op model.OperationKind, a, b, result float64) (int64, error) {
	query := `
		INSERT INTO calculations (user_id, operation, num_a, num_b, result)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	if err := s.pool.QueryRow(ctx, query, userID, string(op), a, b, result).Scan(&id); err != nil {
		if isForeignKeyViolation(err) {
			return 0, repository.ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to save calculation: %w", err)
	}
	return id, nil
}

// ListCalculations returns the user's history, most recent first.
func (s *Store) ListCalculations(ctx context.Context, userID int64) ([]model.Calculation, error) {
	var calcs []model.Calculation

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{AccessMode: pgx.ReadOnly}, func(tx pgx.Tx) error {
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		var err error
		calcs, err = listCalculations(ctx, tx, userID)
		return err
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to list calculations: %w", err)
	}
	return calcs, nil
}

// ExportUserData reads the user and history from one repeatable-read snapshot.
func (s *Store) ExportUserData(ctx context.Context, userID int64) (*model.ExportDocument, error) {
	var doc *model.ExportDocument

	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		user, err := scanUser(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return repository.ErrUserNotFound
			}
			return fmt.Errorf("read user: %w", err)
		}

		calcs, err := listCalculations(ctx, tx, userID)
		if err != nil {
			return err
		}

		doc = model.NewExportDocument(user, calcs, time.Now())
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to export user data: %w", err)
	}
	return doc, nil
}

func requireUser(ctx context.Context, tx pgx.Tx, userID int64) error {
	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
		return fmt.Errorf("check user: %w", err)
	}
	if !exists {
		return repository.ErrUserNotFound
	}
	return nil
}

func listCalculations(ctx context.Context, tx pgx.Tx, userID int64) ([]model.Calculation, error) {
	query := `
		SELECT id, user_id, operation, num_a, num_b, result, created_at
		FROM calculations
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := tx.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	calcs := make([]model.Calculation, 0)
	for rows.Next() {
		var c model.Calculation
		var op string
		if err := rows.Scan(&c.ID, &c.UserID, &op, &c.A, &c.B, &c.Result, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		c.Operation = model.OperationKind(op)
		calcs = append(calcs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate calculations: %w", err)
	}
	return calcs, nil
}
