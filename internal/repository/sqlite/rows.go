package sqlite

import (
	"time"

	"github.com/numberadder/numberadder/internal/model"
)

type userRow struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Email             string    `gorm:"column:email"`
	PasswordHash      string    `gorm:"column:password_hash"`
	IsPremium         bool      `gorm:"column:is_premium"`
	BillingCustomerID *string   `gorm:"column:billing_customer_id"`
	APIKeyHash        *string   `gorm:"column:api_key_hash"`
	CreatedAt         time.Time `gorm:"column:created_at"`
}

func (userRow) TableName() string { return "users" }

func (r *userRow) toModel() *model.User {
	return &model.User{
		ID:           r.ID,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Premium:      r.IsPremium,
		BillingRef:   r.BillingCustomerID,
		APIKeyHash:   r.APIKeyHash,
		CreatedAt:    r.CreatedAt,
	}
}

type calculationRow struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id"`
	Operation string    `gorm:"column:operation"`
	NumA      float64   `gorm:"column:num_a"`
	NumB      float64   `gorm:"column:num_b"`
	Result    float64   `gorm:"column:result"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (calculationRow) TableName() string { return "calculations" }

func (r *calculationRow) toModel() model.Calculation {
	return model.Calculation{
		ID:        r.ID,
		UserID:    r.UserID,
		Operation: model.OperationKind(r.Operation),
		A:         r.NumA,
		B:         r.NumB,
		Result:    r.Result,
		CreatedAt: r.CreatedAt,
	}
}
