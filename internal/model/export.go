package model

import "time"

// ExportUser is the user section of a data-portability document.
type ExportUser struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Premium   bool      `json:"premium"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportDocument is the GDPR data-portability document.
// Calculations are ordered most recent first.
type ExportDocument struct {
	User            ExportUser    `json:"user"`
	Calculations    []Calculation `json:"calculations"`
	ExportTimestamp time.Time     `json:"export_timestamp"`
}

// NewExportDocument assembles an export from a user and their history.
func NewExportDocument(user *User, calculations []Calculation, now time.Time) *ExportDocument {
	if calculations == nil {
		calculations = []Calculation{}
	}
	return &ExportDocument{
		User: ExportUser{
			ID:        user.ID,
			Email:     user.Email,
			Premium:   user.Premium,
			CreatedAt: user.CreatedAt,
		},
		Calculations:    calculations,
		ExportTimestamp: now.UTC(),
	}
}
