package model

import "time"

// OperationKind names an arithmetic operation.
type OperationKind string

// Supported operations.
const (
	OpAdd      OperationKind = "add"
	OpMultiply OperationKind = "multiply"
)

// Calculation is an immutable history record.
type Calculation struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"-"`
	Operation OperationKind `json:"operation"`
	A         float64       `json:"a"`
	B         float64       `json:"b"`
	Result    float64       `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
}

// CalculationResult is returned to the caller after a gated operation.
type CalculationResult struct {
	Operation OperationKind `json:"operation"`
	A         float64       `json:"a"`
	B         float64       `json:"b"`
	Result    float64       `json:"result"`
}
