package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/numberadder/numberadder/internal/analytics"
	"github.com/numberadder/numberadder/internal/metrics"
	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

// ErrOperationExists is returned when registering a kind twice.
var ErrOperationExists = errors.New("operation already registered")

// Operation is a gated arithmetic operation.
type Operation struct {
	Kind        model.OperationKind
	Tier        model.Tier
	Description string
	Compute     func(a, b float64) float64
}

// OperationInfo describes an operation to clients.
type OperationInfo struct {
	Name        model.OperationKind `json:"name"`
	Tier        model.Tier          `json:"tier"`
	Description string              `json:"description"`
}

// DefaultOperations returns the built-in operation set.
func DefaultOperations() []Operation {
	return []Operation{
		{
			Kind:        model.OpAdd,
			Tier:        model.TierStandard,
			Description: "Add two numbers",
			Compute:     func(a, b float64) float64 { return a + b },
		},
		{
			Kind:        model.OpMultiply,
			Tier:        model.TierPremium,
			Description: "Multiply two numbers",
			Compute:     func(a, b float64) float64 { return a * b },
		},
	}
}

// Gateway checks plan tier, computes, and records calculations.
type Gateway struct {
	store   repository.Store
	events  analytics.EventPublisher
	logger  *slog.Logger
	metrics metrics.Recorder

	mu    sync.RWMutex
	ops   map[model.OperationKind]Operation
	order []model.OperationKind
}

// NewGateway creates a Gateway with the default operations registered.
func NewGateway(store repository.Store, events analytics.EventPublisher, logger *slog.Logger, recorder metrics.Recorder) *Gateway {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if events == nil {
		events = analytics.NoopPublisher{}
	}
	g := &Gateway{
		store:   store,
		events:  events,
		logger:  logger.With("component", "gateway"),
		metrics: recorder,
		ops:     make(map[model.OperationKind]Operation),
	}
	for _, op := range DefaultOperations() {
		_ = g.Register(op)
	}
	return g
}

// Register adds an operation.
func (g *Gateway) Register(op Operation) error {
	if op.Kind == "" || op.Compute == nil {
		return fmt.Errorf("register operation: %w", model.ErrInvalidInput)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.ops[op.Kind]; ok {
		return ErrOperationExists
	}
	g.ops[op.Kind] = op
	g.order = append(g.order, op.Kind)
	return nil
}

// Operations lists registered operations in registration order.
func (g *Gateway) Operations() []OperationInfo {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]OperationInfo, 0, len(g.order))
	for _, kind := range g.order {
		op := g.ops[kind]
		out = append(out, OperationInfo{Name: op.Kind, Tier: op.Tier, Description: op.Description})
	}
	return out
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Perform runs kind for the user and persists one calculation row.
func (g *Gateway) Perform(ctx context.Context, userID int64, kind model.OperationKind, a, b float64) (*model.CalculationResult, error) {
	g.mu.RLock()
	op, ok := g.ops[kind]
	g.mu.RUnlock()
	if !ok {
		g.metrics.IncCalculation(string(kind), "invalid")
		return nil, model.ErrUnsupportedOperation
	}

	if !finite(a) || !finite(b) {
		g.metrics.IncCalculation(string(kind), "invalid")
		return nil, fmt.Errorf("operands must be finite: %w", model.ErrInvalidInput)
	}

	user, err := g.store.FindUserByID(ctx, userID)
	if err != nil {
		return nil, mapStoreError("find user", err)
	}
	if !user.Tier().Allows(op.Tier) {
		g.metrics.IncCalculation(string(kind), "denied")
		return nil, model.ErrInsufficientPlan
	}

	result := op.Compute(a, b)
	if !finite(result) {
		g.metrics.IncCalculation(string(kind), "invalid")
		return nil, fmt.Errorf("result is not finite: %w", model.ErrInvalidInput)
	}

	if _, err := g.store.SaveCalculation(ctx, userID, kind, a, b, result); err != nil {
		return nil, mapStoreError("save calculation", err)
	}

	g.metrics.IncCalculation(string(kind), "success")
	g.events.PublishAsync(analytics.NewEvent(analytics.EventCalculationPerformed, userID, map[string]string{"operation": string(kind)}))

	return &model.CalculationResult{Operation: kind, A: a, B: b, Result: result}, nil
}

// History returns the user's calculations, newest first.
func (g *Gateway) History(ctx context.Context, userID int64) ([]model.Calculation, error) {
	calcs, err := g.store.ListCalculations(ctx, userID)
	if err != nil {
		return nil, mapStoreError("list calculations", err)
	}
	if calcs == nil {
		calcs = []model.Calculation{}
	}
	return calcs, nil
}
