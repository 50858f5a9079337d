// Package storetest is a conformance suite run against every repository.Store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/numberadder/numberadder/internal/model"
	"github.com/numberadder/numberadder/internal/repository"
)

// Harness adapts a backend to the suite.
type Harness struct {
	// New returns a ready store; cleanup is registered on t.
	New func(t *testing.T) repository.Store
	// CountCalculations counts rows referencing userID by direct inspection,
	// bypassing the Store API.
	CountCalculations func(t *testing.T, store repository.Store, userID int64) int
	// FailUserDelete makes deleting userID's users row fail inside the
	// transaction. Optional; requires CountCalculations.
	FailUserDelete func(t *testing.T, store repository.Store, userID int64)
}

var seq atomic.Int64

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@example.com", prefix, time.Now().UnixNano(), seq.Add(1))
}

// Run executes the suite.
func Run(t *testing.T, h Harness) {
	t.Run("CreateUser", func(t *testing.T) { testCreateUser(t, h) })
	t.Run("DuplicateEmail", func(t *testing.T) { testDuplicateEmail(t, h) })
	t.Run("FindUser", func(t *testing.T) { testFindUser(t, h) })
	t.Run("MissingUser", func(t *testing.T) { testMissingUser(t, h) })
	t.Run("SetPremium", func(t *testing.T) { testSetPremium(t, h) })
	t.Run("BillingRef", func(t *testing.T) { testBillingRef(t, h) })
	t.Run("APIKeyHashOverwrite", func(t *testing.T) { testAPIKeyHashOverwrite(t, h) })
	t.Run("CalculationsOrder", func(t *testing.T) { testCalculationsOrder(t, h) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, h) })
	t.Run("DeleteRollsBack", func(t *testing.T) { testDeleteRollsBack(t, h) })
	t.Run("Export", func(t *testing.T) { testExport(t, h) })
	t.Run("GetOrCreateUser", func(t *testing.T) { testGetOrCreateUser(t, h) })
}

func mustCreate(t *testing.T, store repository.Store, email string) int64 {
	t.Helper()
	id, err := store.CreateUser(context.Background(), email, "$argon2id$test")
	if err != nil {
		t.Fatalf("CreateUser(%s) failed: %v", email, err)
	}
	return id
}

func testCreateUser(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()

	first := mustCreate(t, store, uniqueEmail("first"))
	second := mustCreate(t, store, uniqueEmail("second"))
	if second <= first {
		t.Errorf("ids should increase: first=%d second=%d", first, second)
	}

	user, err := store.FindUserByID(ctx, first)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	if user.Premium || user.BillingRef != nil || user.APIKeyHash != nil {
		t.Errorf("new user should have defaults, got %+v", user)
	}
	if user.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func testDuplicateEmail(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()

	email := uniqueEmail("dup")
	mustCreate(t, store, email)

	if _, err := store.CreateUser(ctx, email, "x"); !errors.Is(err, repository.ErrEmailExists) {
		t.Fatalf("expected ErrEmailExists, got %v", err)
	}

	// Comparison is case-sensitive.
	if _, err := store.CreateUser(ctx, strings.ToUpper(email), "x"); err != nil {
		t.Fatalf("case-variant email should be accepted: %v", err)
	}
}

func testFindUser(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()

	email := uniqueEmail("find")
	id := mustCreate(t, store, email)

	byEmail, err := store.FindUserByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindUserByEmail failed: %v", err)
	}
	if byEmail.ID != id || byEmail.PasswordHash != "$argon2id$test" {
		t.Errorf("FindUserByEmail = %+v", byEmail)
	}

	byID, err := store.FindUserByID(ctx, id)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	if byID.PasswordHash != "" {
		t.Error("FindUserByID must not return the password hash")
	}
	if byID.Email != email {
		t.Errorf("Email = %q, want %q", byID.Email, email)
	}

	if _, err := store.FindUserByEmail(ctx, uniqueEmail("nobody")); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func testMissingUser(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()

	const missing int64 = 1 << 40
	hash := "deadbeef"

	checks := map[string]error{}
	_, checks["FindUserByID"] = store.FindUserByID(ctx, missing)
	_, checks["FindUserByAPIKeyHash"] = store.FindUserByAPIKeyHash(ctx, hash)
	_, checks["FindUserByBillingRef"] = store.FindUserByBillingRef(ctx, "cus_missing")
	checks["SetPremium"] = store.SetPremium(ctx, missing)
	checks["SetBillingRef"] = store.SetBillingRef(ctx, missing, "cus_x")
	_, checks["SetAPIKeyHash"] = store.SetAPIKeyHash(ctx, missing, &hash)
	_, checks["DeleteUser"] = store.DeleteUser(ctx, missing)
	_, checks["SaveCalculation"] = store.SaveCalculation(ctx, missing, model.OpAdd, 1, 2, 3)
	_, checks["ListCalculations"] = store.ListCalculations(ctx, missing)
	_, checks["ExportUserData"] = store.ExportUserData(ctx, missing)

	for name, err := range checks {
		if !errors.Is(err, repository.ErrUserNotFound) {
			t.Errorf("%s: expected ErrUserNotFound, got %v", name, err)
		}
	}
}

func testSetPremium(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("premium"))

	for i := 0; i < 2; i++ {
		if err := store.SetPremium(ctx, id); err != nil {
			t.Fatalf("SetPremium #%d failed: %v", i, err)
		}
	}

	user, err := store.FindUserByID(ctx, id)
	if err != nil {
		t.Fatalf("FindUserByID failed: %v", err)
	}
	if !user.Premium {
		t.Error("user should be premium")
	}
}

func testBillingRef(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("billing"))
	ref := fmt.Sprintf("cus_%d", seq.Add(1))

	if err := store.SetBillingRef(ctx, id, ref); err != nil {
		t.Fatalf("SetBillingRef failed: %v", err)
	}

	user, err := store.FindUserByBillingRef(ctx, ref)
	if err != nil {
		t.Fatalf("FindUserByBillingRef failed: %v", err)
	}
	if user.ID != id || user.BillingRef == nil || *user.BillingRef != ref {
		t.Errorf("FindUserByBillingRef = %+v", user)
	}
}

func testAPIKeyHashOverwrite(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("apikey"))

	first := fmt.Sprintf("hash-a-%d", seq.Add(1))
	second := fmt.Sprintf("hash-b-%d", seq.Add(1))

	prev, err := store.SetAPIKeyHash(ctx, id, &first)
	if err != nil {
		t.Fatalf("SetAPIKeyHash failed: %v", err)
	}
	if prev != nil {
		t.Errorf("previous hash should be nil, got %q", *prev)
	}

	prev, err = store.SetAPIKeyHash(ctx, id, &second)
	if err != nil {
		t.Fatalf("SetAPIKeyHash failed: %v", err)
	}
	if prev == nil || *prev != first {
		t.Errorf("previous hash = %v, want %q", prev, first)
	}

	if _, err := store.FindUserByAPIKeyHash(ctx, first); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("old hash should no longer resolve, got %v", err)
	}
	user, err := store.FindUserByAPIKeyHash(ctx, second)
	if err != nil || user.ID != id {
		t.Fatalf("new hash should resolve to %d: %v", id, err)
	}

	prev, err = store.SetAPIKeyHash(ctx, id, nil)
	if err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if prev == nil || *prev != second {
		t.Errorf("previous hash = %v, want %q", prev, second)
	}
	if _, err := store.FindUserByAPIKeyHash(ctx, second); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("cleared hash should not resolve, got %v", err)
	}

	// Clearing twice is a soft no-op.
	prev, err = store.SetAPIKeyHash(ctx, id, nil)
	if err != nil || prev != nil {
		t.Errorf("second clear = %v, %v; want nil, nil", prev, err)
	}
}

func testCalculationsOrder(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("order"))

	var ids []int64
	for i := 1; i <= 3; i++ {
		calcID, err := store.SaveCalculation(ctx, id, model.OpAdd, float64(i), 1, float64(i)+1)
		if err != nil {
			t.Fatalf("SaveCalculation failed: %v", err)
		}
		ids = append(ids, calcID)
	}

	calcs, err := store.ListCalculations(ctx, id)
	if err != nil {
		t.Fatalf("ListCalculations failed: %v", err)
	}
	if len(calcs) != 3 {
		t.Fatalf("expected 3 calculations, got %d", len(calcs))
	}
	for i, c := range calcs {
		want := ids[len(ids)-1-i]
		if c.ID != want {
			t.Errorf("calcs[%d].ID = %d, want %d", i, c.ID, want)
		}
		if c.UserID != id || c.Operation != model.OpAdd {
			t.Errorf("calcs[%d] = %+v", i, c)
		}
	}
	if calcs[0].A != 3 || calcs[0].Result != 4 {
		t.Errorf("most recent = %+v, want a=3 result=4", calcs[0])
	}

	other := mustCreate(t, store, uniqueEmail("empty"))
	empty, err := store.ListCalculations(ctx, other)
	if err != nil {
		t.Fatalf("ListCalculations failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no calculations, got %d", len(empty))
	}
}

func testDeleteCascades(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("erase"))
	keep := mustCreate(t, store, uniqueEmail("keep"))

	const n = 5
	for i := 0; i < n; i++ {
		if _, err := store.SaveCalculation(ctx, id, model.OpMultiply, 2, float64(i), 2*float64(i)); err != nil {
			t.Fatalf("SaveCalculation failed: %v", err)
		}
	}
	if _, err := store.SaveCalculation(ctx, keep, model.OpAdd, 1, 1, 2); err != nil {
		t.Fatalf("SaveCalculation failed: %v", err)
	}

	if h.CountCalculations != nil {
		if got := h.CountCalculations(t, store, id); got != n {
			t.Fatalf("before delete: %d rows, want %d", got, n)
		}
	}

	deleted, err := store.DeleteUser(ctx, id)
	if err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if deleted.ID != id {
		t.Errorf("deleted.ID = %d, want %d", deleted.ID, id)
	}

	if h.CountCalculations != nil {
		if got := h.CountCalculations(t, store, id); got != 0 {
			t.Errorf("after delete: %d rows still reference user %d", got, id)
		}
		if got := h.CountCalculations(t, store, keep); got != 1 {
			t.Errorf("other user's history touched: %d rows", got)
		}
	}

	if _, err := store.FindUserByID(ctx, id); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("user should be gone, got %v", err)
	}
	if _, err := store.DeleteUser(ctx, id); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("second delete should be ErrUserNotFound, got %v", err)
	}
}

func testDeleteRollsBack(t *testing.T, h Harness) {
	if h.FailUserDelete == nil || h.CountCalculations == nil {
		t.Skip("backend cannot inject a delete failure")
	}
	store := h.New(t)
	ctx := context.Background()
	id := mustCreate(t, store, uniqueEmail("rollback"))

	const n = 3
	for i := 0; i < n; i++ {
		if _, err := store.SaveCalculation(ctx, id, model.OpAdd, float64(i), 1, float64(i)+1); err != nil {
			t.Fatalf("SaveCalculation failed: %v", err)
		}
	}

	h.FailUserDelete(t, store, id)

	_, err := store.DeleteUser(ctx, id)
	if err == nil {
		t.Fatal("DeleteUser should fail when the user row cannot be removed")
	}
	if errors.Is(err, repository.ErrUserNotFound) {
		t.Fatalf("DeleteUser error = %v, want a storage failure", err)
	}

	if got := h.CountCalculations(t, store, id); got != n {
		t.Errorf("after failed delete: %d calculations remain, want %d", got, n)
	}
	if _, err := store.FindUserByID(ctx, id); err != nil {
		t.Errorf("user should survive a failed delete, got %v", err)
	}
}

func testExport(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	email := uniqueEmail("export")
	id := mustCreate(t, store, email)

	for i := 0; i < 3; i++ {
		if _, err := store.SaveCalculation(ctx, id, model.OpAdd, float64(i), 10, float64(i)+10); err != nil {
			t.Fatalf("SaveCalculation failed: %v", err)
		}
	}

	doc, err := store.ExportUserData(ctx, id)
	if err != nil {
		t.Fatalf("ExportUserData failed: %v", err)
	}
	if doc.User.ID != id || doc.User.Email != email {
		t.Errorf("export user = %+v", doc.User)
	}
	if len(doc.Calculations) != 3 {
		t.Fatalf("expected 3 calculations, got %d", len(doc.Calculations))
	}
	for i := 1; i < len(doc.Calculations); i++ {
		if doc.Calculations[i-1].ID < doc.Calculations[i].ID {
			t.Errorf("calculations not reverse-chronological at %d", i)
		}
	}
	if doc.ExportTimestamp.IsZero() {
		t.Error("export timestamp should be set")
	}

	if _, err := store.DeleteUser(ctx, id); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := store.ExportUserData(ctx, id); !errors.Is(err, repository.ErrUserNotFound) {
		t.Errorf("export after erasure should be ErrUserNotFound, got %v", err)
	}
}

func testGetOrCreateUser(t *testing.T, h Harness) {
	store := h.New(t)
	ctx := context.Background()
	email := uniqueEmail("oauth")

	user, created, err := store.GetOrCreateUser(ctx, email, "hash")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if !created || user.Email != email {
		t.Errorf("first call: created=%v user=%+v", created, user)
	}

	again, created, err := store.GetOrCreateUser(ctx, email, "other")
	if err != nil {
		t.Fatalf("GetOrCreateUser failed: %v", err)
	}
	if created || again.ID != user.ID {
		t.Errorf("second call: created=%v id=%d, want existing %d", created, again.ID, user.ID)
	}
}
