package ephemeral

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	logAdapter "github.com/bft-labs/custodian/internal/adapters/log"
	"github.com/bft-labs/custodian/internal/domain"
)

var (
	owner = common.HexToAddress("0x1111111111111111111111111111111111111111")
	execA = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	execB = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	now   = time.Date(2026, time.October, 14, 12, 0, 0, 0, time.UTC)
)

func delegated(t *testing.T, value uint32, executor domain.Identity) (domain.StateRecord, domain.DelegationGrant) {
	t.Helper()
	addr, bump, err := domain.DeriveAddress("test", []byte("ephemeral"))
	if err != nil {
		t.Fatalf("DeriveAddress: %v", err)
	}
	rec := domain.NewRecord(addr, bump, owner)
	rec.Value = value
	next, grant, err := rec.Delegate(owner, executor, time.Minute, now)
	if err != nil {
		t.Fatalf("Delegate: %v", err)
	}
	return next, grant
}

func TestExecutor_AcceptApplyCommit(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 10, execA)

	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	for _, op := range []domain.Op{domain.Double(), domain.Add(22)} {
		if _, err := e.Apply(rec.Address, op); err != nil {
			t.Fatalf("Apply(%v): %v", op.Kind, err)
		}
	}

	v, err := e.CommittedValue(context.Background(), grant)
	if err != nil {
		t.Fatalf("CommittedValue: %v", err)
	}
	if v != 42 {
		t.Errorf("CommittedValue = %d, want 42", v)
	}
}

func TestExecutor_RejectsForeignGrant(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 1, execB)

	if err := e.Accept(grant, rec); !errors.Is(err, ErrForeignGrant) {
		t.Errorf("Accept error = %v, want ErrForeignGrant", err)
	}
	if _, err := e.CommittedValue(context.Background(), grant); !errors.Is(err, ErrForeignGrant) {
		t.Errorf("CommittedValue error = %v, want ErrForeignGrant", err)
	}
}

func TestExecutor_ApplyWithoutGrant(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	if _, err := e.Apply(domain.Address{0x01}, domain.Increment()); !errors.Is(err, ErrNoGrant) {
		t.Errorf("Apply error = %v, want ErrNoGrant", err)
	}
}

func TestExecutor_CheckedArithmetic(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 3, execA)
	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	if _, err := e.Apply(rec.Address, domain.Subtract(4)); !errors.Is(err, domain.ErrUnderflow) {
		t.Fatalf("Apply error = %v, want ErrUnderflow", err)
	}
	if v, _ := e.Value(rec.Address); v != 3 {
		t.Errorf("value after failed op = %d, want 3", v)
	}
}

func TestExecutor_ReleasedOnUndelegate(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 3, execA)
	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	e.OnCustodyChange(rec.Address, rec.Custody, domain.Local(), "commit_and_undelegate")

	if _, err := e.Apply(rec.Address, domain.Increment()); !errors.Is(err, ErrNoGrant) {
		t.Errorf("Apply after release error = %v, want ErrNoGrant", err)
	}
}

func TestExecutor_StaleGrant(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 3, execA)
	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	old := grant
	old.ID = domain.GrantID(rec.Address, grant.Nonce-1)
	if _, err := e.CommittedValue(context.Background(), old); !errors.Is(err, ErrStaleGrant) {
		t.Errorf("CommittedValue error = %v, want ErrStaleGrant", err)
	}
}

func TestExecutor_AcceptSameGrantKeepsValue(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 0, execA)
	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if _, err := e.Apply(rec.Address, domain.Add(42)); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("second Accept: %v", err)
	}
	v, err := e.Value(rec.Address)
	if err != nil {
		t.Fatalf("Value: %v", err)
	}
	if v != 42 {
		t.Errorf("Value after second Accept = %d, want 42", v)
	}
}

func TestExecutor_AcceptOrdering(t *testing.T) {
	e := NewExecutor(execA, logAdapter.NewNoopLogger())
	rec, grant := delegated(t, 5, execA)
	if err := e.Accept(grant, rec); err != nil {
		t.Fatalf("Accept: %v", err)
	}

	older := grant
	older.Nonce = grant.Nonce - 1
	older.ID = domain.GrantID(rec.Address, older.Nonce)
	if err := e.Accept(older, rec); !errors.Is(err, ErrStaleGrant) {
		t.Errorf("Accept(older) error = %v, want ErrStaleGrant", err)
	}

	newer := grant
	newer.Nonce = grant.Nonce + 1
	newer.ID = domain.GrantID(rec.Address, newer.Nonce)
	rec.Value = 9
	if err := e.Accept(newer, rec); err != nil {
		t.Fatalf("Accept(newer): %v", err)
	}
	if v, _ := e.Value(rec.Address); v != 9 {
		t.Errorf("Value after newer grant = %d, want 9", v)
	}
}

func TestStaticValue(t *testing.T) {
	v, err := StaticValue(42).CommittedValue(context.Background(), domain.DelegationGrant{})
	if err != nil || v != 42 {
		t.Errorf("StaticValue = %d, %v", v, err)
	}
}
