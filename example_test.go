package custodian_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bft-labs/custodian"
)

// ExampleNew walks one record through delegation and back.
func ExampleNew() {
	ctx := context.Background()
	owner := common.HexToAddress("0x1111111111111111111111111111111111111111")
	executorID := common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")

	exec := custodian.NewExecutor(executorID, nil)
	m, err := custodian.New(custodian.NewMemoryStore(),
		custodian.WithExecutorChannel(exec),
		custodian.WithEventHandler(exec),
	)
	if err != nil {
		fmt.Println(err)
		return
	}

	rec, _ := m.Initialize(ctx, []byte("counter"), owner)
	rec, _ = m.Add(ctx, rec.Address, owner, 20)

	rec, grant, _ := m.Delegate(ctx, rec.Address, owner, executorID, 30*time.Second)
	_ = exec.Accept(grant, rec)

	_, err = m.Increment(ctx, rec.Address, owner)
	fmt.Println("local op while delegated:", errors.Is(err, custodian.ErrCustodyViolation))

	_, _ = exec.Apply(rec.Address, custodian.Add(1))
	_, _ = exec.Apply(rec.Address, custodian.Double())

	rec, _ = m.CommitAndUndelegate(ctx, rec.Address, executorID)
	fmt.Println("value:", rec.Value, "custody:", rec.Custody)

	// Output:
	// local op while delegated: true
	// value: 42 custody: Local
}

func ExampleDeriveAddress() {
	a, bump, _ := custodian.DeriveAddress("custodian", []byte("counter"))
	b, _, _ := custodian.DeriveAddress("custodian", []byte("counter"))
	fmt.Println(a == b, bump)

	_, _, err := custodian.DeriveAddress("custodian", nil)
	fmt.Println(errors.Is(err, custodian.ErrInvalidSeed))

	// Output:
	// true 255
	// true
}
