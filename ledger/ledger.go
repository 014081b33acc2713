// Package ledger models the fungible token ledger spec.md places out of
// scope as an external collaborator. The engine still needs something to
// call for every acquisition and disbursement in its state machine, so
// Ledger is the narrow interface it calls against, mirroring the teacher's
// pattern of a small interface at a true external boundary
// (enclave.EnclaveAttester) with a usable in-repository stand-in.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudx-io/matchingengine/wire"
)

// Account identifies a balance holder: a bidder, the destination chain's
// mint recipient, a liquidator, or the engine's own custody account.
type Account string

// ErrInsufficientBalance is returned when a transfer's source account does
// not hold enough to cover the amount (spec.md §5: "token transfers are
// checked for success ... revert-on-failure").
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// Ledger is the engine's view of the settlement asset. Every custody
// acquisition (spec.md §4.4.1 step 7), custody-preserving bid replacement
// (§4.4.2 step 4), and disbursement (§4.4.3, §4.4.4) is a single
// TransferFrom call — the engine's own custody account is just another
// Account in this model, so moving funds into or out of custody and moving
// funds directly between two bidders use the same method.
type Ledger interface {
	// TransferFrom moves amount from from's balance to to's balance.
	// Returns ErrInsufficientBalance (wrapped) if from lacks the funds.
	// Implementations must leave balances unchanged on error.
	TransferFrom(ctx context.Context, from, to Account, amount wire.U128) error

	// BalanceOf returns an account's current balance (zero if unknown).
	BalanceOf(ctx context.Context, account Account) (wire.U128, error)

	// Credit mints amount into account's balance out of thin air. Used by
	// the simulator CLI to seed initial bidder/user balances, and by the
	// settlement sink reference implementation to model a CCTP mint
	// landing in engine custody on redeem.
	Credit(ctx context.Context, account Account, amount wire.U128) error
}

// InMemory is a Ledger backed by a mutex-guarded balance map: the
// reference implementation used by engine tests and the simulator CLI,
// mirroring the teacher's manager-struct idiom (registry.Registry).
type InMemory struct {
	mu       sync.Mutex
	balances map[Account]wire.U128
}

// NewInMemory returns an empty InMemory ledger; every account starts at
// zero balance.
func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[Account]wire.U128)}
}

func (l *InMemory) TransferFrom(_ context.Context, from, to Account, amount wire.U128) error {
	if amount.IsZero() {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	fromBal := l.balances[from]
	if fromBal.LessThan(amount) {
		return fmt.Errorf("%w: account %q has %s, needs %s", ErrInsufficientBalance, from, fromBal, amount)
	}
	if from == to {
		return nil
	}
	newFrom, err := fromBal.Sub(amount)
	if err != nil {
		return err
	}
	newTo, err := l.balances[to].Add(amount)
	if err != nil {
		return err
	}
	l.balances[from] = newFrom
	l.balances[to] = newTo
	return nil
}

func (l *InMemory) BalanceOf(_ context.Context, account Account) (wire.U128, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

func (l *InMemory) Credit(_ context.Context, account Account, amount wire.U128) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	newBal, err := l.balances[account].Add(amount)
	if err != nil {
		return err
	}
	l.balances[account] = newBal
	return nil
}
