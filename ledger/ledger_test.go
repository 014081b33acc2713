package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/wire"
)

func TestInMemoryTransferFrom(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory()

	check.Nil(t, l.Credit(ctx, "alice", wire.NewU128FromUint64(100)))
	check.Nil(t, l.TransferFrom(ctx, "alice", "bob", wire.NewU128FromUint64(40)))

	aliceBal, err := l.BalanceOf(ctx, "alice")
	check.Nil(t, err)
	bobBal, err := l.BalanceOf(ctx, "bob")
	check.Nil(t, err)
	check.Equal(t, 0, aliceBal.Cmp(wire.NewU128FromUint64(60)))
	check.Equal(t, 0, bobBal.Cmp(wire.NewU128FromUint64(40)))
}

func TestInMemoryTransferFromInsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory()
	check.Nil(t, l.Credit(ctx, "alice", wire.NewU128FromUint64(10)))

	err := l.TransferFrom(ctx, "alice", "bob", wire.NewU128FromUint64(11))
	check.True(t, errors.Is(err, ErrInsufficientBalance))

	aliceBal, err := l.BalanceOf(ctx, "alice")
	check.Nil(t, err)
	check.Equal(t, 0, aliceBal.Cmp(wire.NewU128FromUint64(10)))
}

func TestInMemoryZeroTransferNoop(t *testing.T) {
	ctx := context.Background()
	l := NewInMemory()
	check.Nil(t, l.TransferFrom(ctx, "nobody", "bob", wire.ZeroU128()))
}
