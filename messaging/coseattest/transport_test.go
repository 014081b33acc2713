package coseattest

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/ledger"
	"github.com/cloudx-io/matchingengine/wire"
)

func TestTransferThenRedeemCreditsCustody(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)
	mint := ledger.NewInMemory()
	custody := ledger.Account("custody")
	transport := NewTransport(v, mint, custody, wire.Chain(2))

	amount := wire.NewU128FromUint64(1_000_000)
	recipient := wire.Bytes32{0x09}
	seq, err := transport.Transfer(ctx, "stable", amount, wire.Chain(3), recipient, []byte("aux"))
	check.Nil(t, err)

	attested, ok := v.Emitted(seq)
	check.True(t, ok)

	redeemed, err := transport.Redeem(ctx, attested)
	check.Nil(t, err)
	check.Equal(t, 0, redeemed.MintedAmount.Cmp(amount))
	check.Equal(t, "aux", string(redeemed.Payload))

	balance, err := mint.BalanceOf(ctx, custody)
	check.Nil(t, err)
	check.Equal(t, 0, balance.Cmp(amount))
}

func TestSignForeignBurnCarriesEmitterIdentity(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)
	mint := ledger.NewInMemory()
	custody := ledger.Account("custody")
	transport := NewTransport(v, mint, custody, wire.Chain(2))

	foreignChain := wire.Chain(7)
	foreignEmitter := wire.Bytes32{0x0A}
	amount := wire.NewU128FromUint64(500)

	attested, _, err := transport.SignForeignBurn(ctx, foreignChain, foreignEmitter, amount, []byte("slow"))
	check.Nil(t, err)

	redeemed, err := transport.Redeem(ctx, attested)
	check.Nil(t, err)
	check.Equal(t, foreignChain, redeemed.SourceChain)
	check.Equal(t, foreignEmitter, redeemed.SourceEmitter)
}

func TestRedeemRejectsTamperedBurn(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)
	mint := ledger.NewInMemory()
	transport := NewTransport(v, mint, "custody", wire.Chain(2))

	attested, _, err := transport.SignForeignBurn(ctx, wire.Chain(1), wire.Bytes32{0x01}, wire.NewU128FromUint64(1), nil)
	check.Nil(t, err)
	attested[0] ^= 0xFF

	_, err = transport.Redeem(ctx, attested)
	check.True(t, errors.Is(err, ErrInvalidMessage))
}
