package coseattest

import (
	"context"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/wire"
)

func TestEmitThenVerifyRoundTrips(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)

	emitterAddr := wire.Bytes32{0x01, 0x02}
	payload := []byte("hello matching engine")

	attested, seq, err := v.Emit(ctx, wire.Chain(2), emitterAddr, payload)
	check.Nil(t, err)
	check.Equal(t, uint64(0), seq)

	msg, err := v.Verify(ctx, attested)
	check.Nil(t, err)
	check.Equal(t, wire.Chain(2), msg.EmitterChain)
	check.Equal(t, emitterAddr, msg.EmitterAddress)
	check.Equal(t, string(payload), string(msg.Payload))
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)
	attested, _, err := v.Emit(ctx, wire.Chain(1), wire.Bytes32{}, []byte("order"))
	check.Nil(t, err)
	attested[len(attested)-1] ^= 0xFF

	_, err = v.Verify(ctx, attested)
	check.True(t, errors.Is(err, ErrInvalidMessage))
}

func TestVerifyFlagsReplayedDigest(t *testing.T) {
	ctx := context.Background()
	v, err := New(0)
	check.Nil(t, err)
	attested, _, err := v.Emit(ctx, wire.Chain(1), wire.Bytes32{}, []byte("order"))
	check.Nil(t, err)

	_, err = v.Verify(ctx, attested)
	check.Nil(t, err)
	_, err = v.Verify(ctx, attested)
	check.True(t, errors.Is(err, ErrReplaySuspected))
}
