package wire

import (
	"math/big"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/peterldowns/testy/check"
)

func TestU128RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 100, 50_000_000_000, 1_000_000}
	for _, c := range cases {
		u := NewU128FromUint64(c)
		enc := u.MarshalBE()
		check.Equal(t, 16, len(enc))

		decoded, err := UnmarshalBE(enc[:])
		check.Nil(t, err)
		check.Equal(t, u.String(), decoded.String())
	}
}

func TestU128RejectsOutOfRange(t *testing.T) {
	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err := NewU128FromBigInt(tooBig)
	check.NotNil(t, err)

	negative := big.NewInt(-1)
	_, err = NewU128FromBigInt(negative)
	check.NotNil(t, err)
}

func TestU128ArithmeticMatchesScenario2(t *testing.T) {
	// Scenario 2 in spec.md §8: deposit = 1_000_000, scaled_bps = 400_000.
	deposit := NewU128FromUint64(1_000_000)
	total, err := deposit.MulDiv(400_000, 1_000_000)
	check.Nil(t, err)
	check.Equal(t, "400000", total.String())

	userReward, err := total.MulDiv(250_000, 1_000_000)
	check.Nil(t, err)
	check.Equal(t, "100000", userReward.String())

	penalty, err := total.Sub(userReward)
	check.Nil(t, err)
	check.Equal(t, "300000", penalty.String())
}

func TestU128SubUnderflow(t *testing.T) {
	small := NewU128FromUint64(1)
	large := NewU128FromUint64(2)
	_, err := small.Sub(large)
	check.NotNil(t, err)
}

func TestU128Comparisons(t *testing.T) {
	a := NewU128FromUint64(5)
	b := NewU128FromUint64(10)
	check.True(t, a.LessThan(b))
	check.True(t, b.GreaterThan(a))
	check.True(t, ZeroU128().IsZero())
	check.True(t, !a.IsZero())
}

func TestU128CBORRoundTrip(t *testing.T) {
	u := NewU128FromUint64(50_001_000_000)
	encoded, err := cbor.Marshal(u)
	check.Nil(t, err)

	var decoded U128
	check.Nil(t, cbor.Unmarshal(encoded, &decoded))
	check.Equal(t, u.String(), decoded.String())
}

func TestU128CBORRoundTripInsideStruct(t *testing.T) {
	type wrapper struct {
		Amount U128
	}
	w := wrapper{Amount: NewU128FromUint64(1_000_000)}
	encoded, err := cbor.Marshal(w)
	check.Nil(t, err)

	var decoded wrapper
	check.Nil(t, cbor.Unmarshal(encoded, &decoded))
	check.Equal(t, w.Amount.String(), decoded.Amount.String())
}

func TestBytes32ZeroValue(t *testing.T) {
	var b Bytes32
	check.True(t, b.IsZero())
	b[0] = 1
	check.True(t, !b.IsZero())
}
