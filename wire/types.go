// Package wire implements the canonical byte encoding for matching-engine
// messages: FastMarketOrder, SlowOrderResponse, SlowOrderInit, Fill, and
// FastFill. All integers are big-endian; every payload is framed with a
// one-byte discriminant and decoded with strict length checks.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// ErrMalformedPayload is returned whenever decoded bytes do not match the
// expected shape for their discriminant: wrong length, trailing bytes, or
// an unknown discriminant byte.
var ErrMalformedPayload = errors.New("malformed payload")

// Chain identifies a Wormhole-style chain ID. Zero is never a valid
// endpoint key (see registry.Registry).
type Chain uint16

// ChainUnset is the sentinel "no chain" value; registry.AddEndpoint
// rejects it.
const ChainUnset Chain = 0

// Bytes32 is a fixed-width 32-byte value: router addresses, redeemers,
// senders, refund addresses, and emitter addresses are all shaped this way.
type Bytes32 [32]byte

// Digest identifies an attested message; it is produced by the messaging
// substrate, never computed by the engine.
type Digest = Bytes32

func (b Bytes32) String() string {
	return fmt.Sprintf("%x", b[:])
}

// IsZero reports whether b is the all-zero value.
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

// u128Bytes is the fixed wire width of a U128 value.
const u128Bytes = 16

// maxU128 is 2^128 - 1.
var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// U128 is an unsigned 128-bit integer backed by math/big, constrained to
// [0, 2^128). All order amounts, fees, and deposits in the protocol are
// this width; settlement math never uses floating point.
type U128 struct {
	v *big.Int
}

// ZeroU128 is the additive identity.
func ZeroU128() U128 { return U128{v: new(big.Int)} }

// NewU128FromUint64 builds a U128 from a uint64.
func NewU128FromUint64(x uint64) U128 {
	return U128{v: new(big.Int).SetUint64(x)}
}

// NewU128FromBigInt validates and wraps a *big.Int. It returns
// ErrMalformedPayload if v is negative or exceeds 2^128-1.
func NewU128FromBigInt(v *big.Int) (U128, error) {
	if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
		return U128{}, fmt.Errorf("%w: value out of u128 range", ErrMalformedPayload)
	}
	return U128{v: new(big.Int).Set(v)}, nil
}

// Big returns the underlying big.Int (never nil; a zero-value U128 reads
// as zero).
func (u U128) Big() *big.Int {
	if u.v == nil {
		return new(big.Int)
	}
	return u.v
}

// Add returns u+other, erroring if the result would overflow u128.
func (u U128) Add(other U128) (U128, error) {
	return NewU128FromBigInt(new(big.Int).Add(u.Big(), other.Big()))
}

// Sub returns u-other, erroring if other > u (no underflow in u128 math).
func (u U128) Sub(other U128) (U128, error) {
	if u.Big().Cmp(other.Big()) < 0 {
		return U128{}, fmt.Errorf("%w: u128 subtraction underflow", ErrMalformedPayload)
	}
	return NewU128FromBigInt(new(big.Int).Sub(u.Big(), other.Big()))
}

// MulDiv returns floor(u*num/den), the fixed-point bps pattern used
// throughout the penalty calculator. den must be non-zero.
func (u U128) MulDiv(num, den uint64) (U128, error) {
	if den == 0 {
		return U128{}, fmt.Errorf("%w: division by zero", ErrMalformedPayload)
	}
	prod := new(big.Int).Mul(u.Big(), new(big.Int).SetUint64(num))
	prod.Quo(prod, new(big.Int).SetUint64(den))
	return NewU128FromBigInt(prod)
}

// Cmp compares u to other: -1, 0, or 1.
func (u U128) Cmp(other U128) int {
	return u.Big().Cmp(other.Big())
}

// LessThan reports whether u < other.
func (u U128) LessThan(other U128) bool { return u.Cmp(other) < 0 }

// GreaterThan reports whether u > other.
func (u U128) GreaterThan(other U128) bool { return u.Cmp(other) > 0 }

// IsZero reports whether u is zero (including the Go zero value).
func (u U128) IsZero() bool { return u.Big().Sign() == 0 }

// String renders the decimal value.
func (u U128) String() string { return u.Big().String() }

// MarshalBE encodes u as exactly 16 big-endian bytes.
func (u U128) MarshalBE() [u128Bytes]byte {
	var out [u128Bytes]byte
	u.Big().FillBytes(out[:])
	return out
}

// UnmarshalBE decodes exactly 16 big-endian bytes into a U128.
func UnmarshalBE(b []byte) (U128, error) {
	if len(b) != u128Bytes {
		return U128{}, fmt.Errorf("%w: u128 requires %d bytes, got %d", ErrMalformedPayload, u128Bytes, len(b))
	}
	return U128{v: new(big.Int).SetBytes(b)}, nil
}

// MarshalCBOR implements cbor.Marshaler so a U128 embedded in a
// cbor.Marshal'd struct (auctionstore.Badger's record encoding) survives
// the round trip as its 16-byte big-endian form rather than as an empty
// map — U128's only field is unexported, and without this the default
// struct-field encoder would see no fields to write.
func (u U128) MarshalCBOR() ([]byte, error) {
	b := u.MarshalBE()
	return cbor.Marshal(b[:])
}

// UnmarshalCBOR implements cbor.Unmarshaler, the inverse of MarshalCBOR.
func (u *U128) UnmarshalCBOR(data []byte) error {
	var b []byte
	if err := cbor.Unmarshal(data, &b); err != nil {
		return fmt.Errorf("%w: decode u128 cbor: %v", ErrMalformedPayload, err)
	}
	v, err := UnmarshalBE(b)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// appendU16 appends a big-endian uint16.
func appendU16(buf []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(buf, tmp[:]...)
}

// appendU32 appends a big-endian uint32.
func appendU32(buf []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(buf, tmp[:]...)
}

// appendU64 appends a big-endian uint64.
func appendU64(buf []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(buf, tmp[:]...)
}

// appendU128 appends a 16-byte big-endian U128.
func appendU128(buf []byte, v U128) []byte {
	b := v.MarshalBE()
	return append(buf, b[:]...)
}

// appendBytes32 appends a 32-byte value.
func appendBytes32(buf []byte, v Bytes32) []byte {
	return append(buf, v[:]...)
}

type byteReader struct {
	b []byte
}

func (r *byteReader) take(n int) ([]byte, error) {
	if len(r.b) < n {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedPayload, n, len(r.b))
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out, nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *byteReader) u64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *byteReader) u128() (U128, error) {
	b, err := r.take(u128Bytes)
	if err != nil {
		return U128{}, err
	}
	return UnmarshalBE(b)
}

func (r *byteReader) bytes32() (Bytes32, error) {
	b, err := r.take(32)
	if err != nil {
		return Bytes32{}, err
	}
	var out Bytes32
	copy(out[:], b)
	return out, nil
}

func (r *byteReader) remaining(n int) ([]byte, error) {
	return r.take(n)
}

func (r *byteReader) done() error {
	if len(r.b) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformedPayload, len(r.b))
	}
	return nil
}
