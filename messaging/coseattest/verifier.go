// Package coseattest is the reference messaging.Verifier used by the
// simulator CLI and by engine tests in place of a real attested messaging
// substrate. It is built directly on the teacher's own attestation
// verification approach (validation.VerifyCOSESignature): a COSE_Sign1
// envelope (untagged 4-element CBOR array — protected headers,
// unprotected headers, payload, signature) signed ECDSA P-384/ES384 and
// verified with github.com/veraison/go-cose, payload framed with
// github.com/fxamacker/cbor/v2. It is not a production component — it has
// no certificate chain, no enclave, no external root of trust — only the
// shape of the real mechanism, swapped in so the engine can be exercised
// end to end.
package coseattest

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"
	lru "github.com/hashicorp/golang-lru"
	cose "github.com/veraison/go-cose"

	"github.com/cloudx-io/matchingengine/messaging"
	"github.com/cloudx-io/matchingengine/wire"
)

// ErrInvalidMessage wraps every authentication failure this verifier
// produces: malformed CBOR, wrong element count, bad signature.
var ErrInvalidMessage = errors.New("coseattest: invalid message")

// ErrReplaySuspected is a non-authoritative hint returned alongside a
// successfully verified message whose digest this verifier's LRU cache
// has already seen. It never gates the engine's correctness — auctionstore
// remains the actual source of truth for single-auction-per-digest — and
// the engine unwraps it and proceeds. Transport.Redeem does not unwrap it,
// so a second Redeem of the same burn through one Verifier fails.
var ErrReplaySuspected = messaging.ErrReplaySuspected

const defaultReplayCacheSize = 4096

// envelope is the CBOR-framed payload signed inside the COSE_Sign1
// structure. It carries the fields the real substrate reports out of
// band (emitter chain, emitter address, sequence) alongside the message
// payload itself, since this reference substrate has no transport of its
// own to source them from.
type envelope struct {
	EmitterChain   uint16 `cbor:"1,keyasint"`
	EmitterAddress []byte `cbor:"2,keyasint"`
	Sequence       uint64 `cbor:"3,keyasint"`
	Payload        []byte `cbor:"4,keyasint"`
}

// Verifier is a self-contained signing+verifying identity: it holds both
// halves of an ECDSA P-384 keypair, since this reference substrate plays
// both the signer (Emit, for locally-originated messages such as
// FastFill) and the verifier (Verify, for every inbound attested message)
// roles that in production belong to two different parties connected by
// the real substrate.
type Verifier struct {
	priv *ecdsa.PrivateKey

	mu      sync.Mutex
	nextSeq uint64
	replay  *lru.Cache
	emitted map[uint64][]byte
}

// New generates a fresh signing identity and returns a Verifier with a
// replay-smell cache of size cacheSize (0 uses defaultReplayCacheSize).
func New(cacheSize int) (*Verifier, error) {
	priv, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("coseattest: generate signing key: %w", err)
	}
	if cacheSize <= 0 {
		cacheSize = defaultReplayCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("coseattest: create replay cache: %w", err)
	}
	return &Verifier{priv: priv, replay: cache, emitted: make(map[uint64][]byte)}, nil
}

// Emit signs payload as emitterChain/emitterAddress and assigns it the
// next sequence number from this Verifier's own counter, implementing
// messaging.Verifier.Emit.
func (v *Verifier) Emit(_ context.Context, emitterChain wire.Chain, emitterAddress wire.Bytes32, payload []byte) ([]byte, uint64, error) {
	v.mu.Lock()
	seq := v.nextSeq
	v.nextSeq++
	v.mu.Unlock()

	env := envelope{
		EmitterChain:   uint16(emitterChain),
		EmitterAddress: emitterAddress[:],
		Sequence:       seq,
		Payload:        payload,
	}
	envBytes, err := cbor.Marshal(env)
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: marshal envelope: %w", err)
	}

	protected, err := cbor.Marshal(map[int]int{1: int(cose.AlgorithmES384)})
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: marshal protected headers: %w", err)
	}

	sigStructure, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, envBytes})
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: marshal Sig_structure: %w", err)
	}

	signer, err := cose.NewSigner(cose.AlgorithmES384, v.priv)
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: create signer: %w", err)
	}
	signature, err := signer.Sign(rand.Reader, sigStructure)
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: sign: %w", err)
	}

	coseArray := []any{protected, map[int]int{}, envBytes, signature}
	attested, err := cbor.Marshal(coseArray)
	if err != nil {
		return nil, 0, fmt.Errorf("coseattest: marshal COSE array: %w", err)
	}

	v.mu.Lock()
	v.emitted[seq] = attested
	v.mu.Unlock()

	return attested, seq, nil
}

// Emitted looks up a previously emitted attested message by the sequence
// Emit assigned it, standing in for the real substrate's ability to fetch a
// message's attestation from the guardian network by sequence rather than
// having to keep the bytes around at the call site.
func (v *Verifier) Emitted(seq uint64) ([]byte, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	attested, ok := v.emitted[seq]
	return attested, ok
}

// Verify checks attested's COSE_Sign1 signature against this Verifier's
// own public key and decodes its envelope, implementing
// messaging.Verifier.Verify. The digest reported is sha256(payload),
// standing in for the real substrate's transport-specific digest (see
// SPEC_FULL.md §4.8).
//
// If the envelope's digest has already been seen by this Verifier's
// replay cache, Verify still returns the decoded message but with a
// non-nil err wrapping ErrReplaySuspected — callers that only care about
// authenticity (the engine) should treat any non-nil err as failure
// unless they specifically unwrap for ErrReplaySuspected.
func (v *Verifier) Verify(_ context.Context, attested []byte) (messaging.VerifiedMessage, error) {
	var coseArray []any
	if err := cbor.Unmarshal(attested, &coseArray); err != nil {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: parse COSE array: %v", ErrInvalidMessage, err)
	}
	if len(coseArray) != 4 {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: expected 4-element COSE_Sign1 array, got %d", ErrInvalidMessage, len(coseArray))
	}

	protected, ok := coseArray[0].([]byte)
	if !ok {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: invalid protected headers", ErrInvalidMessage)
	}
	envBytes, ok := coseArray[2].([]byte)
	if !ok {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: invalid payload", ErrInvalidMessage)
	}
	signature, ok := coseArray[3].([]byte)
	if !ok {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: invalid signature", ErrInvalidMessage)
	}

	sigStructure, err := cbor.Marshal([]any{"Signature1", protected, []byte{}, envBytes})
	if err != nil {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: marshal Sig_structure: %v", ErrInvalidMessage, err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES384, &v.priv.PublicKey)
	if err != nil {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: create verifier: %v", ErrInvalidMessage, err)
	}
	if err := verifier.Verify(sigStructure, signature); err != nil {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: signature verification failed: %v", ErrInvalidMessage, err)
	}

	var env envelope
	if err := cbor.Unmarshal(envBytes, &env); err != nil {
		return messaging.VerifiedMessage{}, fmt.Errorf("%w: decode envelope: %v", ErrInvalidMessage, err)
	}

	var emitterAddr wire.Bytes32
	copy(emitterAddr[:], env.EmitterAddress)
	digest := sha256.Sum256(env.Payload)

	msg := messaging.VerifiedMessage{
		EmitterChain:   wire.Chain(env.EmitterChain),
		EmitterAddress: emitterAddr,
		Digest:         digest,
		Sequence:       env.Sequence,
		Payload:        env.Payload,
	}

	v.mu.Lock()
	_, seen := v.replay.Get(digest)
	v.replay.Add(digest, struct{}{})
	v.mu.Unlock()
	if seen {
		return msg, fmt.Errorf("%w: digest %x", ErrReplaySuspected, digest)
	}
	return msg, nil
}
