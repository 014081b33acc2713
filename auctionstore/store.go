// Package auctionstore holds the per-digest LiveAuctionData keyed map and
// the fast-fill redemption ledger — the engine's only persistent,
// authoritative state besides the registry and config singletons.
package auctionstore

import (
	"errors"
	"sync"

	"github.com/cloudx-io/matchingengine/wire"
)

// ErrNotFound is returned by Get when no record exists for the digest
// (distinct from a record whose Status is StatusNone — see spec.md §3;
// in practice this package never persists a StatusNone record, so
// "not found" and "status none" coincide).
var ErrNotFound = errors.New("auctionstore: no record for digest")

// LiveAuctionData is the per-digest auction record (spec.md §3). Fields
// other than Status, HighestBidder and BidPrice are immutable once Status
// leaves StatusNone (T2: start_block, initial_bidder, amount, security_deposit
// never change after place_initial_bid).
type LiveAuctionData struct {
	Status          Status
	StartBlock      uint64
	InitialBidder   string
	HighestBidder   string
	Amount          wire.U128
	SecurityDeposit wire.U128
	BidPrice        wire.U128
}

// Store is the interface the engine uses for auction records and the
// fast-fill ledger. Implementations must make Get/Put atomic with respect
// to Lock/Unlock on the same digest — see SPEC_FULL.md §5.
type Store interface {
	// Lock acquires the per-digest critical section. Every engine entry
	// point holds this from the moment it knows the digest until it
	// returns, reproducing "one transaction at a time per digest" without
	// a literal block producer.
	Lock(digest wire.Digest)
	// Unlock releases the per-digest critical section.
	Unlock(digest wire.Digest)

	// Get returns the record for digest, or ErrNotFound. A not-found
	// record must be treated identically to a StatusNone record by
	// callers.
	Get(digest wire.Digest) (LiveAuctionData, error)
	// Put writes the record for digest, creating it if absent.
	Put(digest wire.Digest, data LiveAuctionData) error

	// IsFastFillRedeemed reports whether digest is in the fast-fill
	// ledger (spec.md §3 FastFillLedger).
	IsFastFillRedeemed(digest wire.Digest) (bool, error)
	// MarkFastFillRedeemed inserts digest into the fast-fill ledger.
	MarkFastFillRedeemed(digest wire.Digest) error
}

// keyedMutex is a striped, lazily-populated map of per-key mutexes. It is
// the in-process rendering of "every engine entry point is atomic against
// a single authoritative state" for a digest — unrelated digests proceed
// fully in parallel.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[wire.Digest]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[wire.Digest]*sync.Mutex)}
}

func (k *keyedMutex) Lock(digest wire.Digest) {
	k.mu.Lock()
	l, ok := k.locks[digest]
	if !ok {
		l = &sync.Mutex{}
		k.locks[digest] = l
	}
	k.mu.Unlock()
	l.Lock()
}

func (k *keyedMutex) Unlock(digest wire.Digest) {
	k.mu.Lock()
	l, ok := k.locks[digest]
	k.mu.Unlock()
	if !ok {
		return
	}
	l.Unlock()
}

// InMemory is a Store backed by a guarded Go map. It is the reference
// implementation used by the simulator CLI and the engine's own tests.
type InMemory struct {
	stripe *keyedMutex

	mu       sync.RWMutex
	auctions map[wire.Digest]LiveAuctionData
	redeemed map[wire.Digest]struct{}
}

// NewInMemory returns an empty InMemory store.
func NewInMemory() *InMemory {
	return &InMemory{
		stripe:   newKeyedMutex(),
		auctions: make(map[wire.Digest]LiveAuctionData),
		redeemed: make(map[wire.Digest]struct{}),
	}
}

func (s *InMemory) Lock(digest wire.Digest)   { s.stripe.Lock(digest) }
func (s *InMemory) Unlock(digest wire.Digest) { s.stripe.Unlock(digest) }

func (s *InMemory) Get(digest wire.Digest) (LiveAuctionData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.auctions[digest]
	if !ok {
		return LiveAuctionData{}, ErrNotFound
	}
	return data, nil
}

func (s *InMemory) Put(digest wire.Digest, data LiveAuctionData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[digest] = data
	return nil
}

func (s *InMemory) IsFastFillRedeemed(digest wire.Digest) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.redeemed[digest]
	return ok, nil
}

func (s *InMemory) MarkFastFillRedeemed(digest wire.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redeemed[digest] = struct{}{}
	return nil
}
