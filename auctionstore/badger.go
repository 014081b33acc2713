package auctionstore

import (
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v3"
	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/matchingengine/wire"
)

// Badger is a Store backed by an embedded Badger key-value database, for
// deployments that need the auction record and fast-fill ledger to survive
// a process restart. This is the off-chain equivalent of the original
// Solana program's persisted accounts: durable, single-writer, no
// external server to operate. Record encoding uses CBOR (the same
// encoding the teacher repo uses for its attestation envelopes) rather
// than the wire package's fixed-layout codec, since this is an internal
// checkpoint format, not a cross-chain message.
type Badger struct {
	stripe *keyedMutex
	db     *badger.DB
}

const (
	auctionKeyPrefix  = "auction/"
	redeemedKeyPrefix = "fastfill/"
)

// OpenBadger opens (or creates) a Badger database at dir.
func OpenBadger(dir string) (*Badger, error) {
	opts := badger.DefaultOptions(dir)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("auctionstore: open badger at %s: %w", dir, err)
	}
	return &Badger{stripe: newKeyedMutex(), db: db}, nil
}

// Close releases the underlying database handle.
func (b *Badger) Close() error {
	return b.db.Close()
}

func auctionKey(digest wire.Digest) []byte {
	return append([]byte(auctionKeyPrefix), digest[:]...)
}

func redeemedKey(digest wire.Digest) []byte {
	return append([]byte(redeemedKeyPrefix), digest[:]...)
}

func (b *Badger) Lock(digest wire.Digest)   { b.stripe.Lock(digest) }
func (b *Badger) Unlock(digest wire.Digest) { b.stripe.Unlock(digest) }

func (b *Badger) Get(digest wire.Digest) (LiveAuctionData, error) {
	var data LiveAuctionData
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(auctionKey(digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return cbor.Unmarshal(val, &data)
		})
	})
	if err != nil {
		return LiveAuctionData{}, err
	}
	return data, nil
}

func (b *Badger) Put(digest wire.Digest, data LiveAuctionData) error {
	encoded, err := cbor.Marshal(data)
	if err != nil {
		return fmt.Errorf("auctionstore: encode record: %w", err)
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(auctionKey(digest), encoded)
	})
}

func (b *Badger) IsFastFillRedeemed(digest wire.Digest) (bool, error) {
	var redeemed bool
	err := b.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(redeemedKey(digest))
		if errors.Is(err, badger.ErrKeyNotFound) {
			redeemed = false
			return nil
		}
		if err != nil {
			return err
		}
		redeemed = true
		return nil
	})
	return redeemed, err
}

func (b *Badger) MarkFastFillRedeemed(digest wire.Digest) error {
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set(redeemedKey(digest), []byte{1})
	})
}

// ForEachAuction iterates every persisted auction record, for use by
// cmd/auctionstore-inspect. fn receives the digest and decoded record; it
// should return an error to stop iteration early.
func (b *Badger) ForEachAuction(fn func(digest wire.Digest, data LiveAuctionData) error) error {
	return b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(auctionKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var digest wire.Digest
			copy(digest[:], item.Key()[len(auctionKeyPrefix):])

			var data LiveAuctionData
			if err := item.Value(func(val []byte) error {
				return cbor.Unmarshal(val, &data)
			}); err != nil {
				return err
			}
			if err := fn(digest, data); err != nil {
				return err
			}
		}
		return nil
	})
}
