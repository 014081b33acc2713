package events

import (
	"testing"

	"github.com/peterldowns/testy/check"

	"github.com/cloudx-io/matchingengine/wire"
)

func TestRecorderAppendsEachEventKind(t *testing.T) {
	r := NewRecorder()
	var sink Sink = r

	digest := wire.Digest{1}
	sink.AuctionStarted(AuctionStarted{Digest: digest, Bidder: "alice"})
	sink.NewBid(NewBid{Digest: digest, Bidder: "bob"})
	sink.AuctionLiquidated(AuctionLiquidated{Digest: digest, Liquidator: "carol"})

	check.Equal(t, 1, len(r.Started))
	check.Equal(t, 1, len(r.Bids))
	check.Equal(t, 1, len(r.Liquidations))
	check.Equal(t, "alice", r.Started[0].Bidder)
	check.Equal(t, "bob", r.Bids[0].Bidder)
	check.Equal(t, "carol", r.Liquidations[0].Liquidator)
}

func TestRecorderAccumulatesAcrossMultipleEvents(t *testing.T) {
	r := NewRecorder()
	for i := 0; i < 3; i++ {
		r.AuctionStarted(AuctionStarted{Digest: wire.Digest{byte(i)}})
	}
	check.Equal(t, 3, len(r.Started))
}

func TestNopSinkDiscardsEverything(t *testing.T) {
	var sink Sink = NopSink{}
	sink.AuctionStarted(AuctionStarted{})
	sink.NewBid(NewBid{})
	sink.AuctionLiquidated(AuctionLiquidated{})
}
