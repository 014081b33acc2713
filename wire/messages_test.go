package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/peterldowns/testy/check"
)

func sampleFastMarketOrder() FastMarketOrder {
	return FastMarketOrder{
		AmountIn:          NewU128FromUint64(50_000_000_000),
		MinAmountOut:      NewU128FromUint64(49_000_000_000),
		TargetChain:       Chain(2),
		DestinationDomain: 3,
		Redeemer:          Bytes32{1},
		Sender:            Bytes32{2},
		RefundAddress:     Bytes32{3},
		SlowEmitter:       Bytes32{4},
		SlowSequence:      42,
		MaxFee:            NewU128FromUint64(1_000_000),
		InitAuctionFee:    NewU128FromUint64(100),
		Deadline:          0,
		RedeemerMessage:   []byte("hello redeemer"),
	}
}

func TestFastMarketOrderRoundTrip(t *testing.T) {
	order := sampleFastMarketOrder()
	encoded := order.Encode()

	check.Equal(t, byte(DiscriminantFastMarketOrder), encoded[0])

	disc, decodedAny, err := DecodePayload(encoded)
	check.Nil(t, err)
	check.Equal(t, DiscriminantFastMarketOrder, disc)

	decoded, ok := decodedAny.(FastMarketOrder)
	check.True(t, ok)
	check.Equal(t, order.AmountIn.String(), decoded.AmountIn.String())
	check.Equal(t, order.MinAmountOut.String(), decoded.MinAmountOut.String())
	check.Equal(t, order.TargetChain, decoded.TargetChain)
	check.Equal(t, order.DestinationDomain, decoded.DestinationDomain)
	check.Equal(t, order.Redeemer, decoded.Redeemer)
	check.Equal(t, order.Sender, decoded.Sender)
	check.Equal(t, order.RefundAddress, decoded.RefundAddress)
	check.Equal(t, order.SlowEmitter, decoded.SlowEmitter)
	check.Equal(t, order.SlowSequence, decoded.SlowSequence)
	check.Equal(t, order.MaxFee.String(), decoded.MaxFee.String())
	check.Equal(t, order.InitAuctionFee.String(), decoded.InitAuctionFee.String())
	check.Equal(t, order.Deadline, decoded.Deadline)
	check.True(t, bytes.Equal(order.RedeemerMessage, decoded.RedeemerMessage))
}

func TestFastMarketOrderRejectsTrailingBytes(t *testing.T) {
	order := sampleFastMarketOrder()
	encoded := append(order.Encode(), 0xFF)

	_, _, err := DecodePayload(encoded)
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestFastMarketOrderRejectsTruncation(t *testing.T) {
	order := sampleFastMarketOrder()
	encoded := order.Encode()
	truncated := encoded[:len(encoded)-5]

	_, _, err := DecodePayload(truncated)
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestUnknownDiscriminant(t *testing.T) {
	_, _, err := DecodePayload([]byte{0xAB, 0x01, 0x02})
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrMalformedPayload))
}

func TestSlowOrderResponseRoundTrip(t *testing.T) {
	resp := SlowOrderResponse{BaseFee: NewU128FromUint64(12345)}
	encoded := resp.Encode()

	disc, decodedAny, err := DecodePayload(encoded)
	check.Nil(t, err)
	check.Equal(t, DiscriminantSlowOrderResponse, disc)

	decoded, ok := decodedAny.(SlowOrderResponse)
	check.True(t, ok)
	check.Equal(t, resp.BaseFee.String(), decoded.BaseFee.String())
}

func TestSlowOrderInitRoundTrip(t *testing.T) {
	init := SlowOrderInit{FastDigest: Bytes32{9, 9, 9}}
	encoded := init.Encode()

	disc, decodedAny, err := DecodePayload(encoded)
	check.Nil(t, err)
	check.Equal(t, DiscriminantSlowOrderInit, disc)

	decoded, ok := decodedAny.(SlowOrderInit)
	check.True(t, ok)
	check.Equal(t, init.FastDigest, decoded.FastDigest)
}

func TestFillRoundTrip(t *testing.T) {
	fill := Fill{
		SourceChain:     Chain(7),
		OrderSender:     Bytes32{5},
		Redeemer:        Bytes32{6},
		RedeemerMessage: []byte("payload"),
	}
	encoded := fill.Encode()

	disc, decodedAny, err := DecodePayload(encoded)
	check.Nil(t, err)
	check.Equal(t, DiscriminantFill, disc)

	decoded, ok := decodedAny.(Fill)
	check.True(t, ok)
	check.Equal(t, fill.SourceChain, decoded.SourceChain)
	check.Equal(t, fill.OrderSender, decoded.OrderSender)
	check.Equal(t, fill.Redeemer, decoded.Redeemer)
	check.True(t, bytes.Equal(fill.RedeemerMessage, decoded.RedeemerMessage))
}

func TestFastFillRoundTrip(t *testing.T) {
	ff := FastFill{
		Fill: Fill{
			SourceChain:     Chain(7),
			OrderSender:     Bytes32{5},
			Redeemer:        Bytes32{6},
			RedeemerMessage: []byte("payload"),
		},
		FillAmount: NewU128FromUint64(49_999_599_500),
	}
	encoded := ff.Encode()

	disc, decodedAny, err := DecodePayload(encoded)
	check.Nil(t, err)
	check.Equal(t, DiscriminantFastFill, disc)

	decoded, ok := decodedAny.(FastFill)
	check.True(t, ok)
	check.Equal(t, ff.FillAmount.String(), decoded.FillAmount.String())
	check.Equal(t, ff.Fill.SourceChain, decoded.Fill.SourceChain)
	check.True(t, bytes.Equal(ff.Fill.RedeemerMessage, decoded.Fill.RedeemerMessage))
}

func TestEmptyPayloadRejected(t *testing.T) {
	_, _, err := DecodePayload(nil)
	check.NotNil(t, err)
	check.True(t, errors.Is(err, ErrMalformedPayload))
}
