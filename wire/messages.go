package wire

import "fmt"

// Discriminant identifies a payload type on the wire. Values are fixed per
// spec and must never be renumbered once shipped.
type Discriminant byte

const (
	DiscriminantFastMarketOrder   Discriminant = 0x11
	DiscriminantSlowOrderResponse Discriminant = 0x14
	DiscriminantFill              Discriminant = 0x01
	DiscriminantFastFill          Discriminant = 0x0C
	DiscriminantSlowOrderInit     Discriminant = 0x0D
)

// FastMarketOrder is the presigned, fast-path order message.
type FastMarketOrder struct {
	AmountIn          U128
	MinAmountOut      U128
	TargetChain       Chain
	DestinationDomain uint32
	Redeemer          Bytes32
	Sender            Bytes32
	RefundAddress     Bytes32
	SlowEmitter       Bytes32
	SlowSequence      uint64
	MaxFee            U128
	InitAuctionFee    U128
	Deadline          uint32 // unix seconds; 0 = no deadline
	RedeemerMessage   []byte
}

// Encode serializes a FastMarketOrder to its canonical byte form.
func (m FastMarketOrder) Encode() []byte {
	buf := make([]byte, 0, 1+16+16+2+4+32+32+32+32+8+16+16+4+4+len(m.RedeemerMessage))
	buf = append(buf, byte(DiscriminantFastMarketOrder))
	buf = appendU128(buf, m.AmountIn)
	buf = appendU128(buf, m.MinAmountOut)
	buf = appendU16(buf, uint16(m.TargetChain))
	buf = appendU32(buf, m.DestinationDomain)
	buf = appendBytes32(buf, m.Redeemer)
	buf = appendBytes32(buf, m.Sender)
	buf = appendBytes32(buf, m.RefundAddress)
	buf = appendBytes32(buf, m.SlowEmitter)
	buf = appendU64(buf, m.SlowSequence)
	buf = appendU128(buf, m.MaxFee)
	buf = appendU128(buf, m.InitAuctionFee)
	buf = appendU32(buf, m.Deadline)
	buf = appendU32(buf, uint32(len(m.RedeemerMessage)))
	buf = append(buf, m.RedeemerMessage...)
	return buf
}

// DecodeFastMarketOrder parses a FastMarketOrder payload (discriminant
// byte already stripped by DecodePayload).
func DecodeFastMarketOrder(body []byte) (FastMarketOrder, error) {
	r := &byteReader{b: body}
	var m FastMarketOrder
	var err error
	if m.AmountIn, err = r.u128(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.MinAmountOut, err = r.u128(); err != nil {
		return FastMarketOrder{}, err
	}
	targetChain, err := r.u16()
	if err != nil {
		return FastMarketOrder{}, err
	}
	m.TargetChain = Chain(targetChain)
	if m.DestinationDomain, err = r.u32(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.Redeemer, err = r.bytes32(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.Sender, err = r.bytes32(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.RefundAddress, err = r.bytes32(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.SlowEmitter, err = r.bytes32(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.SlowSequence, err = r.u64(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.MaxFee, err = r.u128(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.InitAuctionFee, err = r.u128(); err != nil {
		return FastMarketOrder{}, err
	}
	if m.Deadline, err = r.u32(); err != nil {
		return FastMarketOrder{}, err
	}
	msgLen, err := r.u32()
	if err != nil {
		return FastMarketOrder{}, err
	}
	msg, err := r.remaining(int(msgLen))
	if err != nil {
		return FastMarketOrder{}, err
	}
	m.RedeemerMessage = append([]byte(nil), msg...)
	if err := r.done(); err != nil {
		return FastMarketOrder{}, err
	}
	return m, nil
}

// SlowOrderResponse carries the base fee computed by the token-router when
// it observes the slow CCTP transfer underway.
type SlowOrderResponse struct {
	BaseFee U128
}

// Encode serializes a SlowOrderResponse.
func (m SlowOrderResponse) Encode() []byte {
	buf := make([]byte, 0, 17)
	buf = append(buf, byte(DiscriminantSlowOrderResponse))
	buf = appendU128(buf, m.BaseFee)
	return buf
}

// DecodeSlowOrderResponse parses a SlowOrderResponse payload.
func DecodeSlowOrderResponse(body []byte) (SlowOrderResponse, error) {
	r := &byteReader{b: body}
	baseFee, err := r.u128()
	if err != nil {
		return SlowOrderResponse{}, err
	}
	if err := r.done(); err != nil {
		return SlowOrderResponse{}, err
	}
	return SlowOrderResponse{BaseFee: baseFee}, nil
}

// SlowOrderInit is the supplemental correlation pointer the token-router
// attaches to a CCTP deposit memo, naming the fast digest a slow transfer
// belongs to. It is decode-only here: ExecuteSlowAndReconcile takes the
// digest from the fast message it verifies and does not read this type.
type SlowOrderInit struct {
	FastDigest Bytes32
}

// Encode serializes a SlowOrderInit.
func (m SlowOrderInit) Encode() []byte {
	buf := make([]byte, 0, 33)
	buf = append(buf, byte(DiscriminantSlowOrderInit))
	buf = appendBytes32(buf, m.FastDigest)
	return buf
}

// DecodeSlowOrderInit parses a SlowOrderInit payload.
func DecodeSlowOrderInit(body []byte) (SlowOrderInit, error) {
	r := &byteReader{b: body}
	digest, err := r.bytes32()
	if err != nil {
		return SlowOrderInit{}, err
	}
	if err := r.done(); err != nil {
		return SlowOrderInit{}, err
	}
	return SlowOrderInit{FastDigest: digest}, nil
}

// Fill describes the destination-side settlement of an order.
type Fill struct {
	SourceChain     Chain
	OrderSender     Bytes32
	Redeemer        Bytes32
	RedeemerMessage []byte
}

func (f Fill) encodeInto(buf []byte) []byte {
	buf = appendU16(buf, uint16(f.SourceChain))
	buf = appendBytes32(buf, f.OrderSender)
	buf = appendBytes32(buf, f.Redeemer)
	buf = appendU32(buf, uint32(len(f.RedeemerMessage)))
	buf = append(buf, f.RedeemerMessage...)
	return buf
}

func decodeFillFields(r *byteReader) (Fill, error) {
	var f Fill
	sourceChain, err := r.u16()
	if err != nil {
		return Fill{}, err
	}
	f.SourceChain = Chain(sourceChain)
	if f.OrderSender, err = r.bytes32(); err != nil {
		return Fill{}, err
	}
	if f.Redeemer, err = r.bytes32(); err != nil {
		return Fill{}, err
	}
	msgLen, err := r.u32()
	if err != nil {
		return Fill{}, err
	}
	msg, err := r.remaining(int(msgLen))
	if err != nil {
		return Fill{}, err
	}
	f.RedeemerMessage = append([]byte(nil), msg...)
	return f, nil
}

// Encode serializes a Fill payload.
func (f Fill) Encode() []byte {
	buf := make([]byte, 0, 1+2+32+32+4+len(f.RedeemerMessage))
	buf = append(buf, byte(DiscriminantFill))
	buf = f.encodeInto(buf)
	return buf
}

// DecodeFill parses a Fill payload.
func DecodeFill(body []byte) (Fill, error) {
	r := &byteReader{b: body}
	f, err := decodeFillFields(r)
	if err != nil {
		return Fill{}, err
	}
	if err := r.done(); err != nil {
		return Fill{}, err
	}
	return f, nil
}

// FastFill is the same-chain settlement message emitted when an order's
// target chain equals the engine's own chain.
type FastFill struct {
	Fill       Fill
	FillAmount U128
}

// Encode serializes a FastFill payload.
func (m FastFill) Encode() []byte {
	buf := make([]byte, 0, 1+16+2+32+32+4+len(m.Fill.RedeemerMessage))
	buf = append(buf, byte(DiscriminantFastFill))
	buf = appendU128(buf, m.FillAmount)
	buf = m.Fill.encodeInto(buf)
	return buf
}

// DecodeFastFill parses a FastFill payload.
func DecodeFastFill(body []byte) (FastFill, error) {
	r := &byteReader{b: body}
	fillAmount, err := r.u128()
	if err != nil {
		return FastFill{}, err
	}
	fill, err := decodeFillFields(r)
	if err != nil {
		return FastFill{}, err
	}
	if err := r.done(); err != nil {
		return FastFill{}, err
	}
	return FastFill{Fill: fill, FillAmount: fillAmount}, nil
}

// DecodePayload reads the discriminant byte from raw and dispatches to the
// matching decoder, returning the decoded value as `any`. Callers that
// know the expected type should use the typed Decode* functions directly
// after checking the discriminant; DecodePayload exists for generic
// dispatch (e.g. the engine decoding whatever payload the verifier hands
// back, before checking its type).
func DecodePayload(raw []byte) (Discriminant, any, error) {
	if len(raw) < 1 {
		return 0, nil, fmt.Errorf("%w: empty payload", ErrMalformedPayload)
	}
	disc := Discriminant(raw[0])
	body := raw[1:]
	switch disc {
	case DiscriminantFastMarketOrder:
		v, err := DecodeFastMarketOrder(body)
		return disc, v, err
	case DiscriminantSlowOrderResponse:
		v, err := DecodeSlowOrderResponse(body)
		return disc, v, err
	case DiscriminantSlowOrderInit:
		v, err := DecodeSlowOrderInit(body)
		return disc, v, err
	case DiscriminantFill:
		v, err := DecodeFill(body)
		return disc, v, err
	case DiscriminantFastFill:
		v, err := DecodeFastFill(body)
		return disc, v, err
	default:
		return disc, nil, fmt.Errorf("%w: unknown discriminant 0x%02x", ErrMalformedPayload, byte(disc))
	}
}
