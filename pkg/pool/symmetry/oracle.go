package symmetry

import (
	"encoding/binary"
	"fmt"

	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
	"lukechampine.com/uint128"
)

const (
	pythExpoOffset      = 20
	pythValidSlotOffset = 40
	pythPriceOffset     = 208
	pythConfOffset      = 216
	pythStatusOffset    = 224
	pythAccountMinSize  = 228

	aggregatedMantissaOffset = 9
	aggregatedWriteTsOffset  = 409

	// maxPythSlotAge and maxAggregatedAge bound oracle staleness.
	maxPythSlotAge    = 50
	maxAggregatedAge  = 15
	pythTradingStatus = 1
)

// PriceData is the V1 oracle snapshot: a sell/avg/buy triplet in
// canonical USD units plus a liveness flag. It is derived during
// Update, never persisted.
type PriceData struct {
	SellPrice uint64
	AvgPrice  uint64
	BuyPrice  uint64
	Live      bool
}

// DecodeOraclePrice derives a PriceData from a raw oracle account using
// the entry's oracle scheme and confidence knobs. The clock is the
// injected slot/wall-clock pair, never ambient time.
func DecodeOraclePrice(entry *TokenEntry, data []byte, clock sol.Clock) (PriceData, error) {
	switch entry.OracleKind {
	case OracleKindPyth:
		return decodePythPrice(entry, data, clock)
	case OracleKindAggregated:
		return decodeAggregatedPrice(entry, data, clock)
	default:
		return PriceData{}, fmt.Errorf("unknown oracle kind %d", entry.OracleKind)
	}
}

func decodePythPrice(entry *TokenEntry, data []byte, clock sol.Clock) (PriceData, error) {
	if len(data) < pythAccountMinSize {
		return PriceData{}, fmt.Errorf("pyth account data too short: expected %d bytes, got %d", pythAccountMinSize, len(data))
	}
	expo := int32(binary.LittleEndian.Uint32(data[pythExpoOffset : pythExpoOffset+4]))
	validSlot := binary.LittleEndian.Uint64(data[pythValidSlotOffset : pythValidSlotOffset+8])
	price := int64(binary.LittleEndian.Uint64(data[pythPriceOffset : pythPriceOffset+8]))
	conf := binary.LittleEndian.Uint64(data[pythConfOffset : pythConfOffset+8])
	status := binary.LittleEndian.Uint32(data[pythStatusOffset : pythStatusOffset+4])

	if expo > 0 || expo < -18 {
		return PriceData{}, fmt.Errorf("unsupported pyth exponent %d", expo)
	}
	scale := Pow10(uint64(-expo))

	pricePos := uint64(0)
	if price > 0 {
		pricePos = uint64(price)
	}

	live := true
	switch {
	case clock.Slot >= validSlot+maxPythSlotAge:
		live = false
	case status != pythTradingStatus:
		live = false
	case price < 0:
		live = false
	case uint128.From64(conf).Mul64(10).Cmp(uint128.From64(pricePos)) > 0:
		// confidence above 10% of price: the feed is not trustworthy
		live = false
	}

	avg := MulDiv(pricePos, OneUSD, scale)
	confUSD := MulDiv(conf, OneUSD, scale)
	baseConf := MulDiv(confUSD, uint64(entry.OracleConfidencePct), 100)
	return finalizePrice(entry, avg, baseConf, live), nil
}

func decodeAggregatedPrice(entry *TokenEntry, data []byte, clock sol.Clock) (PriceData, error) {
	mantissaOff := aggregatedMantissaOffset + 8*int(entry.OracleIndex)
	writeTsOff := aggregatedWriteTsOffset + 8*int(entry.OracleIndex)
	if len(data) < writeTsOff+8 {
		return PriceData{}, fmt.Errorf("aggregated oracle data too short: expected %d bytes, got %d", writeTsOff+8, len(data))
	}
	mantissa := binary.LittleEndian.Uint64(data[mantissaOff : mantissaOff+8])
	writeTs := binary.LittleEndian.Uint64(data[writeTsOff : writeTsOff+8])

	live := clock.UnixTimestamp <= writeTs+maxAggregatedAge

	baseConf := MulDiv(mantissa, uint64(entry.OracleConfidencePct), 10_000)
	// one side of the spread is folded into avg for this kind
	avg := mantissa - baseConf
	return finalizePrice(entry, avg, baseConf, live), nil
}

func finalizePrice(entry *TokenEntry, avg, baseConf uint64, live bool) PriceData {
	extra := MulDiv(avg, uint64(entry.FixedConfidenceBps), 10_000)
	sell := uint64(0)
	if avg > baseConf+extra {
		sell = avg - baseConf - extra
	}
	return PriceData{
		SellPrice: sell,
		AvgPrice:  avg,
		BuyPrice:  avg + baseConf + extra,
		Live:      live,
	}
}

const simplePriceAccountMinSize = 224

// SimplePrice is the V2 oracle snapshot: the raw feed price with a
// narrow low/high envelope around it.
type SimplePrice struct {
	Expo  int32
	Price int64
	Low   int64
	High  int64
}

func (p *SimplePrice) Decode(data []byte) error {
	if len(data) < simplePriceAccountMinSize {
		return fmt.Errorf("oracle account data too short: expected %d bytes, got %d", simplePriceAccountMinSize, len(data))
	}
	p.Expo = int32(binary.LittleEndian.Uint32(data[pythExpoOffset : pythExpoOffset+4]))
	p.Price = int64(binary.LittleEndian.Uint64(data[pythPriceOffset : pythPriceOffset+8]))
	conf := binary.LittleEndian.Uint64(data[pythConfOffset : pythConfOffset+8])

	if p.Price < 0 {
		p.Low = p.Price
		p.High = p.Price
		return nil
	}
	price := uint64(p.Price)
	p.Low = int64(MulDiv(price, 100_000-1, 100_000)) - int64(conf/2)
	p.High = int64(MulDiv(price, 100_000+1, 100_000)) + int64(conf/2)
	return nil
}
