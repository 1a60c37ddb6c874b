package symmetry

import (
	"encoding/binary"
	"fmt"
)

const (
	curveBuyAmountOffset  = 8
	curveBuyPriceOffset   = 88
	curveSellAmountOffset = 32008
	curveSellPriceOffset  = 32088
	curveTokenStride      = 160
)

// TokenPriceData is one side of one token's curve: the next ten
// inventory steps away from target and the price applying inside each.
type TokenPriceData struct {
	Amount [NumCurvePoints]uint64
	Price  [NumCurvePoints]uint64
}

// CurveData is the globally shared curve dataset. The buy and sell
// blocks sit at fixed offsets; only the token capacity differs between
// the two account generations.
type CurveData struct {
	maxTokens int
	Buy       []TokenPriceData
	Sell      []TokenPriceData
}

// EmptyCurveData builds a zeroed dataset to fill the snapshot before
// the first Update.
func EmptyCurveData(maxTokens int) *CurveData {
	return &CurveData{
		maxTokens: maxTokens,
		Buy:       make([]TokenPriceData, maxTokens),
		Sell:      make([]TokenPriceData, maxTokens),
	}
}

// CurveDataSize returns the minimum account size for a dataset of
// maxTokens tokens.
func CurveDataSize(maxTokens int) int {
	return curveSellAmountOffset + curveTokenStride*maxTokens
}

func (c *CurveData) Decode(data []byte) error {
	need := CurveDataSize(c.maxTokens)
	if len(data) < need {
		return fmt.Errorf("curve data too short: expected %d bytes, got %d", need, len(data))
	}
	for i := 0; i < c.maxTokens; i++ {
		for j := 0; j < NumCurvePoints; j++ {
			c.Buy[i].Amount[j] = binary.LittleEndian.Uint64(data[curveBuyAmountOffset+curveTokenStride*i+8*j:])
			c.Buy[i].Price[j] = binary.LittleEndian.Uint64(data[curveBuyPriceOffset+curveTokenStride*i+8*j:])
			c.Sell[i].Amount[j] = binary.LittleEndian.Uint64(data[curveSellAmountOffset+curveTokenStride*i+8*j:])
			c.Sell[i].Price[j] = binary.LittleEndian.Uint64(data[curveSellPriceOffset+curveTokenStride*i+8*j:])
		}
	}
	return nil
}

func (c *CurveData) clone() *CurveData {
	out := &CurveData{
		maxTokens: c.maxTokens,
		Buy:       make([]TokenPriceData, len(c.Buy)),
		Sell:      make([]TokenPriceData, len(c.Sell)),
	}
	copy(out.Buy, c.Buy)
	copy(out.Sell, c.Sell)
	return out
}
