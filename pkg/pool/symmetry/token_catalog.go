package symmetry

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// OracleKind tags the oracle scheme a V1 catalog entry points at.
type OracleKind uint8

const (
	// OracleKindPyth is a pyth-style price feed with confidence.
	OracleKindPyth OracleKind = 0
	// OracleKindAggregated is an indexed aggregator feed.
	OracleKindAggregated OracleKind = 1
)

const (
	catalogV1NumTokensOffset = 8
	catalogV1EntriesOffset   = 16

	// TokenEntrySize is the byte span of one V1 catalog entry.
	TokenEntrySize = 199

	entryMintOffset          = 0
	entryDecimalsOffset      = 32
	entryCustodyOffset       = 33
	entryOracleKindOffset    = 65
	entryOracleOffset        = 66
	entryOracleIndexOffset   = 98
	entryOracleConfPctOffset = 99
	entryFixedConfBpsOffset  = 100
	entryFeeAfterBpsOffset   = 102
	entryFeeBeforeBpsOffset  = 104
	entryLiquidityOffset     = 106
	entryCurveOffset         = 107
	entryAdditionalOffset    = 136

	// AdditionalDataLen is the trailing side channel of a V1 entry. The
	// last three bytes of entry 0 carry the symmetry/host/manager fee
	// split shares (out of 100).
	AdditionalDataLen = 63
)

// TokenEntry is one V1 catalog record. Price is not part of the account
// layout; it is re-assigned from the entry's oracle on every Update.
type TokenEntry struct {
	Mint                solana.PublicKey
	Decimals            uint8
	Custody             solana.PublicKey
	OracleKind          OracleKind
	Oracle              solana.PublicKey
	OracleIndex         uint8
	OracleConfidencePct uint8
	FixedConfidenceBps  uint16
	FeeAfterTargetBps   uint16
	FeeBeforeTargetBps  uint16
	HasLiquidity        bool
	UseCurve            bool
	Additional          [AdditionalDataLen]byte

	Price PriceData
}

// TokenCatalogV1 is the length-prefixed token catalog of the first
// account generation. Token 0 is the numeraire: quote logic prices it
// without curve or fee on its leg.
type TokenCatalogV1 struct {
	NumTokens uint64
	Tokens    []TokenEntry
}

func (c *TokenCatalogV1) Decode(data []byte) error {
	if len(data) < catalogV1EntriesOffset {
		return fmt.Errorf("token catalog data too short: expected at least %d bytes, got %d", catalogV1EntriesOffset, len(data))
	}
	num := binary.LittleEndian.Uint64(data[catalogV1NumTokensOffset : catalogV1NumTokensOffset+8])
	if num > MaxTokensV1 {
		return fmt.Errorf("token catalog reports %d tokens, capacity is %d", num, MaxTokensV1)
	}
	need := catalogV1EntriesOffset + int(num)*TokenEntrySize
	if len(data) < need {
		return fmt.Errorf("token catalog data too short: expected %d bytes for %d entries, got %d", need, num, len(data))
	}

	tokens := make([]TokenEntry, num)
	for i := range tokens {
		e := data[catalogV1EntriesOffset+i*TokenEntrySize:]
		t := &tokens[i]
		t.Mint = solana.PublicKeyFromBytes(e[entryMintOffset : entryMintOffset+32])
		t.Decimals = e[entryDecimalsOffset]
		t.Custody = solana.PublicKeyFromBytes(e[entryCustodyOffset : entryCustodyOffset+32])
		t.OracleKind = OracleKind(e[entryOracleKindOffset])
		t.Oracle = solana.PublicKeyFromBytes(e[entryOracleOffset : entryOracleOffset+32])
		t.OracleIndex = e[entryOracleIndexOffset]
		t.OracleConfidencePct = e[entryOracleConfPctOffset]
		t.FixedConfidenceBps = binary.LittleEndian.Uint16(e[entryFixedConfBpsOffset : entryFixedConfBpsOffset+2])
		t.FeeAfterTargetBps = binary.LittleEndian.Uint16(e[entryFeeAfterBpsOffset : entryFeeAfterBpsOffset+2])
		t.FeeBeforeTargetBps = binary.LittleEndian.Uint16(e[entryFeeBeforeBpsOffset : entryFeeBeforeBpsOffset+2])
		t.HasLiquidity = e[entryLiquidityOffset] != 0
		t.UseCurve = e[entryCurveOffset] != 0
		copy(t.Additional[:], e[entryAdditionalOffset:entryAdditionalOffset+AdditionalDataLen])

		if t.OracleKind > OracleKindAggregated {
			return fmt.Errorf("token catalog entry %d: unknown oracle kind %d", i, t.OracleKind)
		}
		if uint64(t.Decimals) >= uint64(len(pow10Table)) {
			return fmt.Errorf("token catalog entry %d: decimals %d out of range", i, t.Decimals)
		}
	}

	c.NumTokens = num
	c.Tokens = tokens
	return nil
}

// TokenID returns the catalog index of mint.
func (c *TokenCatalogV1) TokenID(mint solana.PublicKey) (uint64, bool) {
	for i := range c.Tokens {
		if c.Tokens[i].Mint == mint {
			return uint64(i), true
		}
	}
	return 0, false
}

// FeeShares reports the symmetry/host/manager split shares (out of 100)
// from entry 0's side channel. An unpopulated side channel falls back
// to the protocol's flat 5/20/20 split.
func (c *TokenCatalogV1) FeeShares() (symmetry, host, manager uint64) {
	if len(c.Tokens) == 0 {
		return 5, 20, 20
	}
	add := &c.Tokens[0].Additional
	symmetry = uint64(add[AdditionalDataLen-3])
	host = uint64(add[AdditionalDataLen-2])
	manager = uint64(add[AdditionalDataLen-1])
	if symmetry == 0 && host == 0 && manager == 0 {
		return 5, 20, 20
	}
	return symmetry, host, manager
}

const (
	catalogV2MintOffset     = 16
	catalogV2CustodyOffset  = 6416
	catalogV2OracleOffset   = 18816
	catalogV2DecimalsOffset = 25216

	// TokenCatalogV2DataSize is the minimum V2 catalog account size.
	TokenCatalogV2DataSize = catalogV2DecimalsOffset + MaxTokensV2
)

// TokenCatalogV2 is the second-generation catalog: parallel fixed
// blocks instead of packed records. Prices are filled in on Update.
type TokenCatalogV2 struct {
	Mints    [MaxTokensV2]solana.PublicKey
	Custody  [MaxTokensV2]solana.PublicKey
	Oracles  [MaxTokensV2]solana.PublicKey
	Decimals [MaxTokensV2]uint8
	Prices   [MaxTokensV2]SimplePrice
}

func (c *TokenCatalogV2) Decode(data []byte) error {
	if len(data) < TokenCatalogV2DataSize {
		return fmt.Errorf("token catalog data too short: expected %d bytes, got %d", TokenCatalogV2DataSize, len(data))
	}
	for i := 0; i < MaxTokensV2; i++ {
		c.Mints[i] = solana.PublicKeyFromBytes(data[catalogV2MintOffset+32*i : catalogV2MintOffset+32*i+32])
		c.Custody[i] = solana.PublicKeyFromBytes(data[catalogV2CustodyOffset+32*i : catalogV2CustodyOffset+32*i+32])
		c.Oracles[i] = solana.PublicKeyFromBytes(data[catalogV2OracleOffset+32*i : catalogV2OracleOffset+32*i+32])
		c.Decimals[i] = data[catalogV2DecimalsOffset+i]
		c.Prices[i] = SimplePrice{}
		if uint64(c.Decimals[i]) >= uint64(len(pow10Table)) {
			return fmt.Errorf("token catalog entry %d: decimals %d out of range", i, c.Decimals[i])
		}
	}
	return nil
}

// TokenID returns the catalog index of mint.
func (c *TokenCatalogV2) TokenID(mint solana.PublicKey) (uint64, bool) {
	for i := range c.Mints {
		if c.Mints[i] == mint {
			return uint64(i), true
		}
	}
	return 0, false
}
