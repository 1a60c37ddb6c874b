package symmetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
)

func putU16(data []byte, off int, v uint16) {
	binary.LittleEndian.PutUint16(data[off:], v)
}

func putU32(data []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(data[off:], v)
}

func putU64(data []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(data[off:], v)
}

// testKey builds a deterministic 32-byte address from a seed byte.
func testKey(seed byte) solana.PublicKey {
	return solana.PublicKeyFromBytes(bytes.Repeat([]byte{seed}, 32))
}

type entrySpec struct {
	mint        solana.PublicKey
	decimals    uint8
	custody     solana.PublicKey
	oracleKind  OracleKind
	oracle      solana.PublicKey
	oracleIndex uint8
	confPct     uint8
	fixedBps    uint16
	feeAfter    uint16
	feeBefore   uint16
	liquidity   bool
	useCurve    bool
	additional  [AdditionalDataLen]byte
}

func buildCatalogV1(entries []entrySpec) []byte {
	data := make([]byte, catalogV1EntriesOffset+len(entries)*TokenEntrySize)
	putU64(data, catalogV1NumTokensOffset, uint64(len(entries)))
	for i, spec := range entries {
		e := data[catalogV1EntriesOffset+i*TokenEntrySize:]
		copy(e[entryMintOffset:], spec.mint.Bytes())
		e[entryDecimalsOffset] = spec.decimals
		copy(e[entryCustodyOffset:], spec.custody.Bytes())
		e[entryOracleKindOffset] = byte(spec.oracleKind)
		copy(e[entryOracleOffset:], spec.oracle.Bytes())
		e[entryOracleIndexOffset] = spec.oracleIndex
		e[entryOracleConfPctOffset] = spec.confPct
		putU16(e, entryFixedConfBpsOffset, spec.fixedBps)
		putU16(e, entryFeeAfterBpsOffset, spec.feeAfter)
		putU16(e, entryFeeBeforeBpsOffset, spec.feeBefore)
		if spec.liquidity {
			e[entryLiquidityOffset] = 1
		}
		if spec.useCurve {
			e[entryCurveOffset] = 1
		}
		copy(e[entryAdditionalOffset:entryAdditionalOffset+AdditionalDataLen], spec.additional[:])
	}
	return data
}

type fundSpec struct {
	manager    solana.PublicKey
	host       solana.PublicKey
	numTokens  uint64
	compToken  []uint64
	compAmount []uint64
	weight     []uint64
	weightSum  uint64
	rebalance  uint64
	lpOffset   uint64
}

func buildFundState(spec fundSpec) []byte {
	data := make([]byte, FundStateDataSize)
	copy(data[fundManagerOffset:], spec.manager.Bytes())
	copy(data[fundHostOffset:], spec.host.Bytes())
	putU64(data, fundNumTokensOffset, spec.numTokens)
	for i := range spec.compToken {
		putU64(data, fundCompTokenOffset+8*i, spec.compToken[i])
	}
	for i := range spec.compAmount {
		putU64(data, fundCompAmountOffset+8*i, spec.compAmount[i])
	}
	for i := range spec.weight {
		putU64(data, fundTargetWeightOffset+8*i, spec.weight[i])
	}
	putU64(data, fundWeightSumOffset, spec.weightSum)
	putU64(data, fundRebalanceOffset, spec.rebalance)
	putU64(data, fundLpOffsetOffset, spec.lpOffset)
	return data
}

func buildCurveBlob(maxTokens int) []byte {
	return make([]byte, CurveDataSize(maxTokens))
}

func setBuyPoint(data []byte, token, point int, amount, price uint64) {
	putU64(data, curveBuyAmountOffset+curveTokenStride*token+8*point, amount)
	putU64(data, curveBuyPriceOffset+curveTokenStride*token+8*point, price)
}

func setSellPoint(data []byte, token, point int, amount, price uint64) {
	putU64(data, curveSellAmountOffset+curveTokenStride*token+8*point, amount)
	putU64(data, curveSellPriceOffset+curveTokenStride*token+8*point, price)
}

func buildPythOracle(expo int32, validSlot uint64, price int64, conf uint64, status uint32) []byte {
	data := make([]byte, 240)
	putU32(data, pythExpoOffset, uint32(expo))
	putU64(data, pythValidSlotOffset, validSlot)
	putU64(data, pythPriceOffset, uint64(price))
	putU64(data, pythConfOffset, conf)
	putU32(data, pythStatusOffset, status)
	return data
}

func buildAggregatedOracle(index uint8, mantissa, writeTs uint64) []byte {
	data := make([]byte, aggregatedWriteTsOffset+8*int(index)+8)
	putU64(data, aggregatedMantissaOffset+8*int(index), mantissa)
	putU64(data, aggregatedWriteTsOffset+8*int(index), writeTs)
	return data
}

var (
	testFundKey = testKey(0xF0)
	testClock   = sol.Clock{Slot: 1_000, UnixTimestamp: 1_700_000_000}
)

// newTestVenueV1 constructs a V1 venue and installs the given snapshot.
func newTestVenueV1(t *testing.T, entries []entrySpec, fund fundSpec, curveBlob []byte, oracleBlobs map[solana.PublicKey][]byte) *V1Venue {
	t.Helper()
	fundData := buildFundState(fund)
	venue, err := NewV1Venue(testFundKey, fundData, buildCatalogV1(entries), sol.FixedTimeSource{Clock: testClock})
	require.NoError(t, err)

	accounts := map[solana.PublicKey][]byte{
		CurveDataAddress: curveBlob,
		testFundKey:      fundData,
	}
	for k, v := range oracleBlobs {
		accounts[k] = v
	}
	require.NoError(t, venue.Update(context.Background(), accounts))
	return venue
}
