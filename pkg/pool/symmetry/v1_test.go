package symmetry

import (
	"context"
	"encoding/binary"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/symmetry-protocol/symmetry-go/pkg"
)

var (
	usdcMint   = testKey(0x01)
	solMint    = testKey(0x02)
	usdcOracle = testKey(0xA0)
	solOracle  = testKey(0xA1)
)

// twoTokenEntries is the baseline catalog: a USD-pegged numeraire and a
// $100 asset, zero fees, curve off.
func twoTokenEntries() []entrySpec {
	return []entrySpec{
		{mint: usdcMint, decimals: 6, custody: testKey(0x11), oracleKind: OracleKindPyth, oracle: usdcOracle, liquidity: true},
		{mint: solMint, decimals: 9, custody: testKey(0x12), oracleKind: OracleKindPyth, oracle: solOracle, liquidity: true},
	}
}

func twoTokenFund() fundSpec {
	return fundSpec{
		manager:    testKey(0x03),
		host:       testKey(0x04),
		numTokens:  2,
		compToken:  []uint64{0, 1},
		compAmount: []uint64{1_000_000_000, 5_000_000_000}, // 1000 USDC, 5 SOL
		weight:     []uint64{5000, 5000},
		weightSum:  10_000,
		rebalance:  10_000,
		lpOffset:   10_000,
	}
}

func twoTokenOracles() map[solana.PublicKey][]byte {
	return map[solana.PublicKey][]byte{
		usdcOracle: buildPythOracle(-8, testClock.Slot, 1_0000_0000, 0, pythTradingStatus),     // $1
		solOracle:  buildPythOracle(-8, testClock.Slot, 100_0000_0000, 0, pythTradingStatus),   // $100
	}
}

func quoteV1(t *testing.T, venue *V1Venue, in, out solana.PublicKey, amount int64) pkg.Quote {
	t.Helper()
	quote, err := venue.Quote(context.Background(), pkg.QuoteParams{
		InputMint:  in,
		OutputMint: out,
		InAmount:   math.NewInt(amount),
	})
	require.NoError(t, err)
	return quote
}

func TestQuoteAtOraclePrice(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	// 100 USDC buys exactly 1 SOL with no fee and no impact
	quote := quoteV1(t, venue, usdcMint, solMint, 100_000_000)
	require.Equal(t, math.NewInt(1_000_000_000), quote.OutAmount)
	require.True(t, quote.FeeAmount.IsZero())
	require.True(t, quote.FeePct.IsZero())
	require.True(t, quote.PriceImpactPct.IsZero())
	require.False(t, quote.NotEnoughLiquidity)
	require.Equal(t, solMint, quote.FeeMint)
}

func TestQuoteZeroInAmount(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	quote := quoteV1(t, venue, usdcMint, solMint, 0)
	require.True(t, quote.OutAmount.IsZero())
	require.True(t, quote.FeeAmount.IsZero())
	require.True(t, quote.PriceImpactPct.IsZero())
	require.False(t, quote.NotEnoughLiquidity)
}

func TestFundWorthIdentity(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	worth, err := venue.fundWorth()
	require.NoError(t, err)

	expected := AmountToUSD(1_000_000_000, 6, OneUSD) + AmountToUSD(5_000_000_000, 9, 100*OneUSD)
	require.Equal(t, expected, worth)
}

func TestQuoteMirrorSymmetry(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	// 100 USDC one way, 1 SOL the other: same USD size, no target
	// boundary crossed, identical impact
	forward := quoteV1(t, venue, usdcMint, solMint, 100_000_000)
	mirror := quoteV1(t, venue, solMint, usdcMint, 1_000_000_000)
	require.Equal(t, forward.PriceImpactPct, mirror.PriceImpactPct)
}

func TestQuoteCurveSegmentWorsensPrice(t *testing.T) {
	entries := twoTokenEntries()
	entries[1].useCurve = true
	entries[1].fixedBps = 10

	// the first buy point only consumes distance-to-target; the second
	// prices the remainder 1% above the oracle
	curve := buildCurveBlob(MaxTokensV1)
	setBuyPoint(curve, 1, 0, 3_250_000_000, 0)
	setBuyPoint(curve, 1, 1, 10_000_000_000, 101*OneUSD)

	venue := newTestVenueV1(t, entries, twoTokenFund(), curve, twoTokenOracles())

	quote := quoteV1(t, venue, usdcMint, solMint, 100_000_000)
	require.Equal(t, math.NewInt(996_782_178), quote.OutAmount)
	require.True(t, quote.OutAmount.LT(math.NewInt(1_000_000_000)))
	require.True(t, quote.PriceImpactPct.IsPositive())
	require.True(t, quote.FeeAmount.IsPositive())
}

func TestQuoteMonotonicInInput(t *testing.T) {
	entries := twoTokenEntries()
	entries[1].useCurve = true
	entries[1].fixedBps = 10

	curve := buildCurveBlob(MaxTokensV1)
	setBuyPoint(curve, 1, 0, 3_250_000_000, 0)
	setBuyPoint(curve, 1, 1, 10_000_000_000, 101*OneUSD)

	venue := newTestVenueV1(t, entries, twoTokenFund(), curve, twoTokenOracles())

	prev := math.ZeroInt()
	for _, in := range []int64{0, 1_000_000, 10_000_000, 50_000_000, 100_000_000, 200_000_000} {
		quote := quoteV1(t, venue, usdcMint, solMint, in)
		require.True(t, quote.OutAmount.GTE(prev), "out amount decreased at input %d", in)
		prev = quote.OutAmount
	}
}

func TestQuoteWeightBandBoundary(t *testing.T) {
	entries := []entrySpec{
		{mint: usdcMint, decimals: 6, custody: testKey(0x11), oracleKind: OracleKindPyth, oracle: usdcOracle, liquidity: true},
		{mint: solMint, decimals: 6, custody: testKey(0x12), oracleKind: OracleKindPyth, oracle: solOracle, liquidity: true},
	}
	fund := fundSpec{
		manager:    testKey(0x03),
		host:       testKey(0x04),
		numTokens:  2,
		compToken:  []uint64{0, 1},
		compAmount: []uint64{1_000_000_000, 1_000_000_000},
		weight:     []uint64{5000, 5000},
		weightSum:  10_000,
		rebalance:  100,
		lpOffset:   100,
	}
	oracles := map[solana.PublicKey][]byte{
		usdcOracle: buildPythOracle(-8, testClock.Slot, 1_0000_0000, 0, pythTradingStatus),
		solOracle:  buildPythOracle(-8, testClock.Slot, 1_0000_0000, 0, pythTradingStatus),
	}
	venue := newTestVenueV1(t, entries, fund, buildCurveBlob(MaxTokensV1), oracles)

	// one unit past the band: soft rejection, not an error
	rejected := quoteV1(t, venue, solMint, usdcMint, 100_001)
	require.True(t, rejected.NotEnoughLiquidity)
	require.True(t, rejected.OutAmount.IsZero())

	// one unit less clears the band
	accepted := quoteV1(t, venue, solMint, usdcMint, 100_000)
	require.False(t, accepted.NotEnoughLiquidity)
	require.Equal(t, math.NewInt(100_000), accepted.OutAmount)
}

func TestQuoteOracleNotLive(t *testing.T) {
	oracles := twoTokenOracles()
	oracles[solOracle] = buildPythOracle(-8, testClock.Slot, 100_0000_0000, 0, 0)
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), oracles)

	_, err := venue.Quote(context.Background(), pkg.QuoteParams{
		InputMint:  usdcMint,
		OutputMint: solMint,
		InAmount:   math.NewInt(100_000_000),
	})
	require.ErrorIs(t, err, ErrOracleNotLive)
}

func TestQuoteMintResolution(t *testing.T) {
	// a full 20-token fund plus one catalog token outside the composition
	entries := make([]entrySpec, 21)
	compToken := make([]uint64, NumFundTokens)
	compAmount := make([]uint64, NumFundTokens)
	weight := make([]uint64, NumFundTokens)
	for i := range entries {
		entries[i] = entrySpec{mint: testKey(byte(0x40 + i)), decimals: 6, custody: testKey(byte(0x60 + i)), liquidity: true}
	}
	entries[0].oracle = usdcOracle
	entries[1].oracle = solOracle
	for i := 0; i < NumFundTokens; i++ {
		compToken[i] = uint64(i)
		compAmount[i] = 1_000_000
		weight[i] = 500
	}
	fund := fundSpec{
		manager: testKey(0x03), host: testKey(0x04),
		numTokens: NumFundTokens,
		compToken: compToken, compAmount: compAmount, weight: weight,
		weightSum: 10_000, rebalance: 10_000, lpOffset: 10_000,
	}
	venue := newTestVenueV1(t, entries, fund, buildCurveBlob(MaxTokensV1), twoTokenOracles())

	// in catalog but absent from the composition
	_, err := venue.Quote(context.Background(), pkg.QuoteParams{
		InputMint:  testKey(0x40 + 20),
		OutputMint: testKey(0x40),
		InAmount:   math.NewInt(1),
	})
	require.ErrorIs(t, err, ErrMintNotInFund)

	// unknown mint
	_, err = venue.Quote(context.Background(), pkg.QuoteParams{
		InputMint:  testKey(0xEE),
		OutputMint: testKey(0x40),
		InAmount:   math.NewInt(1),
	})
	require.ErrorIs(t, err, ErrMintNotInCatalog)
}

func TestQuoteDustRemovalExemption(t *testing.T) {
	dustMint := testKey(0x05)
	dustOracle := testKey(0xA2)
	btcMint := testKey(0x06)
	btcOracle := testKey(0xA3)
	entries := []entrySpec{
		{mint: usdcMint, decimals: 6, custody: testKey(0x11), oracle: usdcOracle, liquidity: true},
		{mint: dustMint, decimals: 6, custody: testKey(0x12), oracle: dustOracle, liquidity: true},
		{mint: btcMint, decimals: 6, custody: testKey(0x13), oracle: btcOracle, liquidity: true},
	}
	fund := fundSpec{
		manager: testKey(0x03), host: testKey(0x04),
		numTokens:  3,
		compToken:  []uint64{0, 1, 2},
		compAmount: []uint64{900_000_000, 60_000_000, 40_000_000},
		weight:     []uint64{9000, 0, 1000},
		weightSum:  10_000,
		rebalance:  1,
		lpOffset:   1,
	}
	dollar := buildPythOracle(-8, testClock.Slot, 1_0000_0000, 0, pythTradingStatus)
	oracles := map[solana.PublicKey][]byte{
		usdcOracle: dollar,
		dustOracle: dollar,
		btcOracle:  dollar,
	}
	venue := newTestVenueV1(t, entries, fund, buildCurveBlob(MaxTokensV1), oracles)

	// numeraire into a zero-target token clears the from-side band
	quote := quoteV1(t, venue, usdcMint, dustMint, 50_000_000)
	require.False(t, quote.NotEnoughLiquidity)
	require.Equal(t, math.NewInt(50_000_000), quote.OutAmount)

	// the same swap into a token with a real target is rejected
	rejected := quoteV1(t, venue, usdcMint, btcMint, 50_000_000)
	require.True(t, rejected.NotEnoughLiquidity)
	require.True(t, rejected.OutAmount.IsZero())
}

func TestFeeSplitConservation(t *testing.T) {
	var catalog TokenCatalogV1
	data := buildCatalogV1(twoTokenEntries())
	require.NoError(t, catalog.Decode(data))

	symBps, hostBps, mgrBps := catalog.FeeShares()
	for _, total := range []uint64{0, 1, 99, 100, 101, 123_456_789, 1 << 60} {
		symmetryFee := MulDiv(total, symBps, 100)
		hostFee := MulDiv(total, hostBps, 100)
		managerFee := MulDiv(total, mgrBps, 100)
		fundFee := total - symmetryFee - hostFee - managerFee
		require.Equal(t, total, symmetryFee+hostFee+managerFee+fundFee)
	}
}

func TestReserveMintsExcludesDisabledLiquidity(t *testing.T) {
	entries := twoTokenEntries()
	entries[1].liquidity = false
	venue := newTestVenueV1(t, entries, twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	mints := venue.ReserveMints()
	require.Equal(t, []solana.PublicKey{usdcMint}, mints)
}

func TestAccountsToRefresh(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	accounts := venue.AccountsToRefresh()
	require.Equal(t, []solana.PublicKey{CurveDataAddress, testFundKey, usdcOracle, solOracle}, accounts)
}

func TestBuildSwapAccountsDeterministic(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	params := pkg.SwapParams{
		SourceMint:             usdcMint,
		DestinationMint:        solMint,
		InAmount:               100_000_000,
		UserTransferAuthority:  testKey(0xB0),
		UserSourceTokenAccount: testKey(0xB1),
		UserDestTokenAccount:   testKey(0xB2),
	}
	first, err := venue.BuildSwapAccounts(params)
	require.NoError(t, err)
	second, err := venue.BuildSwapAccounts(params)
	require.NoError(t, err)
	require.Equal(t, first.AccountMetas, second.AccountMetas)

	require.Equal(t, pkg.LayoutProfileV1, first.SwapLeg)
	require.Len(t, first.AccountMetas, 13+2)

	// fixed leading roles
	require.Equal(t, testKey(0xB0), first.AccountMetas[0].PublicKey)
	require.True(t, first.AccountMetas[0].IsSigner)
	require.True(t, first.AccountMetas[0].IsWritable)
	require.Equal(t, testFundKey, first.AccountMetas[1].PublicKey)
	require.Equal(t, FundPDAAddress, first.AccountMetas[2].PublicKey)
	require.Equal(t, TokenCatalogAddress, first.AccountMetas[10].PublicKey)
	require.Equal(t, CurveDataAddress, first.AccountMetas[11].PublicKey)
	require.Equal(t, SPLTokenProgramID, first.AccountMetas[12].PublicKey)

	// trailing oracles follow the composition order exactly
	require.Equal(t, usdcOracle, first.AccountMetas[13].PublicKey)
	require.Equal(t, solOracle, first.AccountMetas[14].PublicKey)

	data, err := first.Instruction.Data()
	require.NoError(t, err)
	require.Len(t, data, 40)
	require.Equal(t, SwapInstructionV1, binary.LittleEndian.Uint64(data[0:8]))
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[8:16]))
	require.Equal(t, uint64(1), binary.LittleEndian.Uint64(data[16:24]))
	require.Equal(t, uint64(100_000_000), binary.LittleEndian.Uint64(data[24:32]))
	require.Equal(t, uint64(0), binary.LittleEndian.Uint64(data[32:40]))
}

func TestUpdateKeepsSnapshotOnFailure(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	before := quoteV1(t, venue, usdcMint, solMint, 100_000_000)

	// a truncated curve blob must not disturb the installed snapshot
	accounts := map[solana.PublicKey][]byte{
		CurveDataAddress: make([]byte, 100),
		testFundKey:      buildFundState(twoTokenFund()),
	}
	for k, v := range twoTokenOracles() {
		accounts[k] = v
	}
	require.Error(t, venue.Update(context.Background(), accounts))

	after := quoteV1(t, venue, usdcMint, solMint, 100_000_000)
	require.Equal(t, before.OutAmount, after.OutAmount)
}

func TestCloneIsIndependent(t *testing.T) {
	venue := newTestVenueV1(t, twoTokenEntries(), twoTokenFund(), buildCurveBlob(MaxTokensV1), twoTokenOracles())

	clone := venue.Clone()
	original := quoteV1(t, venue, usdcMint, solMint, 100_000_000)

	// mutate the original snapshot; the clone must not move
	oracles := twoTokenOracles()
	oracles[solOracle] = buildPythOracle(-8, testClock.Slot, 200_0000_0000, 0, pythTradingStatus)
	accounts := map[solana.PublicKey][]byte{
		CurveDataAddress: buildCurveBlob(MaxTokensV1),
		testFundKey:      buildFundState(twoTokenFund()),
	}
	for k, v := range oracles {
		accounts[k] = v
	}
	require.NoError(t, venue.Update(context.Background(), accounts))

	cloned, err := clone.Quote(context.Background(), pkg.QuoteParams{
		InputMint:  usdcMint,
		OutputMint: solMint,
		InAmount:   math.NewInt(100_000_000),
	})
	require.NoError(t, err)
	require.Equal(t, original.OutAmount, cloned.OutAmount)
}
