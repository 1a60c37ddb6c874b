package symmetry

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/symmetry-protocol/symmetry-go/pkg"
	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
)

// V1Venue adapts a fund using the first-generation account layout.
// Prices are a sell/avg/buy triplet per token; fees are charged per
// curve segment with separate rates on the near- and far-side of the
// token's target inventory.
type V1Venue struct {
	key       solana.PublicKey
	label     string
	fundState FundState
	catalog   TokenCatalogV1
	curve     *CurveData
	timeSrc   sol.TimeSource
}

// NewV1Venue decodes the fund state and token catalog and returns a
// venue with an empty curve snapshot; call Update before quoting.
func NewV1Venue(fundKey solana.PublicKey, fundStateData, catalogData []byte, timeSrc sol.TimeSource) (*V1Venue, error) {
	v := &V1Venue{
		key:     fundKey,
		label:   "Symmetry",
		curve:   EmptyCurveData(MaxTokensV1),
		timeSrc: timeSrc,
	}
	if err := v.fundState.Decode(fundStateData); err != nil {
		return nil, fmt.Errorf("failed to decode fund state: %w", err)
	}
	if err := v.catalog.Decode(catalogData); err != nil {
		return nil, fmt.Errorf("failed to decode token catalog: %w", err)
	}
	return v, nil
}

func (v *V1Venue) Label() string {
	return v.label
}

func (v *V1Venue) Key() solana.PublicKey {
	return v.key
}

// ReserveMints lists the mints tradable through the fund right now:
// composition tokens whose liquidity flag is enabled.
func (v *V1Venue) ReserveMints() []solana.PublicKey {
	mints := make([]solana.PublicKey, 0, v.fundState.NumTokens)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= uint64(len(v.catalog.Tokens)) {
			continue
		}
		entry := &v.catalog.Tokens[tok]
		if !entry.HasLiquidity {
			continue
		}
		mints = append(mints, entry.Mint)
	}
	return mints
}

// AccountsToRefresh lists the accounts the host must re-fetch before
// each quote: the curve dataset, the fund state and every configured
// oracle in the catalog.
func (v *V1Venue) AccountsToRefresh() []solana.PublicKey {
	accounts := make([]solana.PublicKey, 0, 2+len(v.catalog.Tokens))
	accounts = append(accounts, CurveDataAddress)
	accounts = append(accounts, v.key)
	for i := range v.catalog.Tokens {
		if !v.catalog.Tokens[i].Oracle.IsZero() {
			accounts = append(accounts, v.catalog.Tokens[i].Oracle)
		}
	}
	return accounts
}

// Update installs refreshed curve, fund state and oracle snapshots.
// The replacement snapshot is built first and committed only when every
// blob decodes; a failed update leaves the previous snapshot intact.
func (v *V1Venue) Update(ctx context.Context, accounts map[solana.PublicKey][]byte) error {
	curveData, ok := accounts[CurveDataAddress]
	if !ok {
		return fmt.Errorf("%w: curve dataset %s", ErrMissingAccount, CurveDataAddress)
	}
	newCurve := EmptyCurveData(MaxTokensV1)
	if err := newCurve.Decode(curveData); err != nil {
		return fmt.Errorf("failed to decode curve dataset: %w", err)
	}

	fundData, ok := accounts[v.key]
	if !ok {
		return fmt.Errorf("%w: fund state %s", ErrMissingAccount, v.key)
	}
	var newFund FundState
	if err := newFund.Decode(fundData); err != nil {
		return fmt.Errorf("failed to decode fund state: %w", err)
	}

	clock, err := v.timeSrc.Now(ctx)
	if err != nil {
		return fmt.Errorf("failed to read clock: %w", err)
	}

	prices := make([]PriceData, len(v.catalog.Tokens))
	for i := range v.catalog.Tokens {
		entry := &v.catalog.Tokens[i]
		if entry.Oracle.IsZero() {
			continue
		}
		data, ok := accounts[entry.Oracle]
		if !ok {
			return fmt.Errorf("%w: oracle %s", ErrMissingAccount, entry.Oracle)
		}
		price, err := DecodeOraclePrice(entry, data, clock)
		if err != nil {
			return fmt.Errorf("failed to decode oracle %s: %w", entry.Oracle, err)
		}
		prices[i] = price
	}

	v.curve = newCurve
	v.fundState = newFund
	for i := range v.catalog.Tokens {
		if !v.catalog.Tokens[i].Oracle.IsZero() {
			v.catalog.Tokens[i].Price = prices[i]
		}
	}
	return nil
}

// Quote prices a swap of params.InAmount of the input mint into the
// output mint against the installed snapshot.
func (v *V1Venue) Quote(ctx context.Context, params pkg.QuoteParams) (pkg.Quote, error) {
	if !params.InAmount.IsUint64() {
		return pkg.Quote{}, fmt.Errorf("in amount %s out of range", params.InAmount)
	}
	fromAmount := params.InAmount.Uint64()

	fromID, ok := v.catalog.TokenID(params.InputMint)
	if !ok {
		return pkg.Quote{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.InputMint)
	}
	toID, ok := v.catalog.TokenID(params.OutputMint)
	if !ok {
		return pkg.Quote{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.OutputMint)
	}
	fromIndex, ok := v.fundState.CompIndex(fromID)
	if !ok {
		return pkg.Quote{}, fmt.Errorf("%w: %s", ErrMintNotInFund, params.InputMint)
	}
	toIndex, ok := v.fundState.CompIndex(toID)
	if !ok {
		return pkg.Quote{}, fmt.Errorf("%w: %s", ErrMintNotInFund, params.OutputMint)
	}

	fundWorth, err := v.fundWorth()
	if err != nil {
		return pkg.Quote{}, err
	}

	fromEntry := &v.catalog.Tokens[fromID]
	toEntry := &v.catalog.Tokens[toID]
	fromPrice := fromEntry.Price
	toPrice := toEntry.Price

	fromTarget := USDToAmount(
		MulDiv(v.fundState.TargetWeight[fromIndex], fundWorth, v.fundState.WeightSum),
		fromEntry.Decimals, fromPrice.AvgPrice)
	toTarget := USDToAmount(
		MulDiv(v.fundState.TargetWeight[toIndex], fundWorth, v.fundState.WeightSum),
		toEntry.Decimals, toPrice.AvgPrice)

	// sell leg: the numeraire trades at oracle price with no curve and
	// no fee on its leg
	var value uint64
	if fromID == 0 {
		value = AmountToUSD(fromAmount, fromEntry.Decimals, fromPrice.SellPrice)
	} else {
		value = sellLegValue(fromEntry, fromPrice,
			v.fundState.CurrentCompAmount[fromIndex], fromTarget,
			fromAmount, v.curve.Sell[fromID])
	}

	// buy leg
	var toAmount uint64
	if toID == 0 {
		toAmount = USDToAmount(value, toEntry.Decimals, toPrice.BuyPrice)
	} else {
		toAmount = buyLegAmount(toEntry, toPrice,
			v.fundState.CurrentCompAmount[toIndex], toTarget,
			value, v.curve.Buy[toID])
	}

	amountWithoutFees := USDToAmount(
		AmountToUSD(fromAmount, fromEntry.Decimals, fromPrice.SellPrice),
		toEntry.Decimals, toPrice.BuyPrice)
	fairAmount := USDToAmount(
		AmountToUSD(fromAmount, fromEntry.Decimals, fromPrice.AvgPrice),
		toEntry.Decimals, toPrice.AvgPrice)

	if amountWithoutFees > v.fundState.CurrentCompAmount[toIndex] {
		amountWithoutFees = v.fundState.CurrentCompAmount[toIndex]
	}
	if toAmount > amountWithoutFees {
		toAmount = amountWithoutFees
	}

	totalFee := amountWithoutFees - toAmount
	symBps, hostBps, mgrBps := v.catalog.FeeShares()
	symmetryFee := MulDiv(totalFee, symBps, 100)
	hostFee := MulDiv(totalFee, hostBps, 100)
	managerFee := MulDiv(totalFee, mgrBps, 100)
	fundFee := totalFee - symmetryFee - hostFee - managerFee

	// post-swap fund worth: from-inventory gains the full input, the
	// to-inventory loses the no-fee amount minus the fund's fee share
	worth := fundWorth
	worth -= AmountToUSD(v.fundState.CurrentCompAmount[fromIndex], fromEntry.Decimals, fromPrice.AvgPrice)
	worth -= AmountToUSD(v.fundState.CurrentCompAmount[toIndex], toEntry.Decimals, toPrice.AvgPrice)
	fromWorthAfter := AmountToUSD(
		v.fundState.CurrentCompAmount[fromIndex]+fromAmount,
		fromEntry.Decimals, fromPrice.AvgPrice)
	toWorthAfter := AmountToUSD(
		v.fundState.CurrentCompAmount[toIndex]-amountWithoutFees+fundFee,
		toEntry.Decimals, toPrice.AvgPrice)
	worth += fromWorthAfter + toWorthAfter

	if !v.withinWeightBand(fromID, fromIndex, toIndex, fromWorthAfter, toWorthAfter, worth) {
		return pkg.Quote{
			InAmount:           params.InAmount,
			OutAmount:          math.ZeroInt(),
			FeeAmount:          math.ZeroInt(),
			FeeMint:            params.OutputMint,
			FeePct:             math.LegacyZeroDec(),
			PriceImpactPct:     math.LegacyZeroDec(),
			NotEnoughLiquidity: true,
		}, nil
	}

	priceImpact := math.LegacyZeroDec()
	feePct := math.LegacyZeroDec()
	if fairAmount > 0 {
		if fairAmount > amountWithoutFees {
			priceImpact = math.LegacyNewDecWithPrec(int64(MulDiv(fairAmount-amountWithoutFees, 1_000_000, fairAmount)), 4)
		}
		feePct = math.LegacyNewDecWithPrec(int64(MulDiv(totalFee, 1_000_000, fairAmount)), 4)
	}

	return pkg.Quote{
		InAmount:       params.InAmount,
		OutAmount:      math.NewIntFromUint64(toAmount),
		FeeAmount:      math.NewIntFromUint64(totalFee),
		FeeMint:        params.OutputMint,
		FeePct:         feePct,
		PriceImpactPct: priceImpact,
	}, nil
}

// fundWorth sums the composition's USD value at avg oracle prices,
// failing when any contributing oracle is not live.
func (v *V1Venue) fundWorth() (uint64, error) {
	worth := uint64(0)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= uint64(len(v.catalog.Tokens)) {
			return 0, fmt.Errorf("composition slot %d references token %d outside the catalog", i, tok)
		}
		entry := &v.catalog.Tokens[tok]
		if !entry.Price.Live {
			return 0, fmt.Errorf("%w: %s", ErrOracleNotLive, entry.Mint)
		}
		worth += AmountToUSD(v.fundState.CurrentCompAmount[i], entry.Decimals, entry.Price.AvgPrice)
	}
	return worth, nil
}

// withinWeightBand applies the post-swap composition check. The band
// is target_weight scaled by 1 +/- rebalance*lp_offset in 1e-8 units;
// the numeraire may exceed its upper band when draining a token whose
// target weight is zero (dust removal).
func (v *V1Venue) withinWeightBand(fromID uint64, fromIndex, toIndex int, fromWorthAfter, toWorthAfter, worth uint64) bool {
	hundredM := math.NewInt(100_000_000)
	allowedOffset := math.NewIntFromUint64(v.fundState.RebalanceThreshold).
		Mul(math.NewIntFromUint64(v.fundState.LpOffsetThreshold))
	weightSum := math.NewIntFromUint64(v.fundState.WeightSum)
	worthInt := math.NewIntFromUint64(worth)

	dustRemoval := fromID == 0 && v.fundState.TargetWeight[toIndex] == 0
	if !dustRemoval {
		allowedFrom := math.NewIntFromUint64(v.fundState.TargetWeight[fromIndex]).
			Mul(hundredM.Add(allowedOffset))
		got := math.NewIntFromUint64(fromWorthAfter).Mul(weightSum).Mul(hundredM)
		if got.GT(allowedFrom.Mul(worthInt)) {
			return false
		}
	}

	allowedTo := math.NewIntFromUint64(v.fundState.TargetWeight[toIndex]).
		Mul(hundredM.Sub(allowedOffset))
	got := math.NewIntFromUint64(toWorthAfter).Mul(weightSum).Mul(hundredM)
	return !got.LT(allowedTo.Mul(worthInt))
}

// sellLegValue walks the sell curve for a token the caller delivers to
// the fund, returning the net USD value obtained. Inventory rises from
// current; inventory already past target (offset) is skipped before
// curve points apply. Curve points only ever worsen the price.
func sellLegValue(entry *TokenEntry, price PriceData, current, target, amount uint64, curve TokenPriceData) uint64 {
	curPrice := price.SellPrice
	offset := uint64(0)
	if current > target {
		offset = current - target
	}

	cur := current
	amountLeft := amount
	total := uint64(0)

	for step := 0; step <= NumCurvePoints && amountLeft > 0; step++ {
		var stepAmount uint64
		if step < NumCurvePoints {
			if entry.UseCurve && curve.Price[step] > 0 && curve.Price[step] < curPrice {
				curPrice = curve.Price[step]
			}
			stepAmount = curve.Amount[step]
			if stepAmount <= offset {
				offset -= stepAmount
				continue
			}
			stepAmount -= offset
			offset = 0
		} else {
			// terminal segment absorbs the remainder at the last price
			stepAmount = amountLeft
		}
		if stepAmount > amountLeft {
			stepAmount = amountLeft
		}
		if stepAmount == 0 {
			continue
		}

		var beforeTw, afterTw uint64
		switch {
		case cur >= target:
			afterTw = stepAmount
		case cur+stepAmount <= target:
			beforeTw = stepAmount
		default:
			beforeTw = target - cur
			afterTw = stepAmount - beforeTw
		}

		valueBefore := AmountToUSD(beforeTw, entry.Decimals, curPrice)
		valueAfter := AmountToUSD(afterTw, entry.Decimals, curPrice)
		fee := MulDiv(valueBefore, uint64(entry.FeeBeforeTargetBps), 10_000) +
			MulDiv(valueAfter, uint64(entry.FeeAfterTargetBps), 10_000)
		total += valueBefore + valueAfter - fee

		cur += stepAmount
		amountLeft -= stepAmount
	}
	return total
}

// buyLegAmount walks the buy curve for a token the fund delivers to the
// caller, converting USD value into token-native units. Inventory falls
// from current; distance already past target is skipped. Curve points
// only ever worsen the price. The terminal segment's capacity keeps the
// on-chain 2x margin on the remaining value.
func buyLegAmount(entry *TokenEntry, price PriceData, current, target, value uint64, curve TokenPriceData) uint64 {
	curPrice := price.BuyPrice
	offset := uint64(0)
	if target > current {
		offset = target - current
	}

	cur := current
	valueLeft := value
	out := uint64(0)

	for step := 0; step <= NumCurvePoints && valueLeft > 0; step++ {
		var stepAmount uint64
		if step < NumCurvePoints {
			if entry.UseCurve && curve.Price[step] > 0 && curve.Price[step] > curPrice {
				curPrice = curve.Price[step]
			}
			stepAmount = curve.Amount[step]
			if stepAmount <= offset {
				offset -= stepAmount
				continue
			}
			stepAmount -= offset
			offset = 0
		} else {
			if curPrice == 0 {
				break
			}
			stepAmount = USDToAmount(MulDiv(valueLeft, 2, 1), entry.Decimals, curPrice)
		}

		affordable := USDToAmount(valueLeft, entry.Decimals, curPrice)
		if affordable < stepAmount {
			stepAmount = affordable
		}
		if stepAmount == 0 {
			if step < NumCurvePoints {
				continue
			}
			break
		}

		var beforeTw, afterTw uint64
		switch {
		case cur <= target:
			beforeTw = stepAmount
		case cur >= target+stepAmount:
			afterTw = stepAmount
		default:
			afterTw = cur - target
			beforeTw = stepAmount - afterTw
		}

		consumed := AmountToUSD(stepAmount, entry.Decimals, curPrice)
		if consumed > valueLeft {
			consumed = valueLeft
		}
		fee := MulDiv(beforeTw, uint64(entry.FeeBeforeTargetBps), 10_000) +
			MulDiv(afterTw, uint64(entry.FeeAfterTargetBps), 10_000)
		out += stepAmount - fee

		valueLeft -= consumed
		if stepAmount > cur {
			cur = 0
		} else {
			cur -= stepAmount
		}
	}
	return out
}

// BuildSwapAccounts produces the invocation plan for a swap through
// this fund: ordered account roles plus the encoded instruction.
func (v *V1Venue) BuildSwapAccounts(params pkg.SwapParams) (pkg.SwapAccounts, error) {
	fromID, ok := v.catalog.TokenID(params.SourceMint)
	if !ok {
		return pkg.SwapAccounts{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.SourceMint)
	}
	toID, ok := v.catalog.TokenID(params.DestinationMint)
	if !ok {
		return pkg.SwapAccounts{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.DestinationMint)
	}

	oracles := make([]solana.PublicKey, 0, v.fundState.NumTokens)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= uint64(len(v.catalog.Tokens)) {
			return pkg.SwapAccounts{}, fmt.Errorf("composition slot %d references token %d outside the catalog", i, tok)
		}
		oracles = append(oracles, v.catalog.Tokens[tok].Oracle)
	}

	metas, err := swapAccountMetas(
		v.key,
		v.catalog.Tokens[fromID].Custody,
		v.catalog.Tokens[toID].Custody,
		params.UserTransferAuthority,
		params.UserSourceTokenAccount,
		params.UserDestTokenAccount,
		v.fundState.Host,
		v.fundState.Manager,
		params.DestinationMint,
		oracles,
	)
	if err != nil {
		return pkg.SwapAccounts{}, err
	}

	inst := &SwapInstruction{
		Discriminator:    SwapInstructionV1,
		FromTokenID:      fromID,
		ToTokenID:        toID,
		InAmount:         params.InAmount,
		MinimumAmountOut: 0,
		AccountMetaSlice: metas,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	return pkg.SwapAccounts{
		SwapLeg:      pkg.LayoutProfileV1,
		AccountMetas: metas,
		Instruction:  inst,
	}, nil
}

// Clone returns a deep copy safe to hand to another worker.
func (v *V1Venue) Clone() pkg.Venue {
	out := &V1Venue{
		key:       v.key,
		label:     v.label,
		fundState: v.fundState,
		catalog: TokenCatalogV1{
			NumTokens: v.catalog.NumTokens,
			Tokens:    append([]TokenEntry(nil), v.catalog.Tokens...),
		},
		curve:   v.curve.clone(),
		timeSrc: v.timeSrc,
	}
	return out
}
