package symmetry

import (
	"context"
	"fmt"

	"cosmossdk.io/math"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/symmetry-protocol/symmetry-go/pkg"
)

// V2Venue adapts a fund using the second-generation account layout.
// Pricing blends each curve point with the oracle price 9:1, biases the
// oracle price by 5 ppm per side, and charges a flat 5/20/20/55 fee
// split on the curve's deterioration instead of per-segment bps.
type V2Venue struct {
	key       solana.PublicKey
	label     string
	fundState FundState
	tokenInfo TokenCatalogV2
	curve     *CurveData
}

// NewV2Venue decodes the fund state and token catalog and returns a
// venue with an empty curve snapshot; call Update before quoting.
func NewV2Venue(fundKey solana.PublicKey, fundStateData, catalogData []byte) (*V2Venue, error) {
	v := &V2Venue{
		key:   fundKey,
		label: "Symmetry",
		curve: EmptyCurveData(MaxTokensV2),
	}
	if err := v.fundState.Decode(fundStateData); err != nil {
		return nil, fmt.Errorf("failed to decode fund state: %w", err)
	}
	if err := v.tokenInfo.Decode(catalogData); err != nil {
		return nil, fmt.Errorf("failed to decode token catalog: %w", err)
	}
	return v, nil
}

func (v *V2Venue) Label() string {
	return v.label
}

func (v *V2Venue) Key() solana.PublicKey {
	return v.key
}

func (v *V2Venue) ReserveMints() []solana.PublicKey {
	mints := make([]solana.PublicKey, 0, v.fundState.NumTokens)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= MaxTokensV2 {
			continue
		}
		mints = append(mints, v.tokenInfo.Mints[tok])
	}
	return mints
}

func (v *V2Venue) AccountsToRefresh() []solana.PublicKey {
	accounts := make([]solana.PublicKey, 0, 2+MaxTokensV2)
	accounts = append(accounts, CurveDataAddress)
	accounts = append(accounts, v.key)
	for i := 0; i < MaxTokensV2; i++ {
		if !v.tokenInfo.Oracles[i].IsZero() {
			accounts = append(accounts, v.tokenInfo.Oracles[i])
		}
	}
	return accounts
}

// Update installs refreshed curve, fund state and oracle snapshots,
// committing only after every blob decodes.
func (v *V2Venue) Update(ctx context.Context, accounts map[solana.PublicKey][]byte) error {
	curveData, ok := accounts[CurveDataAddress]
	if !ok {
		return fmt.Errorf("%w: curve dataset %s", ErrMissingAccount, CurveDataAddress)
	}
	newCurve := EmptyCurveData(MaxTokensV2)
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

	var prices [MaxTokensV2]SimplePrice
	for i := 0; i < MaxTokensV2; i++ {
		if v.tokenInfo.Oracles[i].IsZero() {
			continue
		}
		data, ok := accounts[v.tokenInfo.Oracles[i]]
		if !ok {
			return fmt.Errorf("%w: oracle %s", ErrMissingAccount, v.tokenInfo.Oracles[i])
		}
		if err := prices[i].Decode(data); err != nil {
			return fmt.Errorf("failed to decode oracle %s: %w", v.tokenInfo.Oracles[i], err)
		}
	}

	v.curve = newCurve
	v.fundState = newFund
	for i := 0; i < MaxTokensV2; i++ {
		if !v.tokenInfo.Oracles[i].IsZero() {
			v.tokenInfo.Prices[i] = prices[i]
		}
	}
	return nil
}

func (v *V2Venue) Quote(ctx context.Context, params pkg.QuoteParams) (pkg.Quote, error) {
	if !params.InAmount.IsUint64() {
		return pkg.Quote{}, fmt.Errorf("in amount %s out of range", params.InAmount)
	}
	fromAmount := params.InAmount.Uint64()

	fromID, ok := v.tokenInfo.TokenID(params.InputMint)
	if !ok {
		return pkg.Quote{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.InputMint)
	}
	toID, ok := v.tokenInfo.TokenID(params.OutputMint)
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

	fundWorth := uint64(0)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= MaxTokensV2 {
			return pkg.Quote{}, fmt.Errorf("composition slot %d references token %d outside the catalog", i, tok)
		}
		if v.tokenInfo.Prices[tok].Price <= 0 {
			return pkg.Quote{}, fmt.Errorf("%w: %s", ErrOracleNotLive, v.tokenInfo.Mints[tok])
		}
		fundWorth += usdValueV2(v.fundState.CurrentCompAmount[i], v.tokenInfo.Decimals[tok], v.tokenInfo.Prices[tok])
	}

	fromPrice := v.tokenInfo.Prices[fromID]
	toPrice := v.tokenInfo.Prices[toID]
	fromDecimals := v.tokenInfo.Decimals[fromID]
	toDecimals := v.tokenInfo.Decimals[toID]

	fromTarget := amountFromUSDValueV2(
		MulDiv(v.fundState.TargetWeight[fromIndex], fundWorth, v.fundState.WeightSum),
		fromDecimals, fromPrice)
	toTarget := amountFromUSDValueV2(
		MulDiv(v.fundState.TargetWeight[toIndex], fundWorth, v.fundState.WeightSum),
		toDecimals, toPrice)

	fromValue := usdValueV2(fromAmount, fromDecimals, fromPrice)

	var value uint64
	if fromID == 0 {
		value = fromValue
	} else {
		value = v2SellValue(
			v.fundState.CurrentCompAmount[fromIndex], fromTarget,
			fromPrice, fromAmount, v.curve.Sell[fromID], fromDecimals)
	}

	var toAmount uint64
	if toID == 0 {
		toAmount = amountFromUSDValueV2(value, toDecimals, toPrice)
	} else {
		toAmount = v2BuyAmount(
			v.fundState.CurrentCompAmount[toIndex], toTarget,
			toPrice, value, v.curve.Buy[toID], toDecimals)
	}

	valueWithoutCurve := fromValue
	if fromID != 0 {
		valueWithoutCurve = MulDiv(valueWithoutCurve, 1_000_000-5, 1_000_000)
	}
	amountWithoutCurve := amountFromUSDValueV2(valueWithoutCurve, toDecimals, toPrice)
	if toID != 0 {
		amountWithoutCurve = MulDiv(amountWithoutCurve, 1_000_000-5, 1_000_000)
	}

	feeDueNel := uint64(0)
	if amountWithoutCurve > v.fundState.CurrentCompAmount[toIndex] {
		feeDueNel = amountWithoutCurve - v.fundState.CurrentCompAmount[toIndex]
		amountWithoutCurve = v.fundState.CurrentCompAmount[toIndex]
	}
	if toAmount > amountWithoutCurve {
		toAmount = amountWithoutCurve
	}

	totalFees := amountWithoutCurve - toAmount
	symmetryFee := MulDiv(totalFees, 5, 100)
	hostFee := MulDiv(totalFees, 20, 100)
	managerFee := MulDiv(totalFees, 20, 100)
	fundFee := totalFees - symmetryFee - hostFee - managerFee

	worth := fundWorth
	worth -= usdValueV2(v.fundState.CurrentCompAmount[fromIndex], fromDecimals, fromPrice)
	worth -= usdValueV2(v.fundState.CurrentCompAmount[toIndex], toDecimals, toPrice)
	fromWorthAfter := usdValueV2(
		v.fundState.CurrentCompAmount[fromIndex]+fromAmount, fromDecimals, fromPrice)
	toWorthAfter := usdValueV2(
		v.fundState.CurrentCompAmount[toIndex]-amountWithoutCurve+fundFee, toDecimals, toPrice)
	worth += fromWorthAfter + toWorthAfter

	hundredM := math.NewInt(100_000_000)
	allowedOffset := math.NewIntFromUint64(v.fundState.RebalanceThreshold).
		Mul(math.NewIntFromUint64(v.fundState.LpOffsetThreshold))
	weightSum := math.NewIntFromUint64(v.fundState.WeightSum)
	worthInt := math.NewIntFromUint64(worth)

	softReject := pkg.Quote{
		InAmount:           params.InAmount,
		OutAmount:          math.ZeroInt(),
		FeeAmount:          math.ZeroInt(),
		FeeMint:            params.OutputMint,
		FeePct:             math.LegacyZeroDec(),
		PriceImpactPct:     math.LegacyZeroDec(),
		NotEnoughLiquidity: true,
	}

	allowedFrom := math.NewIntFromUint64(v.fundState.TargetWeight[fromIndex]).
		Mul(hundredM.Add(allowedOffset)).Quo(hundredM)
	if math.NewIntFromUint64(fromWorthAfter).Mul(weightSum).GT(allowedFrom.Mul(worthInt)) &&
		fromID != 0 && allowedFrom.LT(math.NewInt(10_000)) {
		return softReject, nil
	}

	allowedTo := math.NewIntFromUint64(v.fundState.TargetWeight[toIndex]).
		Mul(hundredM.Sub(allowedOffset)).Quo(hundredM)
	if math.NewIntFromUint64(toWorthAfter).Mul(weightSum).LT(allowedTo.Mul(worthInt)) {
		return softReject, nil
	}

	allFees := totalFees + feeDueNel
	zeroSlippageAmount := amountWithoutCurve - fundFee + allFees
	pct := math.LegacyZeroDec()
	if zeroSlippageAmount > 0 {
		pct = math.LegacyNewDecWithPrec(int64(MulDiv(allFees, 1_000_000, zeroSlippageAmount)), 4)
	}

	return pkg.Quote{
		InAmount:       params.InAmount,
		OutAmount:      math.NewIntFromUint64(toAmount),
		FeeAmount:      math.NewIntFromUint64(allFees),
		FeeMint:        params.OutputMint,
		FeePct:         pct,
		PriceImpactPct: pct,
	}, nil
}

// v2BuyAmount converts USD value into token-native units against the
// buy curve. Each curve price is blended 9:1 with the oracle price,
// itself biased 5 ppm against the caller; the blend only ever raises
// the working price.
func v2BuyAmount(current, target uint64, p SimplePrice, amountValue uint64, curve TokenPriceData, decimals uint8) uint64 {
	curveStart := current
	if current < target {
		curveStart = target
	}

	valueLeft := amountValue
	out := uint64(0)

	expo := Pow10(uint64(decimals))
	pythPrice := usdValueV2(expo, decimals, p)
	pythPrice = MulDiv(pythPrice, 1_000_000+5, 1_000_000)
	curPrice := pythPrice

	amountFromTargetWeight := uint64(0)
	for step := 0; step < NumCurvePoints; step++ {
		priceInInterval := (curve.Price[step]*9 + pythPrice) / 10
		if priceInInterval > curPrice {
			curPrice = priceInInterval
		}
		amountFromTargetWeight += curve.Amount[step]
		if amountFromTargetWeight <= curveStart-current {
			continue
		}

		amountInInterval := amountFromTargetWeight - (curveStart - current)
		if amountInInterval > curve.Amount[step] {
			amountInInterval = curve.Amount[step]
		}
		valueInInterval := MulDiv(amountInInterval, curPrice, expo)
		if valueInInterval > valueLeft {
			return MulDiv(valueLeft, expo, curPrice) + out
		}
		out += amountInInterval
		valueLeft -= valueInInterval
	}
	return out + MulDiv(valueLeft, expo, curPrice)
}

// v2SellValue converts token-native units into USD value against the
// sell curve; the blend only ever lowers the working price.
func v2SellValue(current, target uint64, p SimplePrice, amount uint64, curve TokenPriceData, decimals uint8) uint64 {
	curveStart := current
	if current > target {
		curveStart = target
	}

	out := uint64(0)
	amountLeft := amount

	expo := Pow10(uint64(decimals))
	pythPrice := usdValueV2(expo, decimals, p)
	pythPrice = MulDiv(pythPrice, 1_000_000-5, 1_000_000)
	curPrice := pythPrice

	amountFromTargetWeight := uint64(0)
	for step := 0; step < NumCurvePoints; step++ {
		priceInInterval := (curve.Price[step]*9 + pythPrice) / 10
		if priceInInterval < curPrice {
			curPrice = priceInInterval
		}
		amountFromTargetWeight += curve.Amount[step]
		if amountFromTargetWeight <= current-curveStart {
			continue
		}

		amountInInterval := amountFromTargetWeight - (current - curveStart)
		if amountInInterval > curve.Amount[step] {
			amountInInterval = curve.Amount[step]
		}
		valueInInterval := MulDiv(amountInInterval, curPrice, expo)
		if amountInInterval > amountLeft {
			return MulDiv(amountLeft, curPrice, expo) + out
		}
		out += valueInInterval
		amountLeft -= amountInInterval
	}
	return out + MulDiv(amountLeft, curPrice, expo)
}

func (v *V2Venue) BuildSwapAccounts(params pkg.SwapParams) (pkg.SwapAccounts, error) {
	fromID, ok := v.tokenInfo.TokenID(params.SourceMint)
	if !ok {
		return pkg.SwapAccounts{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.SourceMint)
	}
	toID, ok := v.tokenInfo.TokenID(params.DestinationMint)
	if !ok {
		return pkg.SwapAccounts{}, fmt.Errorf("%w: %s", ErrMintNotInCatalog, params.DestinationMint)
	}

	oracles := make([]solana.PublicKey, 0, v.fundState.NumTokens)
	for i := 0; i < int(v.fundState.NumTokens); i++ {
		tok := v.fundState.CurrentCompToken[i]
		if tok >= MaxTokensV2 {
			return pkg.SwapAccounts{}, fmt.Errorf("composition slot %d references token %d outside the catalog", i, tok)
		}
		oracles = append(oracles, v.tokenInfo.Oracles[tok])
	}

	metas, err := swapAccountMetas(
		v.key,
		v.tokenInfo.Custody[fromID],
		v.tokenInfo.Custody[toID],
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
		Discriminator:    SwapInstructionV2,
		FromTokenID:      fromID,
		ToTokenID:        toID,
		InAmount:         params.InAmount,
		MinimumAmountOut: 0,
		AccountMetaSlice: metas,
	}
	inst.BaseVariant = bin.BaseVariant{Impl: inst}

	return pkg.SwapAccounts{
		SwapLeg:      pkg.LayoutProfileV2,
		AccountMetas: metas,
		Instruction:  inst,
	}, nil
}

// Clone returns a deep copy safe to hand to another worker.
func (v *V2Venue) Clone() pkg.Venue {
	out := &V2Venue{
		key:       v.key,
		label:     v.label,
		fundState: v.fundState,
		tokenInfo: v.tokenInfo,
		curve:     v.curve.clone(),
	}
	return out
}
