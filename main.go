package main

import (
	"context"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/symmetry-protocol/symmetry-go/pkg"
	"github.com/symmetry-protocol/symmetry-go/pkg/protocol"
	"github.com/symmetry-protocol/symmetry-go/pkg/router"
	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
	"github.com/symmetry-protocol/symmetry-go/utils"
	"go.uber.org/zap"
)

var (
	rpcEndpoint   = "https://api.mainnet-beta.solana.com"
	fundStateAddr = "Db86JGJnM58KtcZjqf8JFn3md98TDWJZLJJFBzkEWccZ"

	// Token addresses
	inTokenAddr  = "So11111111111111111111111111111111111111112"  // SOL
	outTokenAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v" // USDC

	// Swap parameters
	defaultAmountIn = int64(1_000_000_000) // 1 SOL (9 decimals)
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	for _, addr := range []string{fundStateAddr, inTokenAddr, outTokenAddr} {
		if !utils.IsValidAddress(addr) {
			logger.Fatal("invalid address", zap.String("address", addr))
		}
	}

	ctx := context.Background()
	solClient := sol.NewClient(rpcEndpoint, 20)

	symmetryV2 := protocol.NewSymmetryV2(solClient, logger)
	venue, err := symmetryV2.FetchFundByID(ctx, solana.MustPublicKeyFromBase58(fundStateAddr))
	if err != nil {
		logger.Fatal("failed to fetch fund", zap.Error(err))
	}

	r := router.NewSimpleRouter(logger, symmetryV2)
	r.Venues = append(r.Venues, venue)
	if err := r.RefreshAll(ctx, solClient); err != nil {
		logger.Fatal("failed to refresh venues", zap.Error(err))
	}

	mints := venue.ReserveMints()
	logger.Info("fund ready",
		zap.String("fund", utils.ShortAddress(venue.Key().String())),
		zap.Int("tradable_mints", len(mints)))

	inMint := solana.MustPublicKeyFromBase58(inTokenAddr)
	outMint := solana.MustPublicKeyFromBase58(outTokenAddr)

	best, quote, err := r.GetBestQuote(ctx, pkg.QuoteParams{
		InputMint:  inMint,
		OutputMint: outMint,
		InAmount:   math.NewInt(defaultAmountIn),
	})
	if err != nil {
		logger.Fatal("failed to quote", zap.Error(err))
	}
	logger.Info("quote",
		zap.String("venue", best.Label()),
		zap.String("in_amount", quote.InAmount.String()),
		zap.String("out_amount", quote.OutAmount.String()),
		zap.String("fee_amount", quote.FeeAmount.String()),
		zap.String("fee_pct", quote.FeePct.String()),
		zap.String("price_impact_pct", quote.PriceImpactPct.String()))

	// plan the swap call for a throwaway user; nothing is signed or sent
	user := solana.NewWallet().PublicKey()
	userSource, err := solClient.FindUserTokenAccount(ctx, user, inMint)
	if err != nil {
		logger.Fatal("failed to resolve source token account", zap.Error(err))
	}
	userDest, err := solClient.FindUserTokenAccount(ctx, user, outMint)
	if err != nil {
		logger.Fatal("failed to resolve destination token account", zap.Error(err))
	}

	plan, err := best.BuildSwapAccounts(pkg.SwapParams{
		SourceMint:             inMint,
		DestinationMint:        outMint,
		InAmount:               uint64(defaultAmountIn),
		UserTransferAuthority:  user,
		UserSourceTokenAccount: userSource,
		UserDestTokenAccount:   userDest,
	})
	if err != nil {
		logger.Fatal("failed to build swap accounts", zap.Error(err))
	}

	data, err := plan.Instruction.Data()
	if err != nil {
		logger.Fatal("failed to encode instruction", zap.Error(err))
	}
	logger.Info("swap plan",
		zap.String("leg", string(plan.SwapLeg)),
		zap.Int("accounts", len(plan.AccountMetas)),
		zap.Int("instruction_bytes", len(data)))
}
