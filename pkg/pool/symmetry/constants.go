// Package symmetry implements the swap venue adapter for Symmetry
// index funds. A fund is a managed multi-asset basket; swaps through it
// are priced against oracle prices and a shared piecewise-linear curve
// dataset. Two generations of the on-chain account layout are supported,
// selected at construction time.
package symmetry

import "github.com/gagliardetto/solana-go"

const (
	// NumFundTokens is the fixed capacity of a fund's composition table.
	NumFundTokens = 20

	// NumCurvePoints is the number of inventory steps per curve side.
	NumCurvePoints = 10

	// MaxTokensV1 and MaxTokensV2 bound the token catalog per layout.
	MaxTokensV1 = 100
	MaxTokensV2 = 50

	// OneUSD is the canonical USD unit of the V1 layout (1e-12 USD).
	OneUSD uint64 = 1_000_000_000_000

	// OneUSDV2 is the canonical USD unit of the V2 layout (1e-6 USD).
	OneUSDV2 uint64 = 1_000_000
)

var (
	ProgramID = solana.MustPublicKeyFromBase58("2KehYt3KsEQR53jYcxjbQp2d2kCp4AkuQW68atufRwSr")

	TokenCatalogAddress = solana.MustPublicKeyFromBase58("4Rn7pKKyiSNKZXKCoLqEpRznX1rhveV4dW1DCg6hRoVH")
	CurveDataAddress    = solana.MustPublicKeyFromBase58("4QMjSHuM3iS7Fdfi8kZJfHRKoEJSDHEtEwqbChsTcUVK")
	FundPDAAddress      = solana.MustPublicKeyFromBase58("BLBYiq48WcLQ5SxiftyKmPtmsZPUBEnDEjqEnKGAR4zx")
	SwapFeeAddress      = solana.MustPublicKeyFromBase58("AWfpfzA6FYbqx4JLz75PDgsjH7jtBnnmJ6MXW5zNY2Ei")

	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58("ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL")
	SPLTokenProgramID        = solana.MustPublicKeyFromBase58("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// Swap instruction discriminators, one per layout generation.
const (
	SwapInstructionV1 uint64 = 5979420756363714462
	SwapInstructionV2 uint64 = 1448820615868184176
)
