package pkg

import (
	"context"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
)

// LayoutProfile selects which generation of the fund's on-chain account
// layout a venue was built against.
type LayoutProfile string

const (
	LayoutProfileV1 LayoutProfile = "symmetry_v1"
	LayoutProfileV2 LayoutProfile = "symmetry_v2"
)

// QuoteParams describes a single swap request against a venue.
type QuoteParams struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	InAmount   math.Int
}

// Quote is the venue's answer to a QuoteParams request. A quote with
// NotEnoughLiquidity set carries OutAmount zero and is not an error:
// the caller is expected to keep searching other venues.
type Quote struct {
	InAmount           math.Int
	OutAmount          math.Int
	FeeAmount          math.Int
	FeeMint            solana.PublicKey
	FeePct             math.LegacyDec
	PriceImpactPct     math.LegacyDec
	NotEnoughLiquidity bool
}

// SwapParams carries everything needed to plan the on-chain swap call.
type SwapParams struct {
	SourceMint             solana.PublicKey
	DestinationMint        solana.PublicKey
	InAmount               uint64
	UserTransferAuthority  solana.PublicKey
	UserSourceTokenAccount solana.PublicKey
	UserDestTokenAccount   solana.PublicKey
}

// SwapAccounts is the invocation plan for a swap: the leg tag the host
// embeds in its route, the exact ordered account list the program
// expects, and the ready-made instruction.
type SwapAccounts struct {
	SwapLeg      LayoutProfile
	AccountMetas solana.AccountMetaSlice
	Instruction  solana.Instruction
}

// Venue is a single tradable fund. All methods except Update are pure
// over the venue's installed snapshot; Update replaces the snapshot
// atomically (on failure the previous snapshot stays installed).
type Venue interface {
	Label() string
	Key() solana.PublicKey
	ReserveMints() []solana.PublicKey
	AccountsToRefresh() []solana.PublicKey
	Update(ctx context.Context, accounts map[solana.PublicKey][]byte) error
	Quote(ctx context.Context, params QuoteParams) (Quote, error)
	BuildSwapAccounts(params SwapParams) (SwapAccounts, error)
	Clone() Venue
}

// Protocol discovers venues on chain.
type Protocol interface {
	Profile() LayoutProfile
	FetchFundByID(ctx context.Context, fundID solana.PublicKey) (Venue, error)
	FetchAllFunds(ctx context.Context) ([]Venue, error)
}
