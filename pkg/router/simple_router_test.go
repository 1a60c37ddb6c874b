package router

import (
	"context"
	"errors"
	"testing"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"
	"github.com/symmetry-protocol/symmetry-go/pkg"
	"go.uber.org/zap"
)

type stubVenue struct {
	key   solana.PublicKey
	quote pkg.Quote
	err   error
}

func (s *stubVenue) Label() string                          { return "stub" }
func (s *stubVenue) Key() solana.PublicKey                  { return s.key }
func (s *stubVenue) ReserveMints() []solana.PublicKey       { return nil }
func (s *stubVenue) AccountsToRefresh() []solana.PublicKey  { return nil }
func (s *stubVenue) Clone() pkg.Venue                       { return s }
func (s *stubVenue) Update(ctx context.Context, accounts map[solana.PublicKey][]byte) error {
	return nil
}
func (s *stubVenue) Quote(ctx context.Context, params pkg.QuoteParams) (pkg.Quote, error) {
	return s.quote, s.err
}
func (s *stubVenue) BuildSwapAccounts(params pkg.SwapParams) (pkg.SwapAccounts, error) {
	return pkg.SwapAccounts{}, nil
}

func venueKey(seed byte) solana.PublicKey {
	var b [32]byte
	for i := range b {
		b[i] = seed
	}
	return solana.PublicKeyFromBytes(b[:])
}

func TestGetBestQuote(t *testing.T) {
	r := NewSimpleRouter(zap.NewNop())
	r.Venues = []pkg.Venue{
		&stubVenue{key: venueKey(1), quote: pkg.Quote{OutAmount: math.NewInt(100)}},
		&stubVenue{key: venueKey(2), quote: pkg.Quote{OutAmount: math.NewInt(300)}},
		&stubVenue{key: venueKey(3), err: errors.New("oracle not live")},
		// highest output but flagged as not enough liquidity
		&stubVenue{key: venueKey(4), quote: pkg.Quote{OutAmount: math.ZeroInt(), NotEnoughLiquidity: true}},
	}

	best, quote, err := r.GetBestQuote(context.Background(), pkg.QuoteParams{InAmount: math.NewInt(1)})
	require.NoError(t, err)
	require.Equal(t, venueKey(2), best.Key())
	require.Equal(t, math.NewInt(300), quote.OutAmount)
}

func TestGetBestQuoteNoRoute(t *testing.T) {
	r := NewSimpleRouter(zap.NewNop())
	r.Venues = []pkg.Venue{
		&stubVenue{key: venueKey(1), err: errors.New("mint not found")},
	}

	_, _, err := r.GetBestQuote(context.Background(), pkg.QuoteParams{InAmount: math.NewInt(1)})
	require.Error(t, err)
}
