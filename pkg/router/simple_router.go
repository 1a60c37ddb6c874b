package router

import (
	"context"
	"fmt"
	"sync"

	"cosmossdk.io/math"
	"github.com/gagliardetto/solana-go"
	"github.com/symmetry-protocol/symmetry-go/pkg"
	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
	"go.uber.org/zap"
)

// maxAccountsPerBatch bounds one getMultipleAccounts request.
const maxAccountsPerBatch = 100

type SimpleRouter struct {
	Protocols []pkg.Protocol
	Venues    []pkg.Venue
	logger    *zap.Logger
}

func NewSimpleRouter(logger *zap.Logger, protocols ...pkg.Protocol) *SimpleRouter {
	return &SimpleRouter{
		Protocols: protocols,
		Venues:    []pkg.Venue{},
		logger:    logger,
	}
}

// QueryAllFunds discovers venues across every registered protocol.
func (r *SimpleRouter) QueryAllFunds(ctx context.Context) error {
	var allVenues []pkg.Venue

	for _, proto := range r.Protocols {
		r.logger.Info("fetching funds", zap.String("profile", string(proto.Profile())))
		venues, err := proto.FetchAllFunds(ctx)
		if err != nil {
			r.logger.Warn("error fetching funds", zap.String("profile", string(proto.Profile())), zap.Error(err))
			continue
		}
		allVenues = append(allVenues, venues...)
	}

	r.Venues = allVenues
	return nil
}

// RefreshAll re-fetches every venue's refresh set and installs the new
// snapshots. A venue that fails to refresh keeps its previous snapshot
// and is reported, not fatal.
func (r *SimpleRouter) RefreshAll(ctx context.Context, solClient *sol.Client) error {
	for _, venue := range r.Venues {
		if err := r.refreshVenue(ctx, solClient, venue); err != nil {
			r.logger.Warn("failed to refresh venue",
				zap.String("venue", venue.Key().String()),
				zap.Error(err))
		}
	}
	return nil
}

func (r *SimpleRouter) refreshVenue(ctx context.Context, solClient *sol.Client, venue pkg.Venue) error {
	accounts := venue.AccountsToRefresh()
	blobs := make(map[solana.PublicKey][]byte, len(accounts))

	for start := 0; start < len(accounts); start += maxAccountsPerBatch {
		end := start + maxAccountsPerBatch
		if end > len(accounts) {
			end = len(accounts)
		}
		batch := accounts[start:end]
		results, err := solClient.GetMultipleAccountsWithOpts(ctx, batch)
		if err != nil {
			return fmt.Errorf("batch request failed: %w", err)
		}
		for i, result := range results.Value {
			if result == nil {
				return fmt.Errorf("account not found: %s", batch[i])
			}
			blobs[batch[i]] = result.Data.GetBinary()
		}
	}

	return venue.Update(ctx, blobs)
}

// GetBestQuote quotes every venue concurrently and returns the one
// with the highest output, skipping errors and venues that report not
// enough liquidity.
func (r *SimpleRouter) GetBestQuote(ctx context.Context, params pkg.QuoteParams) (pkg.Venue, pkg.Quote, error) {
	type quoteResult struct {
		venue pkg.Venue
		quote pkg.Quote
		err   error
	}

	resultChan := make(chan quoteResult, len(r.Venues))
	var wg sync.WaitGroup

	for _, venue := range r.Venues {
		wg.Add(1)
		go func(v pkg.Venue) {
			defer wg.Done()
			quote, err := v.Quote(ctx, params)
			resultChan <- quoteResult{venue: v, quote: quote, err: err}
		}(venue)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var best pkg.Venue
	var bestQuote pkg.Quote
	maxOut := math.ZeroInt()

	for result := range resultChan {
		if result.err != nil {
			r.logger.Warn("error quoting venue",
				zap.String("venue", result.venue.Key().String()),
				zap.Error(result.err))
			continue
		}
		if result.quote.NotEnoughLiquidity {
			continue
		}
		if result.quote.OutAmount.GT(maxOut) {
			maxOut = result.quote.OutAmount
			best = result.venue
			bestQuote = result.quote
		}
	}

	if best == nil {
		return nil, pkg.Quote{}, fmt.Errorf("no route found")
	}
	return best, bestQuote, nil
}
