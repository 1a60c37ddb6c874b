package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/symmetry-protocol/symmetry-go/pkg"
	"github.com/symmetry-protocol/symmetry-go/pkg/anchor"
	"github.com/symmetry-protocol/symmetry-go/pkg/pool/symmetry"
	"github.com/symmetry-protocol/symmetry-go/pkg/sol"
	"go.uber.org/zap"
)

// SymmetryProtocol discovers Symmetry funds on chain and constructs
// venues for them. Both fund generations share one deployed program;
// the profile picks the account layout a venue decodes.
type SymmetryProtocol struct {
	SolClient *sol.Client
	profile   pkg.LayoutProfile
	logger    *zap.Logger
}

func NewSymmetryV1(solClient *sol.Client, logger *zap.Logger) *SymmetryProtocol {
	return &SymmetryProtocol{
		SolClient: solClient,
		profile:   pkg.LayoutProfileV1,
		logger:    logger,
	}
}

func NewSymmetryV2(solClient *sol.Client, logger *zap.Logger) *SymmetryProtocol {
	return &SymmetryProtocol{
		SolClient: solClient,
		profile:   pkg.LayoutProfileV2,
		logger:    logger,
	}
}

func (p *SymmetryProtocol) Profile() pkg.LayoutProfile {
	return p.profile
}

// FetchFundByID loads one fund's state together with the shared token
// catalog and builds a venue for it.
func (p *SymmetryProtocol) FetchFundByID(ctx context.Context, fundID solana.PublicKey) (pkg.Venue, error) {
	results, err := p.SolClient.GetMultipleAccountsWithOpts(ctx, []solana.PublicKey{fundID, symmetry.TokenCatalogAddress})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch fund %s: %w", fundID, err)
	}
	if len(results.Value) != 2 || results.Value[0] == nil || results.Value[1] == nil {
		return nil, fmt.Errorf("fund %s or token catalog not found", fundID)
	}
	return p.newVenue(fundID,
		results.Value[0].Data.GetBinary(),
		results.Value[1].Data.GetBinary())
}

// FetchAllFunds scans the program for fund state accounts.
func (p *SymmetryProtocol) FetchAllFunds(ctx context.Context) ([]pkg.Venue, error) {
	catalogAccount, err := p.SolClient.GetAccountInfoWithOpts(ctx, symmetry.TokenCatalogAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token catalog: %w", err)
	}
	if catalogAccount.Value == nil {
		return nil, fmt.Errorf("token catalog %s not found", symmetry.TokenCatalogAddress)
	}
	catalogData := catalogAccount.Value.Data.GetBinary()

	accounts, err := p.SolClient.GetProgramAccountsWithOpts(ctx, symmetry.ProgramID, &rpc.GetProgramAccountsOpts{
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  anchor.GetDiscriminator("account", "FundState"),
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan fund accounts: %w", err)
	}

	venues := make([]pkg.Venue, 0, len(accounts))
	for _, account := range accounts {
		venue, err := p.newVenue(account.Pubkey, account.Account.Data.GetBinary(), catalogData)
		if err != nil {
			p.logger.Warn("skipping fund account",
				zap.String("fund", account.Pubkey.String()),
				zap.Error(err))
			continue
		}
		venues = append(venues, venue)
	}
	return venues, nil
}

func (p *SymmetryProtocol) newVenue(fundID solana.PublicKey, fundStateData, catalogData []byte) (pkg.Venue, error) {
	switch p.profile {
	case pkg.LayoutProfileV1:
		return symmetry.NewV1Venue(fundID, fundStateData, catalogData, sol.ClientTimeSource{Client: p.SolClient})
	case pkg.LayoutProfileV2:
		return symmetry.NewV2Venue(fundID, fundStateData, catalogData)
	default:
		return nil, fmt.Errorf("unknown layout profile %q", p.profile)
	}
}
