package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// FindUserTokenAccount resolves the token account a user would trade
// from: an existing account for the mint when one exists, otherwise
// the associated token account address (which the user must create
// before the swap executes).
func (t *Client) FindUserTokenAccount(ctx context.Context, user solana.PublicKey, tokenMint solana.PublicKey) (solana.PublicKey, error) {
	acc, err := t.GetTokenAccountsByOwner(ctx, user,
		&rpc.GetTokenAccountsConfig{Mint: tokenMint.ToPointer()},
		&rpc.GetTokenAccountsOpts{
			Encoding: "jsonParsed",
		},
	)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("GetTokenAccountsByOwner: %w", err)
	}
	if len(acc.Value) > 0 {
		return acc.Value[0].Pubkey, nil
	}

	ataAddress, _, err := solana.FindAssociatedTokenAddress(user, tokenMint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("FindAssociatedTokenAddress: %w", err)
	}
	return ataAddress, nil
}
