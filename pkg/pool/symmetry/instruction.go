package symmetry

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// SwapInstruction is the on-chain swap call: five little-endian u64
// fields, discriminator first. MinimumAmountOut is always zero; the
// host enforces slippage elsewhere.
type SwapInstruction struct {
	bin.BaseVariant
	Discriminator    uint64
	FromTokenID      uint64
	ToTokenID        uint64
	InAmount         uint64
	MinimumAmountOut uint64

	solana.AccountMetaSlice `bin:"-" borsh_skip:"true"`
}

func (inst *SwapInstruction) ProgramID() solana.PublicKey {
	return ProgramID
}

func (inst *SwapInstruction) Accounts() (out []*solana.AccountMeta) {
	return inst.Impl.(solana.AccountsGettable).GetAccounts()
}

func (inst *SwapInstruction) Data() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(inst); err != nil {
		return nil, fmt.Errorf("unable to encode instruction: %w", err)
	}
	return buf.Bytes(), nil
}

func (inst *SwapInstruction) MarshalWithEncoder(encoder *bin.Encoder) (err error) {
	for _, field := range []uint64{
		inst.Discriminator,
		inst.FromTokenID,
		inst.ToTokenID,
		inst.InAmount,
		inst.MinimumAmountOut,
	} {
		if err = encoder.WriteUint64(field, binary.LittleEndian); err != nil {
			return err
		}
	}
	return nil
}

// swapAccountMetas assembles the ordered account list the swap call
// expects: 13 fixed roles followed by one oracle per composition slot.
func swapAccountMetas(
	fundKey solana.PublicKey,
	fromCustody, toCustody solana.PublicKey,
	userAuthority, userSource, userDest solana.PublicKey,
	host, manager, destMint solana.PublicKey,
	oracles []solana.PublicKey,
) (solana.AccountMetaSlice, error) {
	swapFeeATA, _, err := solana.FindAssociatedTokenAddress(SwapFeeAddress, destMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive swap fee token account: %w", err)
	}
	hostFeeATA, _, err := solana.FindAssociatedTokenAddress(host, destMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive host fee token account: %w", err)
	}
	managerFeeATA, _, err := solana.FindAssociatedTokenAddress(manager, destMint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive manager fee token account: %w", err)
	}

	metas := make(solana.AccountMetaSlice, 0, 13+len(oracles))
	metas = append(metas, solana.NewAccountMeta(userAuthority, true, true))
	metas = append(metas, solana.NewAccountMeta(fundKey, true, false))
	metas = append(metas, solana.NewAccountMeta(FundPDAAddress, false, false))
	metas = append(metas, solana.NewAccountMeta(fromCustody, true, false))
	metas = append(metas, solana.NewAccountMeta(userSource, true, false))
	metas = append(metas, solana.NewAccountMeta(toCustody, true, false))
	metas = append(metas, solana.NewAccountMeta(userDest, true, false))
	metas = append(metas, solana.NewAccountMeta(swapFeeATA, true, false))
	metas = append(metas, solana.NewAccountMeta(hostFeeATA, true, false))
	metas = append(metas, solana.NewAccountMeta(managerFeeATA, true, false))
	metas = append(metas, solana.NewAccountMeta(TokenCatalogAddress, false, false))
	metas = append(metas, solana.NewAccountMeta(CurveDataAddress, false, false))
	metas = append(metas, solana.NewAccountMeta(SPLTokenProgramID, false, false))
	for _, oracle := range oracles {
		metas = append(metas, solana.NewAccountMeta(oracle, false, false))
	}
	return metas, nil
}
