package symmetry

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

const (
	// FundStateDataSize is the minimum fund state account size covering
	// every field the adapter reads.
	FundStateDataSize = 1048

	fundManagerOffset      = 16
	fundHostOffset         = 128
	fundNumTokensOffset    = 168
	fundCompTokenOffset    = 176
	fundCompAmountOffset   = 336
	fundTargetWeightOffset = 656
	fundWeightSumOffset    = 816
	fundRebalanceOffset    = 1024
	fundLpOffsetOffset     = 1040
)

// FundState is the decoded per-fund account: current composition,
// target weights and the thresholds bounding post-swap weight drift.
// Layout is identical across both account generations.
type FundState struct {
	Manager           solana.PublicKey
	Host              solana.PublicKey
	NumTokens         uint64
	CurrentCompToken  [NumFundTokens]uint64
	CurrentCompAmount [NumFundTokens]uint64
	TargetWeight      [NumFundTokens]uint64
	WeightSum         uint64

	// RebalanceThreshold * LpOffsetThreshold is the allowed weight
	// deviation in units of 1e-8.
	RebalanceThreshold uint64
	LpOffsetThreshold  uint64
}

func (s *FundState) Decode(data []byte) error {
	if len(data) < FundStateDataSize {
		return fmt.Errorf("fund state data too short: expected %d bytes, got %d", FundStateDataSize, len(data))
	}

	s.Manager = solana.PublicKeyFromBytes(data[fundManagerOffset : fundManagerOffset+32])
	s.Host = solana.PublicKeyFromBytes(data[fundHostOffset : fundHostOffset+32])
	s.NumTokens = binary.LittleEndian.Uint64(data[fundNumTokensOffset : fundNumTokensOffset+8])
	for i := 0; i < NumFundTokens; i++ {
		s.CurrentCompToken[i] = binary.LittleEndian.Uint64(data[fundCompTokenOffset+8*i : fundCompTokenOffset+8*i+8])
		s.CurrentCompAmount[i] = binary.LittleEndian.Uint64(data[fundCompAmountOffset+8*i : fundCompAmountOffset+8*i+8])
		s.TargetWeight[i] = binary.LittleEndian.Uint64(data[fundTargetWeightOffset+8*i : fundTargetWeightOffset+8*i+8])
	}
	s.WeightSum = binary.LittleEndian.Uint64(data[fundWeightSumOffset : fundWeightSumOffset+8])
	s.RebalanceThreshold = binary.LittleEndian.Uint64(data[fundRebalanceOffset : fundRebalanceOffset+8])
	s.LpOffsetThreshold = binary.LittleEndian.Uint64(data[fundLpOffsetOffset : fundLpOffsetOffset+8])

	if s.NumTokens > NumFundTokens {
		return fmt.Errorf("fund state reports %d composition tokens, capacity is %d", s.NumTokens, NumFundTokens)
	}
	return nil
}

// CompIndex returns the position of tokenID in the current composition.
func (s *FundState) CompIndex(tokenID uint64) (int, bool) {
	for i := 0; i < int(s.NumTokens); i++ {
		if s.CurrentCompToken[i] == tokenID {
			return i, true
		}
	}
	return 0, false
}
