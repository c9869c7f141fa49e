package solana

import (
	"crypto/sha256"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MaxSeedLength is the on-chain limit for one PDA seed.
const MaxSeedLength = 32

// pdaMarker is the domain separator Solana appends when hashing PDA seeds.
var pdaMarker = []byte("ProgramDerivedAddress")

// FindProgramAddress derives the canonical program address for the seeds:
// the first bump from 255 downward whose hash falls off the ed25519 curve.
// Returns the base58 address and the bump used.
func FindProgramAddress(seeds [][]byte, programID string) (string, uint8, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", 0, fmt.Errorf("program id is %d bytes, want 32", len(program))
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return "", 0, fmt.Errorf("seed length %d exceeds %d", len(seed), MaxSeedLength)
		}
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write(seed)
		}
		h.Write([]byte{uint8(bump)})
		h.Write(program)
		h.Write(pdaMarker)
		candidate := h.Sum(nil)

		if !onCurve(candidate) {
			return base58.Encode(candidate), uint8(bump), nil
		}
	}
	return "", 0, fmt.Errorf("no off-curve address for seeds")
}

// onCurve reports whether the 32 bytes decode as a valid ed25519 point. A
// valid point would have a private key, so it cannot be a program address.
func onCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

// DeriveTokenConfigPDA derives the token config account for a mint.
func DeriveTokenConfigPDA(mint, programID string) (string, uint8, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", 0, fmt.Errorf("decode mint: %w", err)
	}
	return FindProgramAddress([][]byte{[]byte("token_config"), mintBytes}, programID)
}

// DeriveVestingPDA derives the vesting schedule account for a beneficiary.
func DeriveVestingPDA(mint, beneficiary, scheduleID, programID string) (string, uint8, error) {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return "", 0, fmt.Errorf("decode mint: %w", err)
	}
	benBytes, err := base58.Decode(beneficiary)
	if err != nil {
		return "", 0, fmt.Errorf("decode beneficiary: %w", err)
	}
	seeds := [][]byte{[]byte("vesting"), mintBytes, benBytes, []byte(scheduleID)}
	return FindProgramAddress(seeds, programID)
}
