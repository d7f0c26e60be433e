// Package solana provides small helpers for validating on-chain addresses.
package solana

import (
	"bytes"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// IsValidPubkey reports whether s is a well-formed Solana address:
// base58 text decoding to exactly 32 bytes.
func IsValidPubkey(s string) bool {
	b, err := base58.Decode(s)
	return err == nil && len(b) == 32
}

// IsOnCurve reports whether s is a valid address on the ed25519 curve.
// Wallet addresses are public keys and therefore on-curve; program derived
// addresses (marketplace escrows, vaults) are off-curve by construction.
func IsOnCurve(s string) bool {
	b, err := base58.Decode(s)
	if err != nil || len(b) != 32 {
		return false
	}
	return isOnCurveBytes(b)
}

func isOnCurveBytes(b []byte) bool {
	p, err := new(edwards25519.Point).SetBytes(b)
	if err != nil {
		return false
	}
	// SetBytes tolerates a y coordinate above the field prime; only a
	// canonical encoding round-trips unchanged.
	return bytes.Equal(p.Bytes(), b)
}
