// Package shared provides utility functions for random tokens used across
// the chat core: hex secrets, invite codes, and encryption key-hash
// placeholders.
package shared

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

// MakeRandHexString generates a random hexadecimal string of the given size.
// The size parameter specifies the number of random bytes to generate before
// encoding them as a hexadecimal string, so the final string length will be
// twice the size.
//
// It returns an error if the random number generator fails.
func MakeRandHexString(size int) (string, error) {
	b := make([]byte, size)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// inviteCodeAlphabet excludes lowercase to keep codes easy to read aloud.
const inviteCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// InviteCodeLength is the fixed length of group-conversation invite codes.
const InviteCodeLength = 8

// MakeInviteCode generates an 8-character invite code from the A-Z0-9
// alphabet.
func MakeInviteCode() (string, error) {
	out := make([]byte, InviteCodeLength)
	max := big.NewInt(int64(len(inviteCodeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = inviteCodeAlphabet[n.Int64()]
	}
	return string(out), nil
}
