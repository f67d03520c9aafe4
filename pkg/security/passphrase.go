package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const passphraseAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// passphraseLength matches the spec's "random 20-char alphanumeric
// passphrase".
const passphraseLength = 20

// GeneratePassphrase returns a CSPRNG-sourced ASCII passphrase. This and
// SHA-256 hashing are the only cryptographic primitives the agent performs
// itself; all certificate/key material is produced by openssl.
func GeneratePassphrase() (string, error) {
	out := make([]byte, passphraseLength)
	alphabetLen := big.NewInt(int64(len(passphraseAlphabet)))

	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate passphrase: %w", err)
		}
		out[i] = passphraseAlphabet[n.Int64()]
	}

	return string(out), nil
}
