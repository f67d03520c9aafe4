package security

import (
	"strings"
	"testing"
)

func TestGeneratePassphrase(t *testing.T) {
	p1, err := GeneratePassphrase()
	if err != nil {
		t.Fatalf("GeneratePassphrase: %v", err)
	}
	if len(p1) != passphraseLength {
		t.Errorf("passphrase length = %d, want %d", len(p1), passphraseLength)
	}
	for _, r := range p1 {
		if !strings.ContainsRune(passphraseAlphabet, r) {
			t.Errorf("passphrase %q contains out-of-alphabet rune %q", p1, r)
		}
	}

	p2, err := GeneratePassphrase()
	if err != nil {
		t.Fatalf("GeneratePassphrase: %v", err)
	}
	if p1 == p2 {
		t.Errorf("two successive passphrases were identical: %q", p1)
	}
}
