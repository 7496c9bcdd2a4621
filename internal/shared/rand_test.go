package shared

import (
	"strings"
	"testing"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if len(s) != 32 {
		t.Errorf("length = %d, want 32", len(s))
	}

	other, err := MakeRandHexString(16)
	if err != nil {
		t.Fatalf("MakeRandHexString error: %v", err)
	}
	if s == other {
		t.Error("two generated strings must differ")
	}
}

func TestMakeInviteCode(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		code, err := MakeInviteCode()
		if err != nil {
			t.Fatalf("MakeInviteCode error: %v", err)
		}
		if len(code) != InviteCodeLength {
			t.Fatalf("length = %d, want %d", len(code), InviteCodeLength)
		}
		for _, c := range code {
			if !strings.ContainsRune(inviteCodeAlphabet, c) {
				t.Fatalf("character %q outside the alphabet", c)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("codes must not all collide")
	}
}
