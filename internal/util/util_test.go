package util

import (
	"testing"
)

func TestGenerateToken(t *testing.T) {
	t.Parallel()

	first, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	second, err := GenerateToken(32)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if len(first) != 64 {
		t.Fatalf("len(token) = %d, want 64", len(first))
	}
	if first == second {
		t.Fatal("two tokens are identical")
	}
}

func TestHashToken(t *testing.T) {
	t.Parallel()

	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashToken("abc"); got != want {
		t.Fatalf("HashToken(abc) = %s, want %s", got, want)
	}
	if HashToken("abc") == HashToken("abd") {
		t.Fatal("distinct tokens share a digest")
	}
}
