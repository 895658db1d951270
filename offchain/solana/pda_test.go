package solana

import "testing"

func TestCreateProgramAddress_RejectsInvalidSeeds(t *testing.T) {
	_, err := CreateProgramAddress(make([][]byte, 17), SystemProgramID)
	if err != ErrInvalidSeeds {
		t.Fatalf("want ErrInvalidSeeds, got %v", err)
	}

	seed := make([]byte, 33)
	_, err = CreateProgramAddress([][]byte{seed}, SystemProgramID)
	if err != ErrInvalidSeeds {
		t.Fatalf("want ErrInvalidSeeds, got %v", err)
	}
}

func TestFindProgramAddress_ReturnsOffCurve(t *testing.T) {
	pda, bump, err := FindProgramAddress([][]byte{[]byte("test")}, SystemProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if isOnCurve(pda) {
		t.Fatalf("expected off-curve PDA")
	}
	again, err := CreateProgramAddress([][]byte{[]byte("test"), {bump}}, SystemProgramID)
	if err != nil || again != pda {
		t.Fatalf("bump %d does not reproduce address: %v", bump, err)
	}
}

func TestFindProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("ClaimStatus"), make([]byte, 32)}
	a, bumpA, err := FindProgramAddress(seeds, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	b, bumpB, err := FindProgramAddress(seeds, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if a != b || bumpA != bumpB {
		t.Fatalf("non-deterministic derivation")
	}
	if len(seeds) != 2 {
		t.Fatalf("caller seeds were mutated")
	}

	flipped := [][]byte{[]byte("ClaimStatus"), make([]byte, 32)}
	flipped[1][0] = 1
	c, _, err := FindProgramAddress(flipped, TokenProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if c == a {
		t.Fatalf("changing a seed byte must change the address")
	}
}

func TestFindAssociatedTokenAddress_SeedOrder(t *testing.T) {
	owner := MustParsePubkey("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	mint := MustParsePubkey("Grass7B4RdKfBCjTKgSqnXkqjwiGvQyFbuSCUJr3XXjs")
	got, _, err := FindAssociatedTokenAddress(owner, mint, TokenProgramID)
	if err != nil {
		t.Fatalf("FindAssociatedTokenAddress: %v", err)
	}
	want, _, err := FindProgramAddress([][]byte{owner[:], TokenProgramID[:], mint[:]}, AssociatedTokenAccountProgramID)
	if err != nil {
		t.Fatalf("FindProgramAddress: %v", err)
	}
	if got != want {
		t.Fatalf("ata=%s, want %s", got, want)
	}
	swapped, _, _ := FindProgramAddress([][]byte{mint[:], TokenProgramID[:], owner[:]}, AssociatedTokenAccountProgramID)
	if swapped == got {
		t.Fatalf("seed order must matter")
	}
}
