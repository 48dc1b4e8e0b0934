package models_test

import (
	"code-reveal-backend/internal/models"
	"testing"
)

func TestRewardTiers(t *testing.T) {
	cases := []struct {
		position int
		want     float64
	}{
		{1, 10}, {2, 7}, {3, 5},
		{4, 2}, {10, 2},
		{11, 1}, {30, 1},
		{31, 0.63}, {100, 0.63},
	}

	for _, tc := range cases {
		if got := models.RewardPercentageFor(tc.position); got != tc.want {
			t.Errorf("position %d: expected %.2f%%, got %.2f%%", tc.position, tc.want, got)
		}
	}

	if got := models.RewardPercentageFor(0); got != 0 {
		t.Errorf("position 0 should earn nothing, got %.2f", got)
	}
}

func TestTokenAmounts(t *testing.T) {
	if models.PrizePool != 100_000_000 {
		t.Fatalf("prize pool should be 10%% of supply, got %d", models.PrizePool)
	}

	cases := map[int]int64{
		1:  10_000_000,
		2:  7_000_000,
		3:  5_000_000,
		7:  2_000_000,
		20: 1_000_000,
		64: 630_000,
	}

	for position, want := range cases {
		w := &models.Winner{Position: position, RewardBasisPoints: models.RewardBasisPointsFor(position)}
		if got := w.TokenAmount(); got != want {
			t.Errorf("position %d: expected %d tokens, got %d", position, want, got)
		}
	}
}

func TestRevealRecord(t *testing.T) {
	record := models.NewRevealRecord(4)

	if !record.IsActive {
		t.Error("new record should be active")
	}
	if record.RevealedCount() != 0 || record.NextHidden() != 0 {
		t.Errorf("new record should be fully hidden, got count=%d next=%d",
			record.RevealedCount(), record.NextHidden())
	}

	record.RevealedCharacters[0] = "A"
	record.RevealedCharacters[1] = "B"

	if record.RevealedCount() != 2 {
		t.Errorf("expected 2 revealed, got %d", record.RevealedCount())
	}
	if record.NextHidden() != 2 {
		t.Errorf("expected next hidden index 2, got %d", record.NextHidden())
	}
	if record.Joined() != "AB" {
		t.Errorf("expected joined AB, got %q", record.Joined())
	}

	snap := record.Snapshot()
	snap[0] = "Z"
	if record.RevealedCharacters[0] != "A" {
		t.Error("snapshot should not alias the record")
	}

	record.RevealedCharacters[2] = "C"
	record.RevealedCharacters[3] = "D"
	if !record.IsFullyRevealed() || record.NextHidden() != -1 {
		t.Error("record should be fully revealed")
	}
}

func TestFormatMarketCap(t *testing.T) {
	cases := map[float64]string{
		950:           "$950.00",
		1_234_567:     "$1.23M",
		2_500_000_000: "$2.50B",
	}
	for in, want := range cases {
		if got := models.FormatMarketCap(in); got != want {
			t.Errorf("FormatMarketCap(%v): expected %s, got %s", in, want, got)
		}
	}
}

func TestGenerateClientID(t *testing.T) {
	if models.GenerateClientID() == "" {
		t.Error("client id should not be empty")
	}
}
