package models

import (
	"strings"

	"github.com/samber/lo"
)

// Unrevealed marks a slot of the reveal array whose character is still hidden.
const Unrevealed = ""

// RevealRecord is the singleton reveal progress stored under KeyGameState.
type RevealRecord struct {
	RevealedCharacters []string `json:"revealedCharacters"`
	CurrentMilestone   int64    `json:"currentMilestone"`
	IsActive           bool     `json:"isActive"`
}

func NewRevealRecord(length int) *RevealRecord {
	return &RevealRecord{
		RevealedCharacters: lo.Times(length, func(_ int) string { return Unrevealed }),
		CurrentMilestone:   0,
		IsActive:           true,
	}
}

func (r *RevealRecord) RevealedCount() int {
	return lo.CountBy(r.RevealedCharacters, func(c string) bool { return c != Unrevealed })
}

func (r *RevealRecord) HasHidden() bool {
	return lo.Contains(r.RevealedCharacters, Unrevealed)
}

func (r *RevealRecord) IsFullyRevealed() bool {
	return !r.HasHidden()
}

// NextHidden returns the lowest unrevealed index, or -1.
func (r *RevealRecord) NextHidden() int {
	return lo.IndexOf(r.RevealedCharacters, Unrevealed)
}

// Joined concatenates the revealed slots. Hidden slots contribute nothing.
func (r *RevealRecord) Joined() string {
	return strings.Join(r.RevealedCharacters, "")
}

// Snapshot returns a copy of the reveal array safe to hand to broadcasters.
func (r *RevealRecord) Snapshot() []string {
	out := make([]string, len(r.RevealedCharacters))
	copy(out, r.RevealedCharacters)
	return out
}

// RevealEvent is emitted on the characterReveal channel. Single reveals carry
// Position and Character; the final reveal sets AllRevealed instead.
type RevealEvent struct {
	Position           *int     `json:"position,omitempty"`
	Character          string   `json:"character,omitempty"`
	RevealedCharacters []string `json:"revealedCharacters"`
	AllRevealed        bool     `json:"allRevealed,omitempty"`
	Milestone          int64    `json:"milestone"`
}
