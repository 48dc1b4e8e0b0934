package models

import "time"

const (
	MaxWinners  = 100
	TotalSupply = int64(1_000_000_000)
	PrizePool   = TotalSupply / 10 // 10% of supply
)

// Winner is the durable admission record. Reward is stored as basis points
// (63 = 0.63%) and the token amount is derived on read.
type Winner struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	WalletAddress     string    `gorm:"size:128;uniqueIndex;not null" json:"walletAddress"`
	Position          int       `gorm:"uniqueIndex;not null" json:"position"`
	RewardBasisPoints int       `gorm:"not null" json:"-"`
	CreatedAt         time.Time `gorm:"index" json:"createdAt"`
}

func (Winner) TableName() string {
	return "winners"
}

func (w *Winner) RewardPercentage() float64 {
	return float64(w.RewardBasisPoints) / 100
}

func (w *Winner) TokenAmount() int64 {
	return TokenAmountFor(w.RewardBasisPoints)
}

func (w *Winner) View() WinnerView {
	return WinnerView{
		WalletAddress:    w.WalletAddress,
		Position:         w.Position,
		RewardPercentage: w.RewardPercentage(),
		TokenAmount:      w.TokenAmount(),
		CreatedAt:        w.CreatedAt,
	}
}

type WinnerView struct {
	WalletAddress    string    `json:"walletAddress"`
	Position         int       `json:"position"`
	RewardPercentage float64   `json:"rewardPercentage"`
	TokenAmount      int64     `json:"tokenAmount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// WinnerEvent is emitted on the newWinner channel.
type WinnerEvent struct {
	Position int     `json:"position"`
	Wallet   string  `json:"wallet"`
	Reward   float64 `json:"reward"`
}

// RewardBasisPointsFor is the reward tier table in basis points of the prize pool.
func RewardBasisPointsFor(position int) int {
	switch {
	case position < 1:
		return 0
	case position == 1:
		return 1000
	case position == 2:
		return 700
	case position == 3:
		return 500
	case position <= 10:
		return 200
	case position <= 30:
		return 100
	default:
		return 63
	}
}

func RewardPercentageFor(position int) float64 {
	return float64(RewardBasisPointsFor(position)) / 100
}

// TokenAmountFor floors PrizePool * bps / 10000 in integer math.
func TokenAmountFor(basisPoints int) int64 {
	return PrizePool * int64(basisPoints) / 10000
}
