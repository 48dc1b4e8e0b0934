package models

type SubmitCodeRequest struct {
	Code          string `json:"code" binding:"required"`
	WalletAddress string `json:"walletAddress" binding:"required,max=128"`
	CaptchaToken  string `json:"captchaToken" binding:"required"`
}

// Submission is a guess plus the caller's network identity.
type Submission struct {
	Code         string
	Wallet       string
	CaptchaToken string
	IP           string
}

type SubmissionResult struct {
	Success  bool     `json:"success"`
	Position int      `json:"position,omitempty"`
	Reward   *float64 `json:"reward,omitempty"`
}

type GameStateResponse struct {
	MarketCap          float64      `json:"marketCap"`
	RevealedCharacters string       `json:"revealedCharacters"`
	Winners            []WinnerView `json:"winners"`
}

type MarketSampleRequest struct {
	MarketCap float64 `json:"marketCap" binding:"gte=0"`
	Price     float64 `json:"price" binding:"gte=0"`
}

type GameActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}
