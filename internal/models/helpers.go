package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func GenerateClientID() string {
	return fmt.Sprintf("ws_%s_%d",
		time.Now().Format("20060102"),
		uuid.New().ID())
}

func GenerateRequestID() string {
	return uuid.NewString()
}

func FormatMarketCap(v float64) string {
	switch {
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func Float64Ptr(v float64) *float64 {
	return &v
}
