// Command admintoken mints an operator bearer token for the /api/admin routes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"code-reveal-backend/internal/config"
	"code-reveal-backend/internal/services"
)

func main() {
	subject := flag.String("sub", "operator", "token subject, recorded in admin logs")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &config.Config{AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET")}

	token, err := services.NewJWTService(cfg).GenerateToken(*subject, *ttl)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
