package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/noah-isme/busbuddy-api/internal/models"
	"github.com/noah-isme/busbuddy-api/internal/service"
	"github.com/noah-isme/busbuddy-api/pkg/config"
)

func main() {
	var (
		role   string
		user   string
		expiry time.Duration
	)

	flag.StringVar(&role, "role", string(models.RoleViewer), "Role: ADMIN, DISPATCHER or VIEWER")
	flag.StringVar(&user, "user", "", "User id placed in the token")
	flag.DurationVar(&expiry, "expiry", 0, "Token lifetime (defaults to JWT_EXPIRATION)")
	flag.Parse()

	if user == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if expiry <= 0 {
		expiry = cfg.JWT.Expiration
	}

	auth := service.NewAuthService(nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: expiry,
		Issuer:            cfg.JWT.Issuer,
	})
	issued, err := auth.IssueToken(user, models.UserRole(role))
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}

	fmt.Println(issued.Token)
	log.Printf("expires at %s", issued.ExpiresAt.Format(time.RFC3339))
}
