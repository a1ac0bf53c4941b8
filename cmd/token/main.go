package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/satriahrh/robozinho/internal/auth"
	"github.com/satriahrh/robozinho/internal/config"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	owner := flag.String("owner", "", "owner ID the token is issued for")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenManager(cfg.Server.JWTSecret, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create token manager: %v\n", err)
		os.Exit(1)
	}

	token, err := tokens.GenerateOwnerToken(*owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
