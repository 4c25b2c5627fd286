// Command token mints a signed identity token for a chat user.
//
// Usage:
//
//	token [-ttl 24h] <username>
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/room-relay/backend/internal/auth"
	"github.com/room-relay/backend/internal/config"
)

func main() {
	cfg := config.FromEnv()

	ttl := flag.Duration("ttl", cfg.TokenDuration, "token lifetime")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [-ttl 24h] <username>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	manager := auth.NewJWTManager(auth.JWTConfig{
		SecretKey:     cfg.JWTSecret,
		TokenDuration: *ttl,
		Issuer:        cfg.JWTIssuer,
	})

	token, err := manager.GenerateToken(flag.Arg(0))
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}
	fmt.Println(token)
}
