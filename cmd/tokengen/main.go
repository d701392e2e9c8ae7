// tokengen mints development access tokens for exercising the AAA API
// locally. The claims mirror what client.AuthUserMiddleware expects:
// sub/user_id plus extra_claims with email and roles.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func main() {
	secret := flag.String("secret", "very-secure-jwt-secret", "Secret key for signing the token")
	issuer := flag.String("issuer", "aaa-server", "Issuer of the token")
	subject := flag.String("subject", "", "Subject of the token (user UUID, random when empty)")
	email := flag.String("email", "dev@example.org", "Email claim")
	roles := flag.String("roles", "provider", "Comma-separated roles claim")
	expiry := flag.Duration("expiry", 30*time.Minute, "Token expiry duration (e.g., 30m, 1h, 24h)")
	debug := flag.Bool("debug", false, "Print the claims alongside the token")
	flag.Parse()

	sub := *subject
	if sub == "" {
		sub = uuid.New().String()
	} else if _, err := uuid.Parse(sub); err != nil {
		fmt.Fprintf(os.Stderr, "Error: subject must be a UUID: %v\n", err)
		os.Exit(1)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":     *issuer,
		"sub":     sub,
		"user_id": sub,
		"iat":     now.Unix(),
		"exp":     now.Add(*expiry).Unix(),
		"extra_claims": map[string]interface{}{
			"email": *email,
			"roles": strings.Split(*roles, ","),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenStr, err := token.SignedString([]byte(*secret))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to sign token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(tokenStr)

	if *debug {
		claimsJSON, _ := json.MarshalIndent(claims, "", "  ")
		fmt.Fprintf(os.Stderr, "claims:\n%s\n", claimsJSON)
	}
}
