// Package main provides a CLI for producing admin API credentials. The
// server stores only the bcrypt hash; the plaintext token is shown once.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"abuseguard/pkg/secrets"
)

type tokenOutput struct {
	Token     string            `json:"token,omitempty"`
	TokenHash string            `json:"token_hash"`
	ActorID   string            `json:"actor_id,omitempty"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	adminCmd := flag.NewFlagSet("admin", flag.ExitOnError)
	verifyCmd := flag.NewFlagSet("verify", flag.ExitOnError)

	adminToken := adminCmd.String("token", "", "Existing token to hash. Generated if empty.")
	adminActor := adminCmd.String("actor-id", "", "Operator ID for X-Admin-Actor-ID. Generated if empty.")
	adminJSON := adminCmd.Bool("json", false, "Output as JSON")

	verifyToken := verifyCmd.String("token", "", "Plaintext token")
	verifyHash := verifyCmd.String("hash", "", "bcrypt hash from ADMIN_TOKEN_HASH")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "admin":
		_ = adminCmd.Parse(os.Args[2:])
		generateAdminToken(*adminToken, *adminActor, *adminJSON)
	case "verify":
		_ = verifyCmd.Parse(os.Args[2:])
		verifyAdminToken(*verifyToken, *verifyHash)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Generate admin API credentials for abuseguard

Usage:
  tokengen <command> [flags]

Commands:
  admin     Generate an admin token and its bcrypt hash
  verify    Check a token against a hash

Examples:
  # New random token; put the hash in ADMIN_TOKEN_HASH
  tokengen admin

  # Hash a token you already have
  tokengen admin -token "$ADMIN_TOKEN"

  # Confirm a deployed hash matches
  tokengen verify -token "$ADMIN_TOKEN" -hash "$ADMIN_TOKEN_HASH"

Use "tokengen <command> -h" for more information about a command.`)
}

func generateAdminToken(token, actorID string, jsonOutput bool) {
	if token == "" {
		generated, err := secrets.GenerateToken()
		if err != nil {
			fail("generate token: %v", err)
		}
		token = generated
	}
	if actorID == "" {
		actorID = uuid.NewString()
	}

	hash, err := secrets.Hash(token)
	if err != nil {
		fail("hash token: %v", err)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     token,
			TokenHash: hash,
			ActorID:   actorID,
			Usage: map[string]string{
				"env":    "ADMIN_TOKEN_HASH=" + hash,
				"header": "X-Admin-Token: " + token,
				"actor":  "X-Admin-Actor-ID: " + actorID,
			},
		})
		return
	}

	fmt.Println("Admin API Token")
	fmt.Println("===============")
	fmt.Printf("Token:    %s\n", token)
	fmt.Printf("Hash:     %s\n", hash)
	fmt.Printf("Actor ID: %s\n", actorID)
	fmt.Println()
	fmt.Println("Server:")
	fmt.Printf("  export ADMIN_TOKEN_HASH='%s'\n", hash)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H \"X-Admin-Token: %s\" -H \"X-Admin-Actor-ID: %s\" http://localhost:8080/admin/lockouts/stats\n", token, actorID)
	fmt.Println()
	fmt.Println("The token is not stored anywhere. Keep it somewhere safe.")
}

func verifyAdminToken(token, hash string) {
	if token == "" || hash == "" {
		fail("both -token and -hash are required")
	}
	if err := secrets.Verify(token, hash); err != nil {
		fail("token does not match hash")
	}
	fmt.Println("OK: token matches hash")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
		os.Exit(1)
	}
}
