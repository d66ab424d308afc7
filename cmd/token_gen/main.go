package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"infinite-experiment/dispatchboard/internal/auth"
)

// Issues a dispatcher bearer token signed with JWT_SECRET.
func main() {
	dispatcher := flag.String("dispatcher", "", "dispatcher id (token subject)")
	role := flag.String("role", auth.RoleDispatcher, "DISPATCHER or VIEWER")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}

	token, err := auth.NewTokenSigner([]byte(secret)).Sign(*dispatcher, *role, *ttl)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}

	fmt.Println(token)
}
