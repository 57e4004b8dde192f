package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mcdev12/fantabid/go/internal/dbconfig"
	"github.com/mcdev12/fantabid/go/internal/dbschema"
)

// Applies the embedded schema. Every statement is idempotent, so running it
// against an up-to-date database is a no-op.
func main() {
	ctx := context.Background()

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := cfg.NewPool(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// no arguments, so pgx sends the whole script over the simple protocol
	if _, err := pool.Exec(ctx, dbschema.SQL); err != nil {
		fmt.Fprintf(os.Stderr, "apply schema: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Schema applied to %s\n", cfg.Redacted())
}
