package dbschema

import (
	_ "embed"
)

// SQL is the idempotent schema for the auction engine.
//
//go:embed schema.sql
var SQL string
