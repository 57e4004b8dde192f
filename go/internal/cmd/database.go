package main

import (
	"context"
	"database/sql"
	"time"

	"github.com/mcdev12/fantabid/go/internal/dbconfig"
	"github.com/rs/zerolog/log"
)

func setupDatabase() (*sql.DB, error) {
	dbConfig := dbconfig.NewConfigFromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	database, err := dbConfig.Open(ctx)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("dsn", dbConfig.Redacted()).
		Int("max_open_conns", dbConfig.MaxOpenConns).
		Dur("conn_max_lifetime", dbConfig.ConnMaxLifetime).
		Msg("connected to database")
	return database, nil
}
