package main

import (
	"context"
	"flag"
	"os"
	"time"

	"ridealong/internal/config"
	"ridealong/internal/database"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	before := flag.String("before", "", "shift rides created before this RFC 3339 time (required)")
	offset := flag.Duration("offset", 6*time.Hour, "amount added to each scheduled time")
	dryRun := flag.Bool("dry-run", false, "print the changes without writing them")
	flag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cutoff, err := time.Parse(time.RFC3339, *before)
	if err != nil {
		log.Fatal().Err(err).Msg("-before must be an RFC 3339 time, e.g. 2026-02-07T00:00:00Z")
	}

	dbConfig, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Open(dbConfig, log.Logger, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	shifted, err := database.ShiftScheduledTimes(context.Background(), db, cutoff, *offset, *dryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to shift rides")
	}

	for _, s := range shifted {
		log.Info().Str("ride", s.ID).Time("from", s.From).Time("to", s.To).Msg("shifted ride")
	}
	log.Info().Int("rides", len(shifted)).Bool("dry_run", *dryRun).Msg("finished")
}
