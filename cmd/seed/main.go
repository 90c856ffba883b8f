package main

import (
	"os"
	"time"

	"ridealong/internal/config"
	"ridealong/internal/database"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	dbConfig, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := database.Open(dbConfig, log.Logger, false)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer database.Close(db)

	log.Info().Msg("start seeding")
	res, err := database.Seed(db, time.Now())
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	log.Info().
		Str("admin", res.Admin.ID).
		Str("volunteer", res.Volunteer.ID).
		Str("client", res.Client.ID).
		Str("ride", res.Ride.ID).
		Msg("seeding finished")
}
