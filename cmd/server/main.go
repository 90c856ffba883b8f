package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ridealong/internal/auth"
	"ridealong/internal/config"
	"ridealong/internal/database"
	"ridealong/internal/handlers"
	"ridealong/internal/models"
	"ridealong/internal/services"
	"ridealong/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := newLogger(cfg.Release)
	log.Logger = lg

	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Open(cfg.Database, lg, !cfg.Release)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer func() {
		if err := database.Close(db); err != nil {
			lg.Error().Err(err).Msg("failed to close database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Senders
	senders := map[string]services.Sender{}
	var mailer services.Sender
	if cfg.SendGridAPIKey != "" && cfg.SendGridFromEmail != "" {
		mailer = services.NewEmailService(cfg.SendGridAPIKey, cfg.SendGridFromEmail, cfg.SendGridFromName)
		senders[models.ChannelEmail] = mailer
	} else {
		lg.Warn().Msg("SendGrid is not configured, emails are disabled")
	}
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" && cfg.TwilioPhoneNumber != "" {
		senders[models.ChannelSMS] = services.NewSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioPhoneNumber)
	} else {
		lg.Info().Msg("Twilio is not configured, sms reminders fall back to email")
	}

	// Notifications for ride state changes
	var notifier *services.NotificationQueue
	if mailer != nil {
		notifier = services.NewNotificationQueue(mailer, 256, cfg.Reminders.SendTimeout, lg)
		notifier.Start()
		go func() {
			for failure := range notifier.Failures() {
				lg.Error().Err(failure.Err).
					Str("kind", failure.Kind).
					Str("ride_id", failure.RideID).
					Str("to", failure.To).
					Msg("failed to deliver notification")
			}
		}()
	}

	// Reminder dispatch
	var worker *services.ReminderWorker
	if mailer != nil {
		dispatcher := services.NewReminderDispatcher(db, senders,
			services.WithLease(services.NewLease(db, "reminders", cfg.Reminders.LeaseTTL)),
			services.WithConcurrency(cfg.Reminders.SendConcurrency),
			services.WithSendTimeout(cfg.Reminders.SendTimeout),
			services.WithLocation(cfg.Location),
			services.WithLogger(lg),
		)
		worker = services.NewReminderWorker(dispatcher, cfg.Reminders.Schedule, cfg.Reminders.RunOnStart, lg)
		if err := worker.Start(ctx); err != nil {
			lg.Fatal().Err(err).Msg("failed to start reminder worker")
		}
	} else {
		lg.Warn().Msg("reminder worker not started, no email sender")
	}

	// Optional integrations
	deps := handlers.Deps{
		DB:            db,
		Location:      cfg.Location,
		Mailer:        mailer,
		Notifier:      notifier,
		Google:        auth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL),
		SessionSecret: cfg.SessionSecret,
		Logger:        lg,
	}
	if maps, err := services.NewMapsService(cfg.GoogleMapsAPIKey); err == nil {
		deps.Estimator = maps
	} else {
		lg.Info().Err(err).Msg("ride estimates disabled")
	}
	if images, err := services.NewImageService(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret); err == nil {
		deps.Avatars = images
	} else {
		lg.Info().Err(err).Msg("avatar uploads disabled")
	}

	router := gin.New()
	router.Use(gin.Recovery(), utils.RequestLogger(lg))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Configure trusted proxies
	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		lg.Warn().Err(err).Msg("failed to set trusted proxies")
	}

	handlers.New(deps).Routes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error().Err(err).Msg("server failed")
			stop()
		}
	}()

	go purgeSessions(ctx, db, lg)

	<-ctx.Done()
	lg.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("server shutdown failed")
	}

	if worker != nil {
		worker.Stop()
	}
	if notifier != nil {
		notifier.Close()
	}
}

func newLogger(release bool) zerolog.Logger {
	if release {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		With().Timestamp().Logger()
}
