package handlers

import (
	"errors"
	"net/http"
	"time"

	"ridealong/internal/auth"
	"ridealong/internal/models"
	"ridealong/internal/services"
	"ridealong/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Deps are the collaborators shared by every handler. Estimator, Avatars,
// Google and Notifier may be nil; the routes that need them then report the
// feature as unavailable.
type Deps struct {
	DB            *gorm.DB
	Location      *time.Location
	Mailer        services.Sender
	Notifier      *services.NotificationQueue
	Estimator     services.RouteEstimator
	Avatars       services.AvatarUploader
	Google        *auth.GoogleProvider
	SessionSecret string
	Logger        zerolog.Logger
}

// Handler serves the HTTP API
type Handler struct {
	db         *gorm.DB
	loc        *time.Location
	mailer     services.Sender
	notifier   *services.NotificationQueue
	estimator  services.RouteEstimator
	avatars    services.AvatarUploader
	google     *auth.GoogleProvider
	secret     string
	lg         zerolog.Logger
	otpLimiter *utils.RateLimiter
	// verifyLimiter bounds code guesses per IP across challenges
	verifyLimiter *utils.RateLimiter
	now           func() time.Time
}

// New builds a Handler from its dependencies
func New(d Deps) *Handler {
	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		db:            d.DB,
		loc:           loc,
		mailer:        d.Mailer,
		notifier:      d.Notifier,
		estimator:     d.Estimator,
		avatars:       d.Avatars,
		google:        d.Google,
		secret:        d.SessionSecret,
		lg:            d.Logger.With().Str("component", "api").Logger(),
		otpLimiter:    utils.NewRateLimiter(5, 3),
		verifyLimiter: utils.NewRateLimiter(20, 10),
		now:           time.Now,
	}
}

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, status int, message string, err error) {
	event := log.Debug()
	if status >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(err).Str("path", c.FullPath()).Int("status", status).Msg(message)
	c.JSON(status, gin.H{"error": message})
}

// handleDBError maps gorm.ErrRecordNotFound to 404 and anything else to 500
func handleDBError(c *gin.Context, err error, notFound, failed string) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		handleError(c, http.StatusNotFound, notFound, err)
		return
	}
	handleError(c, http.StatusInternalServerError, failed, err)
}

// currentUser returns the signed-in user; AuthMiddleware guarantees one exists
func currentUser(c *gin.Context) *models.User {
	user, _ := auth.CurrentUser(c)
	return user
}

// notify queues an email to the client of ride. Queue errors are logged, never surfaced.
func (h *Handler) notify(ride *models.Ride, kind string, msg services.Message) {
	if h.notifier == nil {
		return
	}
	to := ride.Client.User.EmailAddress()
	if to == "" {
		return
	}
	err := h.notifier.Enqueue(services.Notification{
		To:      to,
		Kind:    kind,
		RideID:  ride.ID,
		Message: msg,
	})
	if err != nil {
		h.lg.Warn().Err(err).Str("kind", kind).Str("ride_id", ride.ID).Msg("failed to queue notification")
	}
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Welcome to Ridealong!")
}

// Health pings the database
func (h *Handler) Health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		handleError(c, http.StatusServiceUnavailable, "database unavailable", err)
		return
	}
	c.String(http.StatusOK, "OK")
}
