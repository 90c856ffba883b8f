package handlers

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"ridealong/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// TopRidersLimit is the number of clients returned by TopRiders
const TopRidersLimit = 5

// TopRider is a client ranked by completed rides
type TopRider struct {
	ClientID       string `json:"clientId"`
	Name           string `json:"name"`
	CompletedRides int64  `json:"completedRides"`
}

// parseDateParam accepts RFC 3339 timestamps or plain dates, read in loc
func parseDateParam(value string, loc *time.Location) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, use YYYY-MM-DD or RFC 3339", value)
	}
	return &t, nil
}

// dateRange reads ?startDate and ?endDate
func (h *Handler) dateRange(c *gin.Context) (start, end *time.Time, ok bool) {
	start, err := parseDateParam(c.Query("startDate"), h.loc)
	if err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return nil, nil, false
	}
	end, err = parseDateParam(c.Query("endDate"), h.loc)
	if err != nil {
		handleError(c, http.StatusBadRequest, err.Error(), err)
		return nil, nil, false
	}
	return start, end, true
}

func scheduledBetween(db *gorm.DB, start, end *time.Time) *gorm.DB {
	if start != nil {
		db = db.Where("scheduled_time >= ?", start.UTC())
	}
	if end != nil {
		db = db.Where("scheduled_time <= ?", end.UTC())
	}
	return db
}

// CompletionRate reports the share of rides in the range that were completed
func (h *Handler) CompletionRate(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var total, completed int64
	if err := scheduledBetween(db.Model(&models.Ride{}), start, end).Count(&total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to count rides", err)
		return
	}
	if total > 0 {
		if err := scheduledBetween(db.Model(&models.Ride{}), start, end).
			Where("status = ?", models.RideCompleted).
			Count(&completed).Error; err != nil {
			handleError(c, http.StatusInternalServerError, "Failed to count rides", err)
			return
		}
	}

	percentage := 0
	if total > 0 {
		percentage = int(math.Round(float64(completed) / float64(total) * 100))
	}
	c.JSON(http.StatusOK, gin.H{
		"percentage": percentage,
		"total":      total,
		"completed":  completed,
	})
}

// Hours sums the recorded ride time of completed rides in the range
func (h *Handler) Hours(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}

	var total float64
	if err := scheduledBetween(h.db.WithContext(c.Request.Context()).Model(&models.Ride{}), start, end).
		Where("status = ?", models.RideCompleted).
		Select("COALESCE(SUM(total_ride_time), 0)").
		Scan(&total).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to sum ride hours", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalHours": total})
}

// TopRiders ranks clients by completed rides, year to date unless a range is given
func (h *Handler) TopRiders(c *gin.Context) {
	start, end, ok := h.dateRange(c)
	if !ok {
		return
	}

	var from, until time.Time
	if start == nil && end == nil {
		year := h.now().In(h.loc).Year()
		from = time.Date(year, time.January, 1, 0, 0, 0, 0, h.loc)
		until = time.Date(year+1, time.January, 1, 0, 0, 0, 0, h.loc)
	} else {
		from = time.Unix(0, 0)
		until = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)
		if start != nil {
			from = *start
		}
		if end != nil {
			until = *end
		}
	}

	riders := []TopRider{}
	if err := h.db.WithContext(c.Request.Context()).
		Model(&models.Ride{}).
		Select(`ride.client_id AS client_id, "user".name AS name, COUNT(ride.id) AS completed_rides`).
		Joins("JOIN client ON client.id = ride.client_id").
		Joins(`JOIN "user" ON "user".id = client.user_id`).
		Where("ride.status = ?", models.RideCompleted).
		Where("ride.scheduled_time >= ? AND ride.scheduled_time < ?", from.UTC(), until.UTC()).
		Group(`ride.client_id, "user".name`).
		Order("completed_rides DESC").
		Limit(TopRidersLimit).
		Scan(&riders).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to rank riders", err)
		return
	}
	c.JSON(http.StatusOK, riders)
}
