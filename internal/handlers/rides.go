package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ridealong/internal/models"
	"ridealong/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errRideState    = errors.New("ride is not in the required state")
	errNotAssigned  = errors.New("volunteer is not assigned to this ride")
	errNotVolunteer = errors.New("user has no volunteer profile")
)

func (h *Handler) rideQuery(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c.Request.Context()).
		Preload("Client.User").
		Preload("Volunteer.User")
}

func (h *Handler) loadRide(c *gin.Context, id string) (*models.Ride, error) {
	var ride models.Ride
	if err := h.rideQuery(c).First(&ride, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ride, nil
}

// ListRides returns rides, newest scheduled first. Users without a
// volunteer or admin role only see their own rides.
func (h *Handler) ListRides(c *gin.Context) {
	user := currentUser(c)
	query := h.rideQuery(c).Order("scheduled_time DESC")

	if status := strings.ToUpper(c.Query("status")); status != "" {
		query = query.Where("status = ?", status)
	}
	if user.Role == models.RoleClient {
		query = query.Where("client_id IN (?)",
			h.db.Model(&models.Client{}).Select("id").Where("user_id = ?", user.ID))
	}

	var rides []models.Ride
	if err := query.Find(&rides).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve rides", err)
		return
	}
	c.JSON(http.StatusOK, rides)
}

// GetRide returns one ride with its client and volunteer
func (h *Handler) GetRide(c *gin.Context) {
	ride, err := h.loadRide(c, c.Param("id"))
	if err != nil {
		handleDBError(c, err, "Ride not found", "Failed to retrieve ride")
		return
	}
	c.JSON(http.StatusOK, ride)
}

// CreateRide books a ride. Admins may book for any client, everyone else
// only for their own client profile.
func (h *Handler) CreateRide(c *gin.Context) {
	var req models.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}
	if !req.ScheduledTime.After(h.now()) {
		handleError(c, http.StatusBadRequest, "Scheduled time must be in the future", fmt.Errorf("scheduled time %v is in the past", req.ScheduledTime))
		return
	}

	user := currentUser(c)
	db := h.db.WithContext(c.Request.Context())

	clientID := req.ClientID
	if !user.IsAdmin() {
		var own models.Client
		if err := db.Where("user_id = ?", user.ID).First(&own).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				handleError(c, http.StatusForbidden, "Only clients can book rides", err)
				return
			}
			handleError(c, http.StatusInternalServerError, "Failed to retrieve client", err)
			return
		}
		if clientID != "" && clientID != own.ID {
			handleError(c, http.StatusForbidden, "You can only book rides for yourself", errors.New("client mismatch"))
			return
		}
		clientID = own.ID
	}
	if clientID == "" {
		handleError(c, http.StatusBadRequest, "clientId is required", errors.New("missing client id"))
		return
	}

	var rideID string
	err := db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Client{}).Where("id = ?", clientID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}

		pickup, err := services.FindOrCreateAddress(tx, req.Pickup)
		if err != nil {
			return err
		}
		dropoff, err := services.FindOrCreateAddress(tx, req.Dropoff)
		if err != nil {
			return err
		}

		ride := models.Ride{
			ClientID:         clientID,
			Status:           models.RideCreated,
			ScheduledTime:    req.ScheduledTime,
			PickupDisplay:    pickup.Label(),
			DropoffDisplay:   dropoff.Label(),
			PickupAddressID:  &pickup.ID,
			DropoffAddressID: &dropoff.ID,
		}
		if notes := strings.TrimSpace(req.Notes); notes != "" {
			ride.Notes = &notes
		}
		if err := tx.Omit(clause.Associations).Create(&ride).Error; err != nil {
			return err
		}
		rideID = ride.ID
		return nil
	})
	if err != nil {
		handleDBError(c, err, "Client not found", "Failed to create ride")
		return
	}

	ride, err := h.loadRide(c, rideID)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve ride", err)
		return
	}
	c.JSON(http.StatusCreated, ride)
}

// UpdateRide edits the schedule, notes or addresses of a ride
func (h *Handler) UpdateRide(c *gin.Context) {
	var req models.UpdateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	id := c.Param("id")
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.Select("id", "status").First(&ride, "id = ?", id).Error; err != nil {
			return err
		}
		if ride.Status == models.RideCompleted {
			return errRideState
		}

		// Only edited columns are written so a concurrent signup or unsignup
		// keeps its status and volunteer.
		updates := map[string]interface{}{}
		if req.ScheduledTime != nil {
			updates["scheduled_time"] = req.ScheduledTime.UTC()
		}
		if req.Notes != nil {
			updates["notes"] = strings.TrimSpace(*req.Notes)
		}
		if req.Pickup != nil {
			pickup, err := services.FindOrCreateAddress(tx, *req.Pickup)
			if err != nil {
				return err
			}
			updates["pickup_address_id"] = pickup.ID
			updates["pickup_display"] = pickup.Label()
			updates["estimate"] = nil
		}
		if req.Dropoff != nil {
			dropoff, err := services.FindOrCreateAddress(tx, *req.Dropoff)
			if err != nil {
				return err
			}
			updates["dropoff_address_id"] = dropoff.ID
			updates["dropoff_display"] = dropoff.Label()
			updates["estimate"] = nil
		}
		if len(updates) == 0 {
			return nil
		}

		result := tx.Model(&models.Ride{}).
			Where("id = ? AND status <> ?", id, models.RideCompleted).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errRideState
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errRideState) {
			handleError(c, http.StatusConflict, "Completed rides cannot be edited", err)
			return
		}
		handleDBError(c, err, "Ride not found", "Failed to update ride")
		return
	}

	ride, err := h.loadRide(c, id)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve ride", err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

// transitionRide applies updates only while the ride is still in from.
// Volunteer and status always change together, so the invariant holds.
func transitionRide(tx *gorm.DB, id string, from models.RideStatus, updates map[string]interface{}) error {
	result := tx.Model(&models.Ride{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.Ride{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return errRideState
	}
	return nil
}

// findVolunteer returns the volunteer profile of user
func findVolunteer(tx *gorm.DB, user *models.User) (*models.Volunteer, error) {
	var volunteer models.Volunteer
	if err := tx.Preload("User").Where("user_id = ?", user.ID).First(&volunteer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotVolunteer
		}
		return nil, err
	}
	return &volunteer, nil
}

func rideTransitionError(c *gin.Context, err error, stateMsg string) {
	switch {
	case errors.Is(err, errNotVolunteer):
		handleError(c, http.StatusForbidden, "You must be a registered volunteer", err)
	case errors.Is(err, errNotAssigned):
		handleError(c, http.StatusForbidden, "You are not assigned to this ride", err)
	case errors.Is(err, errRideState):
		handleError(c, http.StatusConflict, stateMsg, err)
	default:
		handleDBError(c, err, "Ride not found", "Failed to update ride")
	}
}

// SignupForRide assigns the signed-in volunteer to an open ride and tells the client
func (h *Handler) SignupForRide(c *gin.Context) {
	id := c.Param("id")
	db := h.db.WithContext(c.Request.Context())

	volunteer, err := findVolunteer(db, currentUser(c))
	if err != nil {
		rideTransitionError(c, err, "")
		return
	}

	err = transitionRide(db, id, models.RideCreated, map[string]interface{}{
		"volunteer_id": volunteer.ID,
		"status":       models.RideAssigned,
	})
	if err != nil {
		rideTransitionError(c, err, "Ride is not available for signup")
		return
	}

	ride, err := h.loadRide(c, id)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve ride", err)
		return
	}
	h.notify(ride, "ride_assigned", services.RideAssignedMessage(ride, volunteer, h.loc))

	c.JSON(http.StatusOK, ride)
}

// UnsignupFromRide releases the signed-in volunteer's ride back to CREATED
func (h *Handler) UnsignupFromRide(c *gin.Context) {
	id := c.Param("id")
	db := h.db.WithContext(c.Request.Context())

	volunteer, err := findVolunteer(db, currentUser(c))
	if err != nil {
		rideTransitionError(c, err, "")
		return
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, "id = ?", id).Error; err != nil {
			return err
		}
		if !ride.AssignedTo(volunteer.ID) {
			return errNotAssigned
		}
		return transitionRide(tx, id, models.RideAssigned, map[string]interface{}{
			"volunteer_id": nil,
			"status":       models.RideCreated,
		})
	})
	if err != nil {
		rideTransitionError(c, err, "Ride cannot be released in its current state")
		return
	}

	ride, err := h.loadRide(c, id)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve ride", err)
		return
	}
	h.notify(ride, "ride_unassigned", services.RideUnassignedMessage(ride, h.loc))

	c.JSON(http.StatusOK, ride)
}

// CompleteRide closes an assigned ride and records its duration in hours.
// Only the assigned volunteer or an admin may complete a ride.
func (h *Handler) CompleteRide(c *gin.Context) {
	var req models.CompleteRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	id := c.Param("id")
	user := currentUser(c)

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var ride models.Ride
		if err := tx.First(&ride, "id = ?", id).Error; err != nil {
			return err
		}
		if !user.IsAdmin() {
			volunteer, err := findVolunteer(tx, user)
			if err != nil {
				return err
			}
			if !ride.AssignedTo(volunteer.ID) {
				return errNotAssigned
			}
		}
		return transitionRide(tx, id, models.RideAssigned, map[string]interface{}{
			"status":          models.RideCompleted,
			"total_ride_time": req.TotalRideTime,
			"completed_at":    h.now().UTC(),
		})
	})
	if err != nil {
		rideTransitionError(c, err, "Only assigned rides can be completed")
		return
	}

	ride, err := h.loadRide(c, id)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve ride", err)
		return
	}
	c.JSON(http.StatusOK, ride)
}

// EstimateRide returns the driving time and distance between pickup and
// dropoff. Lookup problems are reported in the error field with status 200.
func (h *Handler) EstimateRide(c *gin.Context) {
	var ride models.Ride
	if err := h.db.WithContext(c.Request.Context()).
		Select("id", "pickup_display", "dropoff_display", "estimate").
		First(&ride, "id = ?", c.Param("id")).Error; err != nil {
		handleDBError(c, err, "Ride not found", "Failed to retrieve ride")
		return
	}

	if len(ride.Estimate) > 0 {
		var cached models.RideEstimate
		if err := json.Unmarshal(ride.Estimate, &cached); err == nil {
			c.JSON(http.StatusOK, cached)
			return
		}
	}

	if h.estimator == nil {
		msg := services.ErrNoAPIKey.Error()
		c.JSON(http.StatusOK, models.RideEstimate{Error: &msg})
		return
	}

	estimate, err := h.estimator.Estimate(c.Request.Context(), ride.PickupDisplay, ride.DropoffDisplay)
	if err != nil {
		h.lg.Warn().Err(err).Str("ride_id", ride.ID).Msg("maps lookup failed")
		msg := "Failed to fetch estimate"
		c.JSON(http.StatusOK, models.RideEstimate{Error: &msg})
		return
	}

	if estimate.Error == nil {
		if raw, err := json.Marshal(estimate); err == nil {
			if err := h.db.WithContext(c.Request.Context()).
				Model(&models.Ride{}).
				Where("id = ?", ride.ID).
				UpdateColumn("estimate", datatypes.JSON(raw)).Error; err != nil {
				h.lg.Warn().Err(err).Str("ride_id", ride.ID).Msg("failed to cache estimate")
			}
		}
	}

	c.JSON(http.StatusOK, estimate)
}
