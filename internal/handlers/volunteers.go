package handlers

import (
	"errors"
	"net/http"

	"ridealong/internal/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errAlreadyVolunteer = errors.New("user is already a volunteer")

func (h *Handler) volunteerQuery(c *gin.Context) *gorm.DB {
	return h.db.WithContext(c.Request.Context()).
		Preload("User").
		Preload("Reminders", func(db *gorm.DB) *gorm.DB {
			return db.Order("minutes_before DESC")
		})
}

// ListVolunteers returns every volunteer with user and reminder configs
func (h *Handler) ListVolunteers(c *gin.Context) {
	var volunteers []models.Volunteer
	if err := h.volunteerQuery(c).Order("created_at").Find(&volunteers).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve volunteers", err)
		return
	}
	c.JSON(http.StatusOK, volunteers)
}

// CreateVolunteer registers a volunteer, reusing the user with the same
// email. A client keeps its client profile and becomes a VOLUNTEER.
func (h *Handler) CreateVolunteer(c *gin.Context) {
	var req models.CreateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	var volunteer models.Volunteer
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		user, _, err := findOrCreateUser(tx, models.UserRequest{
			Name: req.Name, Email: req.Email, Phone: req.Phone,
		}, models.RoleVolunteer)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Volunteer{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadyVolunteer
		}

		if user.Role == models.RoleClient {
			if err := tx.Model(user).Update("role", models.RoleVolunteer).Error; err != nil {
				return err
			}
		}

		volunteer = models.Volunteer{UserID: user.ID, Status: req.Status}
		if err := tx.Create(&volunteer).Error; err != nil {
			return err
		}
		volunteer.User = *user
		volunteer.Reminders = []models.ReminderConfig{}
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyVolunteer) {
			handleError(c, http.StatusConflict, "User is already a volunteer", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to create volunteer", err)
		return
	}

	c.JSON(http.StatusCreated, volunteer)
}

// UpdateVolunteer edits a volunteer's user fields and status
func (h *Handler) UpdateVolunteer(c *gin.Context) {
	var req models.UpdateVolunteerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	id := c.Param("id")
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var volunteer models.Volunteer
		if err := tx.First(&volunteer, "id = ?", id).Error; err != nil {
			return err
		}
		if updates := userUpdates(req.UserUpdateRequest); len(updates) > 0 {
			if err := tx.Model(&models.User{ID: volunteer.UserID}).Updates(updates).Error; err != nil {
				return err
			}
		}
		if req.Status != "" {
			return tx.Model(&volunteer).Update("status", req.Status).Error
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			handleError(c, http.StatusConflict, "Email already in use", err)
			return
		}
		handleDBError(c, err, "Volunteer not found", "Failed to update volunteer")
		return
	}

	var volunteer models.Volunteer
	if err := h.volunteerQuery(c).First(&volunteer, "id = ?", id).Error; err != nil {
		handleDBError(c, err, "Volunteer not found", "Failed to retrieve volunteer")
		return
	}
	c.JSON(http.StatusOK, volunteer)
}

// currentVolunteer loads the signed-in user's volunteer profile
func (h *Handler) currentVolunteer(c *gin.Context) (*models.Volunteer, bool) {
	var volunteer models.Volunteer
	if err := h.volunteerQuery(c).Where("user_id = ?", currentUser(c).ID).First(&volunteer).Error; err != nil {
		handleDBError(c, err, "Volunteer profile not found", "Failed to retrieve volunteer")
		return nil, false
	}
	return &volunteer, true
}

// GetMyVolunteer returns the signed-in user's volunteer profile
func (h *Handler) GetMyVolunteer(c *gin.Context) {
	volunteer, ok := h.currentVolunteer(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, volunteer)
}

// UpdateMyStatus sets the signed-in volunteer's availability
func (h *Handler) UpdateMyStatus(c *gin.Context) {
	var req models.VolunteerStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	volunteer, ok := h.currentVolunteer(c)
	if !ok {
		return
	}
	if err := h.db.WithContext(c.Request.Context()).Model(volunteer).Update("status", req.Status).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update status", err)
		return
	}
	c.JSON(http.StatusOK, volunteer)
}

// ReplaceMyReminders swaps the signed-in volunteer's reminder configs for
// the submitted set. A config that survives with the same lead time and
// channel keeps its id, so reminders already sent for it are not repeated.
func (h *Handler) ReplaceMyReminders(c *gin.Context) {
	var req []models.ReminderConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}
	for _, r := range req {
		if r.MinutesBefore <= 0 {
			handleError(c, http.StatusBadRequest, "minutesBefore must be a positive integer", errors.New("invalid lead time"))
			return
		}
	}

	volunteer, ok := h.currentVolunteer(c)
	if !ok {
		return
	}

	reminders, err := ReplaceReminders(h.db.WithContext(c.Request.Context()), volunteer, req)
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to update reminders", err)
		return
	}
	c.JSON(http.StatusOK, reminders)
}

// ReplaceReminders deletes every reminder config of volunteer and creates
// the requested ones in a single transaction. Duplicate entries collapse.
func ReplaceReminders(db *gorm.DB, volunteer *models.Volunteer, req []models.ReminderConfigRequest) ([]models.ReminderConfig, error) {
	type key struct {
		minutes int
		channel string
	}
	previous := make(map[key]string, len(volunteer.Reminders))
	for _, r := range volunteer.Reminders {
		previous[key{r.MinutesBefore, r.Channel}] = r.ID
	}

	seen := make(map[key]bool, len(req))
	reminders := make([]models.ReminderConfig, 0, len(req))
	for _, r := range req {
		channel := r.Type
		if channel == "" {
			channel = models.ChannelEmail
		}
		k := key{r.MinutesBefore, channel}
		if seen[k] {
			continue
		}
		seen[k] = true
		reminders = append(reminders, models.ReminderConfig{
			ID:            previous[k],
			VolunteerID:   volunteer.ID,
			MinutesBefore: r.MinutesBefore,
			Channel:       channel,
		})
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("volunteer_id = ?", volunteer.ID).Delete(&models.ReminderConfig{}).Error; err != nil {
			return err
		}
		if len(reminders) == 0 {
			return nil
		}
		return tx.Create(&reminders).Error
	})
	if err != nil {
		return nil, err
	}
	return reminders, nil
}
