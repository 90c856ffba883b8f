package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ridealong/internal/models"
	"ridealong/internal/services"
	"ridealong/internal/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errHasRides = errors.New("user still has rides")

// normalizeEmail lowercases and trims an email; "" becomes nil
func normalizeEmail(email string) *string {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}
	return &email
}

// userUpdates turns the non-empty fields of req into column updates
func userUpdates(req models.UserUpdateRequest) map[string]interface{} {
	updates := map[string]interface{}{}
	if name := strings.TrimSpace(req.Name); name != "" {
		updates["name"] = name
	}
	if email := normalizeEmail(req.Email); email != nil {
		updates["email"] = *email
	}
	if req.Phone != "" {
		updates["phone"] = utils.NormalizePhone(req.Phone)
	}
	return updates
}

// findOrCreateUser returns the user with req's email, creating it with role
// when there is none. Users without an email are always created.
func findOrCreateUser(tx *gorm.DB, req models.UserRequest, role models.Role) (*models.User, bool, error) {
	email := normalizeEmail(req.Email)

	if email != nil {
		var existing models.User
		err := tx.Where("email = ?", *email).First(&existing).Error
		if err == nil {
			return &existing, false, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, err
		}
	}

	user := models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: email,
		Phone: utils.NormalizePhone(req.Phone),
		Role:  role,
	}
	if err := tx.Create(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, true, nil
}

// GetUser returns a user by id
func (h *Handler) GetUser(c *gin.Context) {
	var user models.User
	if err := h.db.WithContext(c.Request.Context()).First(&user, "id = ?", c.Param("id")).Error; err != nil {
		handleDBError(c, err, "User not found", "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetUserByEmail returns a user by email address
func (h *Handler) GetUserByEmail(c *gin.Context) {
	email := normalizeEmail(c.Param("email"))
	if email == nil {
		handleError(c, http.StatusBadRequest, "Email is required", errors.New("empty email"))
		return
	}

	var user models.User
	if err := h.db.WithContext(c.Request.Context()).Where("email = ?", *email).First(&user).Error; err != nil {
		handleDBError(c, err, "User not found", "Failed to retrieve user")
		return
	}
	c.JSON(http.StatusOK, user)
}

// ListAdmins returns every admin ordered by name
func (h *Handler) ListAdmins(c *gin.Context) {
	var admins []models.User
	if err := h.db.WithContext(c.Request.Context()).
		Where("role = ?", models.RoleAdmin).
		Order("name").
		Find(&admins).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve admins", err)
		return
	}
	c.JSON(http.StatusOK, admins)
}

// CreateAdmin creates an admin, or promotes the existing user with the same email
func (h *Handler) CreateAdmin(c *gin.Context) {
	var req models.UserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}
	if normalizeEmail(req.Email) == nil {
		handleError(c, http.StatusBadRequest, "Email is required", errors.New("admin without email"))
		return
	}

	var (
		user    *models.User
		created bool
	)
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var err error
		user, created, err = findOrCreateUser(tx, req, models.RoleAdmin)
		if err != nil {
			return err
		}
		if !created && user.Role != models.RoleAdmin {
			user.Role = models.RoleAdmin
			return tx.Model(user).Update("role", models.RoleAdmin).Error
		}
		return nil
	})
	if err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to create admin", err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, user)
}

// UpdateAdmin edits an admin's name, email or phone
func (h *Handler) UpdateAdmin(c *gin.Context) {
	var req models.UserUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	db := h.db.WithContext(c.Request.Context())

	var user models.User
	if err := db.Where("id = ? AND role = ?", c.Param("id"), models.RoleAdmin).First(&user).Error; err != nil {
		handleDBError(c, err, "Admin not found", "Failed to retrieve admin")
		return
	}

	if updates := userUpdates(req); len(updates) > 0 {
		if err := db.Model(&user).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				handleError(c, http.StatusConflict, "Email already in use", err)
				return
			}
			handleError(c, http.StatusInternalServerError, "Failed to update admin", err)
			return
		}
	}

	c.JSON(http.StatusOK, user)
}

// DeleteAdmin removes a user together with its profiles, reminder configs
// and sessions. An admin cannot delete themself, and users with rides are kept.
func (h *Handler) DeleteAdmin(c *gin.Context) {
	id := c.Param("id")
	if id == currentUser(c).ID {
		handleError(c, http.StatusBadRequest, "You cannot delete your own account", errors.New("self delete"))
		return
	}

	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, "id = ?", id).Error; err != nil {
			return err
		}
		return deleteUser(tx, &user)
	})
	if err != nil {
		if errors.Is(err, errHasRides) {
			handleError(c, http.StatusConflict, "User has rides and cannot be deleted", err)
			return
		}
		handleDBError(c, err, "User not found", "Failed to delete user")
		return
	}

	c.Status(http.StatusNoContent)
}

func deleteUser(tx *gorm.DB, user *models.User) error {
	var volunteer models.Volunteer
	err := tx.Where("user_id = ?", user.ID).First(&volunteer).Error
	switch {
	case err == nil:
		var rides int64
		if err := tx.Model(&models.Ride{}).Where("volunteer_id = ?", volunteer.ID).Count(&rides).Error; err != nil {
			return err
		}
		if rides > 0 {
			return fmt.Errorf("volunteer %s: %w", volunteer.ID, errHasRides)
		}
		if err := tx.Where("volunteer_id = ?", volunteer.ID).Delete(&models.ReminderConfig{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&volunteer).Error; err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	var client models.Client
	err = tx.Where("user_id = ?", user.ID).First(&client).Error
	switch {
	case err == nil:
		var rides int64
		if err := tx.Model(&models.Ride{}).Where("client_id = ?", client.ID).Count(&rides).Error; err != nil {
			return err
		}
		if rides > 0 {
			return fmt.Errorf("client %s: %w", client.ID, errHasRides)
		}
		if err := tx.Delete(&client).Error; err != nil {
			return err
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return err
	}

	if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
		return err
	}
	return tx.Delete(user).Error
}

// UploadAvatar stores the signed-in user's profile picture
func (h *Handler) UploadAvatar(c *gin.Context) {
	if h.avatars == nil {
		handleError(c, http.StatusServiceUnavailable, "Image uploads are not configured", services.ErrImageServiceDisabled)
		return
	}

	header, err := c.FormFile("avatar")
	if err != nil {
		handleError(c, http.StatusBadRequest, "Missing avatar file", err)
		return
	}
	if header.Size > services.MaxAvatarSize {
		handleError(c, http.StatusBadRequest, "Avatar is too large", services.ErrInvalidImage)
		return
	}

	file, err := header.Open()
	if err != nil {
		handleError(c, http.StatusBadRequest, "Failed to read avatar", err)
		return
	}
	defer file.Close()

	if err := services.ValidateAvatar(file, header.Filename); err != nil {
		if errors.Is(err, services.ErrInvalidImage) {
			handleError(c, http.StatusBadRequest, err.Error(), err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to read avatar", err)
		return
	}

	user := currentUser(c)
	url, err := h.avatars.UploadAvatar(c.Request.Context(), file, header.Filename, user.ID)
	if err != nil {
		handleError(c, http.StatusBadGateway, "Failed to upload avatar", err)
		return
	}

	if err := h.db.WithContext(c.Request.Context()).Model(user).Update("avatar_url", url).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to save avatar", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"avatar_url": url})
}
