package handlers

import (
	"errors"
	"net/http"

	"ridealong/internal/models"
	"ridealong/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

var errAlreadyClient = errors.New("user is already a client")

// ListClients returns every client with its user and home address
func (h *Handler) ListClients(c *gin.Context) {
	var clients []models.Client
	if err := h.db.WithContext(c.Request.Context()).
		Joins("User").
		Preload("HomeAddress").
		Order(`"User"."name"`).
		Find(&clients).Error; err != nil {
		handleError(c, http.StatusInternalServerError, "Failed to retrieve clients", err)
		return
	}
	c.JSON(http.StatusOK, clients)
}

// CreateClient registers a client, reusing the user with the same email
func (h *Handler) CreateClient(c *gin.Context) {
	var req models.CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	var client models.Client
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		user, _, err := findOrCreateUser(tx, req.UserRequest, models.RoleClient)
		if err != nil {
			return err
		}

		var count int64
		if err := tx.Model(&models.Client{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errAlreadyClient
		}

		home, err := services.FindOrCreateAddress(tx, models.Address{
			Street: req.Street, City: req.City, State: req.State, Zip: req.Zip,
		})
		if err != nil {
			return err
		}

		client = models.Client{UserID: user.ID, HomeAddressID: &home.ID}
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		client.User = *user
		client.HomeAddress = home
		return nil
	})
	if err != nil {
		if errors.Is(err, errAlreadyClient) {
			handleError(c, http.StatusConflict, "User is already a client", err)
			return
		}
		handleError(c, http.StatusInternalServerError, "Failed to create client", err)
		return
	}

	c.JSON(http.StatusCreated, client)
}

// UpdateClient edits the client's user and home address in one transaction
func (h *Handler) UpdateClient(c *gin.Context) {
	var req models.UpdateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handleError(c, http.StatusBadRequest, "Invalid input", err)
		return
	}

	var client models.Client
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").Preload("HomeAddress").First(&client, "id = ?", c.Param("id")).Error; err != nil {
			return err
		}

		if updates := userUpdates(req.UserUpdateRequest); len(updates) > 0 {
			if err := tx.Model(&client.User).Updates(updates).Error; err != nil {
				return err
			}
		}

		if addr, ok := req.Address(); ok {
			home, err := services.FindOrCreateAddress(tx, addr)
			if err != nil {
				return err
			}
			if err := tx.Model(&client).Update("home_address_id", home.ID).Error; err != nil {
				return err
			}
			client.HomeAddressID = &home.ID
			client.HomeAddress = home
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			handleError(c, http.StatusConflict, "Email already in use", err)
			return
		}
		handleDBError(c, err, "Client not found", "Failed to update client")
		return
	}

	c.JSON(http.StatusOK, client)
}
