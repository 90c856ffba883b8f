package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Client is the rider profile of a user
type Client struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	UserID        string    `gorm:"size:36;not null;uniqueIndex" json:"user_id"`
	HomeAddressID *string   `gorm:"size:36" json:"home_address_id"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`

	User        User     `gorm:"foreignKey:UserID" json:"user"`
	HomeAddress *Address `gorm:"foreignKey:HomeAddressID" json:"home_address,omitempty"`
}

// BeforeCreate assigns the primary key
func (c *Client) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// CreateClientRequest registers a new client with a home address
type CreateClientRequest struct {
	UserRequest
	Street string `json:"street" binding:"required"`
	City   string `json:"city" binding:"required"`
	State  string `json:"state" binding:"required"`
	Zip    string `json:"zip" binding:"required"`
}

// UpdateClientRequest edits the user and, when all four parts are given, relinks the home address
type UpdateClientRequest struct {
	UserUpdateRequest
	Street string `json:"street"`
	City   string `json:"city"`
	State  string `json:"state"`
	Zip    string `json:"zip"`
}

// Address returns the requested home address and whether every component is present
func (r UpdateClientRequest) Address() (Address, bool) {
	a := Address{Street: r.Street, City: r.City, State: r.State, Zip: r.Zip}
	a.Normalize()
	if a.Street == "" || a.City == "" || a.State == "" || a.Zip == "" {
		return a, false
	}
	return a, true
}
