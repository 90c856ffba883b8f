package models

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Address is deduplicated by its street/city/state/zip tuple
type Address struct {
	ID     string `gorm:"primaryKey;size:36" json:"id"`
	Street string `gorm:"size:255;not null;uniqueIndex:idx_address_key,priority:1" json:"street" binding:"required"`
	City   string `gorm:"size:120;not null;uniqueIndex:idx_address_key,priority:2" json:"city" binding:"required"`
	State  string `gorm:"size:60;not null;uniqueIndex:idx_address_key,priority:3" json:"state" binding:"required"`
	Zip    string `gorm:"size:20;not null;uniqueIndex:idx_address_key,priority:4" json:"zip" binding:"required"`
}

// BeforeCreate assigns the primary key
func (a *Address) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}

// Normalize trims surrounding whitespace from every component
func (a *Address) Normalize() {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
}

// Label renders the address on one line, e.g. "12 Main St, Austin, TX 78701"
func (a Address) Label() string {
	return fmt.Sprintf("%s, %s, %s %s", a.Street, a.City, a.State, a.Zip)
}
