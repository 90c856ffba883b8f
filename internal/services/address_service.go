package services

import (
	"fmt"
	"strings"

	"ridealong/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddressSearchLimit caps address search results
const AddressSearchLimit = 20

// AddressMatch is a search hit with its display label
type AddressMatch struct {
	ID      string         `json:"id"`
	Label   string         `json:"label"`
	Address models.Address `json:"address"`
}

// FindOrCreateAddress returns the stored address with the same
// street/city/state/zip, inserting it first if needed
func FindOrCreateAddress(tx *gorm.DB, addr models.Address) (*models.Address, error) {
	addr.Normalize()
	addr.ID = ""

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&addr).Error; err != nil {
		return nil, fmt.Errorf("upsert address: %w", err)
	}

	var stored models.Address
	if err := tx.Where("street = ? AND city = ? AND state = ? AND zip = ?",
		addr.Street, addr.City, addr.State, addr.Zip).First(&stored).Error; err != nil {
		return nil, fmt.Errorf("load address: %w", err)
	}
	return &stored, nil
}

// SearchAddresses does a case-insensitive partial match on street, city or
// zip. Street matches rank above city matches, which rank above zip matches.
// An empty term lists addresses by street.
func SearchAddresses(db *gorm.DB, term string) ([]AddressMatch, error) {
	query := db.Model(&models.Address{})

	if term = strings.TrimSpace(term); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.
			Where("LOWER(street) LIKE ? OR LOWER(city) LIKE ? OR zip LIKE ?", pattern, pattern, pattern).
			Order(clause.OrderBy{Expression: clause.Expr{
				SQL:                "CASE WHEN LOWER(street) LIKE ? THEN 3 WHEN LOWER(city) LIKE ? THEN 2 ELSE 1 END DESC, street ASC",
				Vars:               []interface{}{pattern, pattern},
				WithoutParentheses: true,
			}})
	} else {
		query = query.Order("street ASC")
	}

	var addresses []models.Address
	if err := query.Limit(AddressSearchLimit).Find(&addresses).Error; err != nil {
		return nil, fmt.Errorf("search addresses: %w", err)
	}

	matches := make([]AddressMatch, 0, len(addresses))
	for _, a := range addresses {
		matches = append(matches, AddressMatch{ID: a.ID, Label: a.Label(), Address: a})
	}
	return matches, nil
}
