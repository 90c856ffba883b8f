package services

import (
	"testing"

	"ridealong/internal/models"
)

func TestFindOrCreateAddressDeduplicates(t *testing.T) {
	db := newTestDB(t)

	first, err := FindOrCreateAddress(db, models.Address{Street: "100 Main St", City: "Springfield", State: "IL", Zip: "62701"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := FindOrCreateAddress(db, models.Address{Street: " 100 Main St ", City: "Springfield", State: "IL", Zip: "62701"})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if first.ID == "" || first.ID != second.ID {
		t.Fatalf("expected the same address, got %q and %q", first.ID, second.ID)
	}

	var count int64
	db.Model(&models.Address{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored address, got %d", count)
	}
}

func TestSearchAddresses(t *testing.T) {
	db := newTestDB(t)
	for _, a := range []models.Address{
		{Street: "12 Oak Ave", City: "Peoria", State: "IL", Zip: "61602"},
		{Street: "9 Elm St", City: "Oakland", State: "CA", Zip: "94601"},
		{Street: "300 Pine Rd", City: "Springfield", State: "IL", Zip: "62704"},
	} {
		if _, err := FindOrCreateAddress(db, a); err != nil {
			t.Fatalf("seed address: %v", err)
		}
	}

	tests := []struct {
		name string
		term string
		want []string
	}{
		{"street ranks above city", "oak", []string{"12 Oak Ave", "9 Elm St"}},
		{"zip", "627", []string{"300 Pine Rd"}},
		{"no term lists by street", "", []string{"12 Oak Ave", "300 Pine Rd", "9 Elm St"}},
		{"no match", "zzz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SearchAddresses(db, tt.term)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d matches", tt.want, len(got))
			}
			for i, m := range got {
				if m.Address.Street != tt.want[i] {
					t.Errorf("match %d: expected %q, got %q", i, tt.want[i], m.Address.Street)
				}
				if m.Label != m.Address.Label() || m.ID != m.Address.ID {
					t.Errorf("match %d: inconsistent label or id", i)
				}
			}
		})
	}
}
