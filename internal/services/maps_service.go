package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ridealong/internal/models"

	"googlemaps.github.io/maps"
)

// ErrNoAPIKey is returned when the Maps API key is not configured
var ErrNoAPIKey = errors.New("Maps API Key not configured")

// RouteEstimator estimates driving time and distance between two addresses
type RouteEstimator interface {
	Estimate(ctx context.Context, origin, destination string) (*models.RideEstimate, error)
}

// MapsService estimates rides with the Google Directions API
type MapsService struct {
	client *maps.Client
}

// NewMapsService builds a Directions client
func NewMapsService(apiKey string) (*MapsService, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize maps client: %w", err)
	}
	return &MapsService{client: client}, nil
}

// Estimate returns the first leg of the first driving route. A lookup that
// finds no route is reported in the estimate's Error field, not as an error.
func (s *MapsService) Estimate(ctx context.Context, origin, destination string) (*models.RideEstimate, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	routes, _, err := s.client.Directions(ctx, &maps.DirectionsRequest{
		Origin:      origin,
		Destination: destination,
		Mode:        maps.TravelModeDriving,
	})
	if err != nil {
		return nil, err
	}

	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		msg := "No route found"
		return &models.RideEstimate{Error: &msg}, nil
	}

	leg := routes[0].Legs[0]
	duration := leg.Duration.Round(time.Minute).String()
	distance := leg.Distance.HumanReadable
	durationValue := int64(leg.Duration.Seconds())
	distanceValue := leg.Distance.Meters

	return &models.RideEstimate{
		Duration:      &duration,
		Distance:      &distance,
		DurationValue: &durationValue,
		DistanceValue: &distanceValue,
	}, nil
}
