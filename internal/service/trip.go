// Package service contains the business logic for the trip planner API.
// Services validate inputs, enforce ownership, and orchestrate repo and
// upstream calls. No SQL lives here; services depend on repo interfaces.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripplanner/api/internal/auth"
	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/repo"
)

// BackgroundPromoter turns a background image URL into the URL the trip
// should store. *GalleryService satisfies it.
type BackgroundPromoter interface {
	Promote(ctx context.Context, sourceURL string) (string, bool)
	IsEphemeral(rawURL string) bool
}

// TripService implements trip CRUD and sharing. Background images are
// promoted before the trip is written, so a trip is never stored with a
// borrowed URL that could have been promoted.
type TripService struct {
	trips      repo.TripRepo
	promoter   BackgroundPromoter
	newShareID func() (string, error)
}

// NewTripService constructs a TripService.
func NewTripService(trips repo.TripRepo, promoter BackgroundPromoter) *TripService {
	return &TripService{trips: trips, promoter: promoter, newShareID: auth.NewShareToken}
}

// Create validates and persists a new trip owned by actor.
// Returns domain.ErrValidation if title or dates are missing or unparseable,
// or if the end date is before the start date.
func (s *TripService) Create(ctx context.Context, actor uuid.UUID, in domain.NewTrip) (domain.Trip, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.StartDate) == "" || strings.TrimSpace(in.EndDate) == "" {
		return domain.Trip{}, fmt.Errorf("%w: title, start and end date required", domain.ErrValidation)
	}
	start, err := parseDate(in.StartDate)
	if err != nil {
		return domain.Trip{}, err
	}
	end, err := parseDate(in.EndDate)
	if err != nil {
		return domain.Trip{}, err
	}

	trip := domain.Trip{
		UserID:      actor,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   start,
		EndDate:     end,
		Itinerary:   in.Itinerary,
		Image:       strings.TrimSpace(in.Image),
	}
	if err := validateDates(trip); err != nil {
		return domain.Trip{}, err
	}

	if trip.Image != "" {
		trip.Image, _ = s.promoter.Promote(ctx, trip.Image)
	}

	created, err := s.trips.Create(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Create: %w", err)
	}
	return created, nil
}

// Get returns a trip the actor owns.
func (s *TripService) Get(ctx context.Context, actor, id uuid.UUID) (domain.Trip, error) {
	trip, err := loadOwned(ctx, s.trips, actor, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Get: %w", err)
	}
	return trip, nil
}

// ListMine returns one page of the actor's trips, newest first.
func (s *TripService) ListMine(ctx context.Context, actor uuid.UUID, p domain.PaginationParams) (domain.TripPage, error) {
	trips, total, err := s.trips.ListByUser(ctx, actor, p)
	if err != nil {
		return domain.TripPage{}, fmt.Errorf("service.TripService.ListMine: %w", err)
	}
	if trips == nil {
		trips = []domain.Trip{}
	}
	return domain.TripPage{Trips: trips, Total: total, PaginationParams: p}, nil
}

// Update applies the fields present in patch. Absent fields keep their value.
// The resulting dates must satisfy start <= end; an end date before the
// stored start date is rejected rather than moving the start.
func (s *TripService) Update(ctx context.Context, actor, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error) {
	trip, err := loadOwned(ctx, s.trips, actor, id)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return domain.Trip{}, fmt.Errorf("%w: title must not be empty", domain.ErrValidation)
		}
		trip.Title = title
	}
	if patch.Description != nil {
		trip.Description = *patch.Description
	}
	if patch.StartDate != nil {
		if trip.StartDate, err = parseDate(*patch.StartDate); err != nil {
			return domain.Trip{}, err
		}
	}
	if patch.EndDate != nil {
		if trip.EndDate, err = parseDate(*patch.EndDate); err != nil {
			return domain.Trip{}, err
		}
	}
	if patch.Itinerary != nil {
		trip.Itinerary = *patch.Itinerary
	}
	if err := validateDates(trip); err != nil {
		return domain.Trip{}, err
	}

	if patch.Image != nil {
		image := strings.TrimSpace(*patch.Image)
		// An unchanged image is promoted again only while it is still
		// borrowed, which retries a copy that failed on an earlier write.
		if image != "" && (image != trip.Image || s.promoter.IsEphemeral(image)) {
			image, _ = s.promoter.Promote(ctx, image)
		}
		trip.Image = image
	}

	updated, err := s.trips.Update(ctx, trip)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.TripService.Update: %w", err)
	}
	return updated, nil
}

// Delete removes the trip record. Gallery and background assets stay in the
// image store.
func (s *TripService) Delete(ctx context.Context, actor, id uuid.UUID) error {
	if _, err := loadOwned(ctx, s.trips, actor, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	if err := s.trips.Delete(ctx, id); err != nil {
		return fmt.Errorf("service.TripService.Delete: %w", err)
	}
	return nil
}

// Share returns the trip's share token, creating it on first use.
func (s *TripService) Share(ctx context.Context, actor, id uuid.UUID) (string, error) {
	trip, err := loadOwned(ctx, s.trips, actor, id)
	if err != nil {
		return "", fmt.Errorf("service.TripService.Share: %w", err)
	}
	if trip.ShareID != "" {
		return trip.ShareID, nil
	}

	candidate, err := s.newShareID()
	if err != nil {
		return "", fmt.Errorf("service.TripService.Share: %w", err)
	}
	shareID, err := s.trips.AssignShareID(ctx, trip.ID, candidate)
	if err != nil {
		return "", fmt.Errorf("service.TripService.Share: %w", err)
	}
	return shareID, nil
}

// GetPublic returns the public projection of the trip behind shareID.
func (s *TripService) GetPublic(ctx context.Context, shareID string) (domain.PublicTrip, error) {
	if strings.TrimSpace(shareID) == "" {
		return domain.PublicTrip{}, fmt.Errorf("service.TripService.GetPublic: %w: trip not found", domain.ErrNotFound)
	}
	trip, err := s.trips.GetByShareID(ctx, shareID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.PublicTrip{}, fmt.Errorf("service.TripService.GetPublic: %w: trip not found", err)
		}
		return domain.PublicTrip{}, fmt.Errorf("service.TripService.GetPublic: %w", err)
	}
	return trip.Public(), nil
}

// loadOwned fetches a trip and checks that actor owns it.
func loadOwned(ctx context.Context, trips repo.TripRepo, actor, id uuid.UUID) (domain.Trip, error) {
	trip, err := trips.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Trip{}, fmt.Errorf("%w: trip not found", err)
		}
		return domain.Trip{}, err
	}
	if !trip.OwnedBy(actor) {
		return domain.Trip{}, fmt.Errorf("%w: not authorized", domain.ErrForbidden)
	}
	return trip, nil
}

// parseDate accepts a calendar date (2006-01-02) or an RFC 3339 timestamp and
// returns midnight UTC of that calendar day.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.DateOnly, time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: invalid date format", domain.ErrValidation)
}

func validateDates(t domain.Trip) error {
	if t.EndDate.Before(t.StartDate) {
		return fmt.Errorf("%w: endDate must not be before startDate", domain.ErrValidation)
	}
	return nil
}
