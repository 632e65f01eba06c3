// Package domain contains the core data types for the trip planner.
// This package has no dependencies on other internal packages and is imported
// by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the top-level aggregate: the itinerary and the photo gallery are
// embedded documents stored with it, never on their own.
type Trip struct {
	ID          uuid.UUID        `json:"id"`
	UserID      uuid.UUID        `json:"user"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartDate   time.Time        `json:"startDate"`
	EndDate     time.Time        `json:"endDate"`
	Itinerary   []ItineraryEntry `json:"itinerary"`
	// Image is the background image URL. Empty when unset. It may point at a
	// third-party search host until it has been promoted.
	Image     string    `json:"image,omitempty"`
	Photos    []Photo   `json:"photos"`
	ShareID   string    `json:"shareId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ItineraryEntry is one day of the plan. Day numbers are not required to be
// unique across the itinerary.
type ItineraryEntry struct {
	Day        int      `json:"day"`
	Activities []string `json:"activities"`
	Notes      string   `json:"notes,omitempty"`
}

// Photo is a gallery entry. It only ever exists as the result of a confirmed
// image store upload; PublicID is the store's deletion key.
type Photo struct {
	URL        string    `json:"url"`
	PublicID   string    `json:"public_id"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// OwnedBy reports whether userID owns the trip.
func (t Trip) OwnedBy(userID uuid.UUID) bool {
	return t.UserID == userID
}

// FindPhoto returns the gallery photo with the given store identifier.
func (t Trip) FindPhoto(publicID string) (Photo, bool) {
	for _, p := range t.Photos {
		if p.PublicID == publicID {
			return p, true
		}
	}
	return Photo{}, false
}

// NewTrip carries the fields accepted when creating a trip.
type NewTrip struct {
	Title       string
	Description string
	StartDate   string
	EndDate     string
	Itinerary   []ItineraryEntry
	Image       string
}

// TripPatch is a sparse update. A nil field means "leave unchanged"; a non-nil
// field is applied as given, so Description can be set to "" to clear it.
type TripPatch struct {
	Title       *string
	Description *string
	StartDate   *string
	EndDate     *string
	Itinerary   *[]ItineraryEntry
	Image       *string
}

// PublicTrip is the projection served to unauthenticated share-link readers.
// It deliberately has no owner or trip id.
type PublicTrip struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	StartDate   time.Time        `json:"startDate"`
	EndDate     time.Time        `json:"endDate"`
	Itinerary   []ItineraryEntry `json:"itinerary"`
	Image       string           `json:"image,omitempty"`
	Photos      []Photo          `json:"photos"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	ShareID     string           `json:"shareId"`
}

// Public returns the whitelisted projection of t.
func (t Trip) Public() PublicTrip {
	return PublicTrip{
		Title:       t.Title,
		Description: t.Description,
		StartDate:   t.StartDate,
		EndDate:     t.EndDate,
		Itinerary:   t.Itinerary,
		Image:       t.Image,
		Photos:      t.Photos,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
		ShareID:     t.ShareID,
	}
}
