package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/imagestore"
	"github.com/tripplanner/api/internal/repo"
)

// Image store folders. Gallery photos and promoted backgrounds never share one.
const (
	PhotoFolder      = "trip_photos"
	BackgroundFolder = "trip_backgrounds"
)

// ImageStore is the image host the gallery depends on.
// *imagestore.Cloudinary satisfies it.
type ImageStore interface {
	UploadStream(ctx context.Context, r io.Reader, folder string) (imagestore.Asset, error)
	UploadFromURL(ctx context.Context, sourceURL, folder string) (imagestore.Asset, error)
	Delete(ctx context.Context, publicID string) error
}

// GalleryService keeps a trip's photo list consistent with the image store
// and promotes borrowed background URLs to permanently hosted ones.
//
// There is no transaction spanning the store and the database. Uploads are
// recorded only after the store confirms them, removals only after the store
// confirms the delete, and an upload whose trip disappeared in the meantime is
// deleted again.
type GalleryService struct {
	trips          repo.TripRepo
	store          ImageStore
	ephemeralHosts []string
	log            *slog.Logger
	now            func() time.Time
}

// NewGalleryService constructs a GalleryService. ephemeralHosts lists the host
// suffixes (e.g. "pixabay.com") whose URLs must be promoted before being kept.
func NewGalleryService(trips repo.TripRepo, store ImageStore, ephemeralHosts []string, log *slog.Logger) *GalleryService {
	hosts := make([]string, 0, len(ephemeralHosts))
	for _, h := range ephemeralHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	return &GalleryService{trips: trips, store: store, ephemeralHosts: hosts, log: log, now: time.Now}
}

// AddPhoto uploads image and appends the resulting photo to the trip's gallery.
// Returns domain.ErrValidation for an empty image, domain.ErrNotFound or
// domain.ErrForbidden for a missing or foreign trip, and the store's error
// when the upload fails. Nothing is recorded unless the upload succeeded.
func (s *GalleryService) AddPhoto(ctx context.Context, actor, tripID uuid.UUID, image []byte) (domain.Photo, error) {
	if len(image) == 0 {
		return domain.Photo{}, fmt.Errorf("%w: no image provided", domain.ErrValidation)
	}
	trip, err := loadOwned(ctx, s.trips, actor, tripID)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("service.GalleryService.AddPhoto: %w", err)
	}

	asset, err := s.store.UploadStream(ctx, bytes.NewReader(image), PhotoFolder)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("service.GalleryService.AddPhoto: %w", err)
	}

	photo := domain.Photo{URL: asset.URL, PublicID: asset.PublicID, UploadedAt: s.now().UTC()}
	if _, err := s.trips.AppendPhoto(ctx, trip.ID, photo); err != nil {
		s.discardUpload(ctx, trip.ID, asset.PublicID, err)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Photo{}, fmt.Errorf("service.GalleryService.AddPhoto: %w: trip not found", err)
		}
		return domain.Photo{}, fmt.Errorf("service.GalleryService.AddPhoto: %w", err)
	}
	return photo, nil
}

// discardUpload deletes an asset that could not be recorded. It runs even if
// the request was cancelled; a failure only leaves an orphan in the store.
func (s *GalleryService) discardUpload(ctx context.Context, tripID uuid.UUID, publicID string, cause error) {
	ctx = context.WithoutCancel(ctx)
	if err := s.store.Delete(ctx, publicID); err != nil {
		s.log.ErrorContext(ctx, "orphaned image store asset",
			"trip_id", tripID, "public_id", publicID, "cause", cause, "error", err)
		return
	}
	s.log.WarnContext(ctx, "discarded unrecorded upload",
		"trip_id", tripID, "public_id", publicID, "cause", cause)
}

// RemovePhoto deletes the photo from the image store, then from the gallery.
// If the store refuses the delete the gallery entry is kept, so a retry
// finds it again.
func (s *GalleryService) RemovePhoto(ctx context.Context, actor, tripID uuid.UUID, publicID string) error {
	trip, err := loadOwned(ctx, s.trips, actor, tripID)
	if err != nil {
		return fmt.Errorf("service.GalleryService.RemovePhoto: %w", err)
	}
	if _, ok := trip.FindPhoto(publicID); !ok {
		return fmt.Errorf("service.GalleryService.RemovePhoto: %w: photo not found", domain.ErrNotFound)
	}

	if err := s.store.Delete(ctx, publicID); err != nil {
		return fmt.Errorf("service.GalleryService.RemovePhoto: %w", err)
	}

	if _, err := s.trips.RemovePhoto(ctx, trip.ID, publicID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("service.GalleryService.RemovePhoto: %w: photo not found", err)
		}
		return fmt.Errorf("service.GalleryService.RemovePhoto: %w", err)
	}
	return nil
}

// PromoteBackgroundImage sets the trip's background to sourceURL, first
// copying it into the image store when it lives on an ephemeral host.
// A failed copy falls back to sourceURL instead of failing the call.
// Permanent URLs cause no store calls, and a repeat call is a no-op.
func (s *GalleryService) PromoteBackgroundImage(ctx context.Context, actor, tripID uuid.UUID, sourceURL string) (domain.Trip, error) {
	sourceURL = strings.TrimSpace(sourceURL)
	if sourceURL == "" {
		return domain.Trip{}, fmt.Errorf("%w: imageUrl is required", domain.ErrValidation)
	}
	trip, err := loadOwned(ctx, s.trips, actor, tripID)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.GalleryService.PromoteBackgroundImage: %w", err)
	}
	if trip.Image == sourceURL && !s.IsEphemeral(sourceURL) {
		return trip, nil
	}

	image, _ := s.Promote(ctx, sourceURL)
	if image == trip.Image {
		return trip, nil
	}

	updated, err := s.trips.SetImage(ctx, trip.ID, image)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("service.GalleryService.PromoteBackgroundImage: %w", err)
	}
	return updated, nil
}

// Promote returns the URL a trip should keep for sourceURL and whether a copy
// was made. Ephemeral URLs are uploaded to the background folder; on upload
// failure, and for URLs that are already permanent, sourceURL comes back as is.
func (s *GalleryService) Promote(ctx context.Context, sourceURL string) (string, bool) {
	if !s.IsEphemeral(sourceURL) {
		return sourceURL, false
	}
	asset, err := s.store.UploadFromURL(ctx, sourceURL, BackgroundFolder)
	if err != nil {
		s.log.WarnContext(ctx, "background promotion failed, keeping original url",
			"source_url", sourceURL, "error", err)
		return sourceURL, false
	}
	return asset.URL, true
}

// IsEphemeral reports whether rawURL points at one of the configured
// third-party hosts (or a subdomain of one).
func (s *GalleryService) IsEphemeral(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range s.ephemeralHosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
