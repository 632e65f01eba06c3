// Package repo contains all database access logic for the trip planner.
// Each aggregate has its own file with an interface and a Postgres implementation.
// No business logic lives here, only SQL and type mapping.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/tripplanner/api/internal/domain"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Integration tests pass a transaction that is rolled back after each test.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TripRepo defines the persistence operations for the Trip aggregate.
//
// The itinerary and the photo gallery are JSONB documents on the trip row.
// Gallery changes go through AppendPhoto and RemovePhoto, which are single
// statements, so concurrent uploads and removals on one trip never overwrite
// each other. Update never touches the gallery.
type TripRepo interface {
	// Create inserts a new trip and returns the persisted record with the
	// DB-generated id and timestamps.
	Create(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// GetByID returns domain.ErrNotFound if no trip with that ID exists.
	GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error)

	// GetByShareID looks a trip up by its public share token.
	GetByShareID(ctx context.Context, shareID string) (domain.Trip, error)

	// ListByUser returns one page of a user's trips, newest first, and the
	// total number of trips the user owns.
	ListByUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)

	// Update overwrites title, description, dates, itinerary, and image.
	Update(ctx context.Context, trip domain.Trip) (domain.Trip, error)

	// Delete removes a trip by ID. Returns domain.ErrNotFound if it does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// AppendPhoto atomically appends photo to the trip's gallery.
	AppendPhoto(ctx context.Context, tripID uuid.UUID, photo domain.Photo) (domain.Trip, error)

	// RemovePhoto atomically drops the gallery entry with publicID.
	// Returns domain.ErrNotFound if the trip or the entry is missing.
	RemovePhoto(ctx context.Context, tripID uuid.UUID, publicID string) (domain.Trip, error)

	// SetImage replaces the background image URL.
	SetImage(ctx context.Context, tripID uuid.UUID, image string) (domain.Trip, error)

	// AssignShareID stores candidate as the share token unless the trip
	// already has one, and returns whichever token the trip ends up with.
	AssignShareID(ctx context.Context, tripID uuid.UUID, candidate string) (string, error)
}

// pgTripRepo is the Postgres implementation of TripRepo.
type pgTripRepo struct {
	db db
}

// NewTripRepo constructs a TripRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewTripRepo(db db) TripRepo {
	return &pgTripRepo{db: db}
}

const tripColumns = `id, user_id, title, description, start_date, end_date,
	itinerary, image, photos, share_id, created_at, updated_at`

// Create inserts a new trip row and returns the full persisted record.
func (r *pgTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		INSERT INTO trips (user_id, title, description, start_date, end_date, itinerary, image)
		VALUES (@user_id, @title, @description, @start_date, @end_date, @itinerary::jsonb, @image)
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"user_id":     trip.UserID,
		"title":       trip.Title,
		"description": trip.Description,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
		"itinerary":   itineraryOrEmpty(trip.Itinerary),
		"image":       trip.Image,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Create: %w", err)
	}
	return result, nil
}

// GetByID retrieves a trip by primary key.
func (r *pgTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE id = @id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": id}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByID: %w", err)
	}
	return result, nil
}

// GetByShareID retrieves a trip by its share token.
func (r *pgTripRepo) GetByShareID(ctx context.Context, shareID string) (domain.Trip, error) {
	const q = `SELECT ` + tripColumns + ` FROM trips WHERE share_id = @share_id`

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"share_id": shareID}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.GetByShareID: %w", err)
	}
	return result, nil
}

// ListByUser returns one page of the user's trips ordered by created_at descending.
// The total is computed with a window function so the page and the count come
// from the same snapshot.
func (r *pgTripRepo) ListByUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	const q = `
		SELECT ` + tripColumns + `, count(*) OVER () AS total
		FROM trips
		WHERE user_id = @user_id
		ORDER BY created_at DESC, id
		LIMIT @limit OFFSET @offset`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{
		"user_id": userID,
		"limit":   p.Limit,
		"offset":  p.Offset(),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: %w", err)
	}
	defer rows.Close()

	var (
		trips = []domain.Trip{}
		total int64
	)
	for rows.Next() {
		t, err := scanTrip(rows, &total)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: scan: %w", err)
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: rows: %w", err)
	}

	// An out-of-range page yields no rows and therefore no window total.
	if len(trips) == 0 && p.Page > 1 {
		const countQ = `SELECT count(*) FROM trips WHERE user_id = @user_id`
		if err := r.db.QueryRow(ctx, countQ, pgx.NamedArgs{"user_id": userID}).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("repo.TripRepo.ListByUser: count: %w", err)
		}
	}
	return trips, total, nil
}

// Update overwrites the mutable, non-gallery fields of a trip.
func (r *pgTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET title       = @title,
		    description = @description,
		    start_date  = @start_date,
		    end_date    = @end_date,
		    itinerary   = @itinerary::jsonb,
		    image       = @image,
		    updated_at  = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	args := pgx.NamedArgs{
		"id":          trip.ID,
		"title":       trip.Title,
		"description": trip.Description,
		"start_date":  trip.StartDate,
		"end_date":    trip.EndDate,
		"itinerary":   itineraryOrEmpty(trip.Itinerary),
		"image":       trip.Image,
	}

	result, err := scanTrip(r.db.QueryRow(ctx, q, args))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.Update: %w", err)
	}
	return result, nil
}

// Delete removes a trip by primary key.
func (r *pgTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM trips WHERE id = @id`

	tag, err := r.db.Exec(ctx, q, pgx.NamedArgs{"id": id})
	if err != nil {
		return fmt.Errorf("repo.TripRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo.TripRepo.Delete: %w", domain.ErrNotFound)
	}
	return nil
}

// AppendPhoto concatenates photo onto the photos array in one statement.
func (r *pgTripRepo) AppendPhoto(ctx context.Context, tripID uuid.UUID, photo domain.Photo) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET photos     = photos || jsonb_build_array(@photo::jsonb),
		    updated_at = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "photo": photo}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.AppendPhoto: %w", err)
	}
	return result, nil
}

// RemovePhoto rebuilds the photos array without the matching entry, keeping
// the order of the others. The containment check in WHERE makes a missing
// entry surface as no rows, i.e. domain.ErrNotFound.
func (r *pgTripRepo) RemovePhoto(ctx context.Context, tripID uuid.UUID, publicID string) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET photos = COALESCE((
		        SELECT jsonb_agg(e.p ORDER BY e.ord)
		        FROM jsonb_array_elements(photos) WITH ORDINALITY AS e(p, ord)
		        WHERE e.p->>'public_id' <> @public_id::text
		    ), '[]'::jsonb),
		    updated_at = now()
		WHERE id = @id
		  AND photos @> jsonb_build_array(jsonb_build_object('public_id', @public_id::text))
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "public_id": publicID}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.RemovePhoto: %w", err)
	}
	return result, nil
}

// SetImage replaces only the background image.
func (r *pgTripRepo) SetImage(ctx context.Context, tripID uuid.UUID, image string) (domain.Trip, error) {
	const q = `
		UPDATE trips
		SET image = @image, updated_at = now()
		WHERE id = @id
		RETURNING ` + tripColumns

	result, err := scanTrip(r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "image": image}))
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.TripRepo.SetImage: %w", err)
	}
	return result, nil
}

// AssignShareID keeps an existing token; COALESCE makes two racing first
// shares agree on whichever committed first.
func (r *pgTripRepo) AssignShareID(ctx context.Context, tripID uuid.UUID, candidate string) (string, error) {
	const q = `
		UPDATE trips
		SET share_id = COALESCE(share_id, @share_id)
		WHERE id = @id
		RETURNING share_id`

	var shareID string
	err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"id": tripID, "share_id": candidate}).Scan(&shareID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = domain.ErrNotFound
		}
		return "", fmt.Errorf("repo.TripRepo.AssignShareID: %w", err)
	}
	return shareID, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanTrip maps a single row into a domain.Trip. Extra destinations are
// scanned after the trip columns (used for window totals).
func scanTrip(s scanner, extra ...any) (domain.Trip, error) {
	var (
		t       domain.Trip
		id      pgtype.UUID
		userID  pgtype.UUID
		start   pgtype.Date
		end     pgtype.Date
		shareID pgtype.Text
	)

	dest := []any{
		&id, &userID, &t.Title, &t.Description, &start, &end,
		&t.Itinerary, &t.Image, &t.Photos, &shareID, &t.CreatedAt, &t.UpdatedAt,
	}
	dest = append(dest, extra...)

	if err := s.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Trip{}, domain.ErrNotFound
		}
		return domain.Trip{}, err
	}

	t.ID = uuid.UUID(id.Bytes)
	t.UserID = uuid.UUID(userID.Bytes)
	t.StartDate = start.Time
	t.EndDate = end.Time
	t.ShareID = shareID.String
	if t.Itinerary == nil {
		t.Itinerary = []domain.ItineraryEntry{}
	}
	if t.Photos == nil {
		t.Photos = []domain.Photo{}
	}
	return t, nil
}

// itineraryOrEmpty keeps a nil itinerary from being stored as JSON null.
func itineraryOrEmpty(entries []domain.ItineraryEntry) []domain.ItineraryEntry {
	if entries == nil {
		return []domain.ItineraryEntry{}
	}
	return entries
}
