package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/repo"
	"github.com/tripplanner/api/internal/service"
)

// mockTripRepo is a hand-written test double for repo.TripRepo.
// Each method is a function field; set only the ones your test needs.
type mockTripRepo struct {
	create        func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	getByID       func(ctx context.Context, id uuid.UUID) (domain.Trip, error)
	getByShareID  func(ctx context.Context, shareID string) (domain.Trip, error)
	listByUser    func(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error)
	update        func(ctx context.Context, trip domain.Trip) (domain.Trip, error)
	delete        func(ctx context.Context, id uuid.UUID) error
	appendPhoto   func(ctx context.Context, tripID uuid.UUID, photo domain.Photo) (domain.Trip, error)
	removePhoto   func(ctx context.Context, tripID uuid.UUID, publicID string) (domain.Trip, error)
	setImage      func(ctx context.Context, tripID uuid.UUID, image string) (domain.Trip, error)
	assignShareID func(ctx context.Context, tripID uuid.UUID, candidate string) (string, error)
}

func (m *mockTripRepo) Create(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.create(ctx, trip)
}
func (m *mockTripRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Trip, error) {
	return m.getByID(ctx, id)
}
func (m *mockTripRepo) GetByShareID(ctx context.Context, shareID string) (domain.Trip, error) {
	return m.getByShareID(ctx, shareID)
}
func (m *mockTripRepo) ListByUser(ctx context.Context, userID uuid.UUID, p domain.PaginationParams) ([]domain.Trip, int64, error) {
	return m.listByUser(ctx, userID, p)
}
func (m *mockTripRepo) Update(ctx context.Context, trip domain.Trip) (domain.Trip, error) {
	return m.update(ctx, trip)
}
func (m *mockTripRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.delete(ctx, id)
}
func (m *mockTripRepo) AppendPhoto(ctx context.Context, tripID uuid.UUID, photo domain.Photo) (domain.Trip, error) {
	return m.appendPhoto(ctx, tripID, photo)
}
func (m *mockTripRepo) RemovePhoto(ctx context.Context, tripID uuid.UUID, publicID string) (domain.Trip, error) {
	return m.removePhoto(ctx, tripID, publicID)
}
func (m *mockTripRepo) SetImage(ctx context.Context, tripID uuid.UUID, image string) (domain.Trip, error) {
	return m.setImage(ctx, tripID, image)
}
func (m *mockTripRepo) AssignShareID(ctx context.Context, tripID uuid.UUID, candidate string) (string, error) {
	return m.assignShareID(ctx, tripID, candidate)
}

// compile-time check: mockTripRepo must satisfy repo.TripRepo.
var _ repo.TripRepo = (*mockTripRepo)(nil)

// mockPromoter records the URLs it was asked to promote.
type mockPromoter struct {
	calls     []string
	promote   func(ctx context.Context, sourceURL string) (string, bool)
	ephemeral func(rawURL string) bool
}

func (m *mockPromoter) IsEphemeral(rawURL string) bool {
	if m.ephemeral == nil {
		return false
	}
	return m.ephemeral(rawURL)
}

func (m *mockPromoter) Promote(ctx context.Context, sourceURL string) (string, bool) {
	m.calls = append(m.calls, sourceURL)
	if m.promote == nil {
		return sourceURL, false
	}
	return m.promote(ctx, sourceURL)
}

// ---- helpers ---------------------------------------------------------------

func validNewTrip() domain.NewTrip {
	return domain.NewTrip{
		Title:       "Alps",
		Description: "hiking",
		StartDate:   "2025-06-01",
		EndDate:     "2025-06-15",
	}
}

func storedTrip(owner uuid.UUID) domain.Trip {
	return domain.Trip{
		ID:        uuid.New(),
		UserID:    owner,
		Title:     "Alps",
		StartDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Itinerary: []domain.ItineraryEntry{},
		Photos:    []domain.Photo{},
	}
}

// echoRepo returns a repo that serves trip from GetByID and echoes writes.
func echoRepo(trip domain.Trip) *mockTripRepo {
	return &mockTripRepo{
		getByID: func(_ context.Context, id uuid.UUID) (domain.Trip, error) {
			if id != trip.ID {
				return domain.Trip{}, domain.ErrNotFound
			}
			return trip, nil
		},
		create: func(_ context.Context, t domain.Trip) (domain.Trip, error) { return t, nil },
		update: func(_ context.Context, t domain.Trip) (domain.Trip, error) { return t, nil },
	}
}

func ptr[T any](v T) *T { return &v }

// ---- Create ----------------------------------------------------------------

func TestTripService_Create_Valid(t *testing.T) {
	owner := uuid.New()
	svc := service.NewTripService(echoRepo(domain.Trip{}), &mockPromoter{})

	got, err := svc.Create(context.Background(), owner, validNewTrip())

	require.NoError(t, err)
	assert.Equal(t, "Alps", got.Title)
	assert.Equal(t, owner, got.UserID)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
}

func TestTripService_Create_AcceptsTimestamps(t *testing.T) {
	svc := service.NewTripService(echoRepo(domain.Trip{}), &mockPromoter{})

	in := validNewTrip()
	in.StartDate = "2025-06-01T10:30:00Z"

	got, err := svc.Create(context.Background(), uuid.New(), in)

	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), got.StartDate)
}

func TestTripService_Create_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.NewTrip)
	}{
		{"title", func(in *domain.NewTrip) { in.Title = "  " }},
		{"start date", func(in *domain.NewTrip) { in.StartDate = "" }},
		{"end date", func(in *domain.NewTrip) { in.EndDate = "" }},
		{"bad date", func(in *domain.NewTrip) { in.EndDate = "next tuesday" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := service.NewTripService(&mockTripRepo{}, &mockPromoter{})
			in := validNewTrip()
			tc.mutate(&in)

			_, err := svc.Create(context.Background(), uuid.New(), in)

			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestTripService_Create_EndBeforeStart(t *testing.T) {
	svc := service.NewTripService(&mockTripRepo{}, &mockPromoter{})

	in := validNewTrip()
	in.EndDate = "2025-05-31"

	_, err := svc.Create(context.Background(), uuid.New(), in)

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Create_SameDayTrip(t *testing.T) {
	svc := service.NewTripService(echoRepo(domain.Trip{}), &mockPromoter{})

	in := validNewTrip()
	in.EndDate = in.StartDate

	_, err := svc.Create(context.Background(), uuid.New(), in)

	assert.NoError(t, err)
}

func TestTripService_Create_PromotesImageBeforeWrite(t *testing.T) {
	var written domain.Trip
	r := &mockTripRepo{
		create: func(_ context.Context, t domain.Trip) (domain.Trip, error) {
			written = t
			return t, nil
		},
	}
	p := &mockPromoter{promote: func(_ context.Context, _ string) (string, bool) {
		return "https://res.cloudinary.com/demo/bg.jpg", true
	}}
	svc := service.NewTripService(r, p)

	in := validNewTrip()
	in.Image = "https://pixabay.com/get/x.jpg"

	got, err := svc.Create(context.Background(), uuid.New(), in)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://pixabay.com/get/x.jpg"}, p.calls)
	assert.Equal(t, "https://res.cloudinary.com/demo/bg.jpg", written.Image)
	assert.Equal(t, written.Image, got.Image)
}

func TestTripService_Create_NoImageNoPromotion(t *testing.T) {
	p := &mockPromoter{}
	svc := service.NewTripService(echoRepo(domain.Trip{}), p)

	_, err := svc.Create(context.Background(), uuid.New(), validNewTrip())

	require.NoError(t, err)
	assert.Empty(t, p.calls)
}

func TestTripService_Create_RepoError(t *testing.T) {
	repoErr := errors.New("db exploded")
	r := &mockTripRepo{
		create: func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
			return domain.Trip{}, repoErr
		},
	}
	svc := service.NewTripService(r, &mockPromoter{})

	_, err := svc.Create(context.Background(), uuid.New(), validNewTrip())

	assert.ErrorIs(t, err, repoErr)
}

// ---- Get -------------------------------------------------------------------

func TestTripService_Get_Owner(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	got, err := svc.Get(context.Background(), owner, trip.ID)

	require.NoError(t, err)
	assert.Equal(t, trip.ID, got.ID)
}

func TestTripService_Get_OtherUserForbidden(t *testing.T) {
	trip := storedTrip(uuid.New())
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	_, err := svc.Get(context.Background(), uuid.New(), trip.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTripService_Get_NotFound(t *testing.T) {
	svc := service.NewTripService(echoRepo(storedTrip(uuid.New())), &mockPromoter{})

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())

	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ---- ListMine --------------------------------------------------------------

func TestTripService_ListMine(t *testing.T) {
	owner := uuid.New()
	p := domain.NewPaginationParams(nil, nil)
	r := &mockTripRepo{
		listByUser: func(_ context.Context, userID uuid.UUID, got domain.PaginationParams) ([]domain.Trip, int64, error) {
			assert.Equal(t, owner, userID)
			assert.Equal(t, p, got)
			return []domain.Trip{storedTrip(owner), storedTrip(owner)}, 2, nil
		},
	}
	svc := service.NewTripService(r, &mockPromoter{})

	page, err := svc.ListMine(context.Background(), owner, p)

	require.NoError(t, err)
	assert.Len(t, page.Trips, 2)
	assert.Equal(t, int64(2), page.Total)
}

func TestTripService_ListMine_Empty(t *testing.T) {
	r := &mockTripRepo{
		listByUser: func(_ context.Context, _ uuid.UUID, _ domain.PaginationParams) ([]domain.Trip, int64, error) {
			return nil, 0, nil
		},
	}
	svc := service.NewTripService(r, &mockPromoter{})

	page, err := svc.ListMine(context.Background(), uuid.New(), domain.NewPaginationParams(nil, nil))

	require.NoError(t, err)
	assert.NotNil(t, page.Trips)
	assert.Empty(t, page.Trips)
}

// ---- Update ----------------------------------------------------------------

func TestTripService_Update_SparsePatch(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.Description = "hiking"
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Title: ptr("Dolomites")})

	require.NoError(t, err)
	assert.Equal(t, "Dolomites", got.Title)
	assert.Equal(t, "hiking", got.Description)
	assert.Equal(t, trip.StartDate, got.StartDate)
}

func TestTripService_Update_ClearsDescription(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.Description = "hiking"
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Description: ptr("")})

	require.NoError(t, err)
	assert.Empty(t, got.Description)
}

func TestTripService_Update_ReplacesItinerary(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	itinerary := []domain.ItineraryEntry{{Day: 1, Activities: []string{"arrive"}}}
	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Itinerary: &itinerary})

	require.NoError(t, err)
	assert.Equal(t, itinerary, got.Itinerary)
}

func TestTripService_Update_EndBeforeStoredStart(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	_, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{EndDate: ptr("2025-05-01")})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Update_BlankTitle(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	_, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Title: ptr(" ")})

	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTripService_Update_OtherUserForbidden(t *testing.T) {
	trip := storedTrip(uuid.New())
	r := echoRepo(trip)
	r.update = func(_ context.Context, _ domain.Trip) (domain.Trip, error) {
		t.Fatal("update must not be called")
		return domain.Trip{}, nil
	}
	svc := service.NewTripService(r, &mockPromoter{})

	_, err := svc.Update(context.Background(), uuid.New(), trip.ID, domain.TripPatch{Title: ptr("x")})

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestTripService_Update_PromotesNewImageOnce(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	writes := 0
	r := echoRepo(trip)
	r.update = func(_ context.Context, t domain.Trip) (domain.Trip, error) {
		writes++
		return t, nil
	}
	p := &mockPromoter{promote: func(_ context.Context, _ string) (string, bool) {
		return "https://res.cloudinary.com/demo/bg.jpg", true
	}}
	svc := service.NewTripService(r, p)

	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Image: ptr("https://pixabay.com/x.jpg")})

	require.NoError(t, err)
	assert.Equal(t, 1, writes)
	assert.Len(t, p.calls, 1)
	assert.Equal(t, "https://res.cloudinary.com/demo/bg.jpg", got.Image)
}

func TestTripService_Update_UnchangedImageNotPromoted(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.Image = "https://res.cloudinary.com/demo/bg.jpg"
	p := &mockPromoter{}
	svc := service.NewTripService(echoRepo(trip), p)

	_, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Image: ptr(trip.Image)})

	require.NoError(t, err)
	assert.Empty(t, p.calls)
}

// A borrowed background left behind by a failed copy is retried when the
// client sends the same URL back.
func TestTripService_Update_UnchangedEphemeralImageRetried(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.Image = "https://pixabay.com/get/bg.jpg"
	p := &mockPromoter{
		ephemeral: func(rawURL string) bool { return strings.Contains(rawURL, "pixabay.com") },
		promote: func(_ context.Context, _ string) (string, bool) {
			return "https://res.cloudinary.com/demo/bg.jpg", true
		},
	}
	svc := service.NewTripService(echoRepo(trip), p)

	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Image: ptr(trip.Image)})

	require.NoError(t, err)
	assert.Equal(t, []string{"https://pixabay.com/get/bg.jpg"}, p.calls)
	assert.Equal(t, "https://res.cloudinary.com/demo/bg.jpg", got.Image)
}

// When the retry fails again the borrowed URL is kept as is.
func TestTripService_Update_UnchangedEphemeralImageRetryFails(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.Image = "https://pixabay.com/get/bg.jpg"
	p := &mockPromoter{ephemeral: func(string) bool { return true }}
	svc := service.NewTripService(echoRepo(trip), p)

	got, err := svc.Update(context.Background(), owner, trip.ID, domain.TripPatch{Image: ptr(trip.Image)})

	require.NoError(t, err)
	assert.Len(t, p.calls, 1)
	assert.Equal(t, trip.Image, got.Image)
}

// ---- Delete ----------------------------------------------------------------

func TestTripService_Delete_OK(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	var deleted uuid.UUID
	r := echoRepo(trip)
	r.delete = func(_ context.Context, id uuid.UUID) error {
		deleted = id
		return nil
	}
	svc := service.NewTripService(r, &mockPromoter{})

	err := svc.Delete(context.Background(), owner, trip.ID)

	require.NoError(t, err)
	assert.Equal(t, trip.ID, deleted)
}

func TestTripService_Delete_OtherUserForbidden(t *testing.T) {
	trip := storedTrip(uuid.New())
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	err := svc.Delete(context.Background(), uuid.New(), trip.ID)

	assert.ErrorIs(t, err, domain.ErrForbidden)
}

// ---- Share -----------------------------------------------------------------

func TestTripService_Share_CreatesToken(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	r := echoRepo(trip)
	r.assignShareID = func(_ context.Context, id uuid.UUID, candidate string) (string, error) {
		assert.Equal(t, trip.ID, id)
		return candidate, nil
	}
	svc := service.NewTripService(r, &mockPromoter{})

	got, err := svc.Share(context.Background(), owner, trip.ID)

	require.NoError(t, err)
	assert.Len(t, got, 32)
}

func TestTripService_Share_ReturnsExistingToken(t *testing.T) {
	owner := uuid.New()
	trip := storedTrip(owner)
	trip.ShareID = "0123456789abcdef0123456789abcdef"
	svc := service.NewTripService(echoRepo(trip), &mockPromoter{})

	got, err := svc.Share(context.Background(), owner, trip.ID)

	require.NoError(t, err)
	assert.Equal(t, trip.ShareID, got)
}

// ---- GetPublic -------------------------------------------------------------

func TestTripService_GetPublic(t *testing.T) {
	trip := storedTrip(uuid.New())
	trip.ShareID = "abc"
	r := &mockTripRepo{
		getByShareID: func(_ context.Context, shareID string) (domain.Trip, error) {
			if shareID != "abc" {
				return domain.Trip{}, domain.ErrNotFound
			}
			return trip, nil
		},
	}
	svc := service.NewTripService(r, &mockPromoter{})

	got, err := svc.GetPublic(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "Alps", got.Title)

	_, err = svc.GetPublic(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetPublic(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
