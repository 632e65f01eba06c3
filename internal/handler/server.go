// Package handler implements the HTTP handlers for the trip planner API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, trip.go, photo.go, etc.) but all share the same Server
// struct so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/middleware"
	"github.com/tripplanner/api/spec"
)

// TripServicer defines the trip operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type TripServicer interface {
	Create(ctx context.Context, actor uuid.UUID, in domain.NewTrip) (domain.Trip, error)
	Get(ctx context.Context, actor, id uuid.UUID) (domain.Trip, error)
	ListMine(ctx context.Context, actor uuid.UUID, p domain.PaginationParams) (domain.TripPage, error)
	Update(ctx context.Context, actor, id uuid.UUID, patch domain.TripPatch) (domain.Trip, error)
	Delete(ctx context.Context, actor, id uuid.UUID) error
	Share(ctx context.Context, actor, id uuid.UUID) (string, error)
	GetPublic(ctx context.Context, shareID string) (domain.PublicTrip, error)
}

// GalleryServicer defines the photo and background operations.
type GalleryServicer interface {
	AddPhoto(ctx context.Context, actor, tripID uuid.UUID, image []byte) (domain.Photo, error)
	RemovePhoto(ctx context.Context, actor, tripID uuid.UUID, publicID string) error
	PromoteBackgroundImage(ctx context.Context, actor, tripID uuid.UUID, sourceURL string) (domain.Trip, error)
}

// AuthServicer defines the account operations.
type AuthServicer interface {
	Register(ctx context.Context, name, email, password string) error
	ResendOTP(ctx context.Context, email string) error
	Verify(ctx context.Context, email, otp string) (domain.Session, error)
	Login(ctx context.Context, email, password string) (domain.Session, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, otp, newPassword string) error
	Profile(ctx context.Context, actor uuid.UUID) (domain.Profile, error)
}

// ImageSearcher finds a background image for a free-text query.
type ImageSearcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Services bundles the business operations the handlers call.
type Services struct {
	Trips   TripServicer
	Gallery GalleryServicer
	Users   AuthServicer
	Images  ImageSearcher
}

// Server holds the handler dependencies. Wire it in main.go and mount Routes.
type Server struct {
	trips          TripServicer
	gallery        GalleryServicer
	users          AuthServicer
	images         ImageSearcher
	tokens         middleware.TokenParser
	maxUploadBytes int64
	log            *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// maxUploadBytes caps a single photo upload.
func NewServer(svc Services, tokens middleware.TokenParser, maxUploadBytes int64, log *slog.Logger) *Server {
	return &Server{
		trips:          svc.Trips,
		gallery:        svc.Gallery,
		users:          svc.Users,
		images:         svc.Images,
		tokens:         tokens,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// Routes returns the API router. Cross-cutting middleware (request IDs,
// logging, CORS, body limits) is applied by the caller.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", serveOpenAPI)

	r.Route("/api", func(r chi.Router) {
		r.Post("/users/register/send-otp", s.Register)
		r.Post("/users/register/resend-otp", s.ResendOTP)
		r.Post("/users/register/verify-otp", s.VerifyOTP)
		r.Post("/users/login", s.Login)
		r.Post("/users/reset/send-otp", s.RequestPasswordReset)
		r.Post("/users/reset/verify-otp", s.ResetPassword)

		r.Get("/public/trip/{shareId}", s.GetPublicTrip)

		r.Group(func(r chi.Router) {
			r.Use(middleware.NewBearerAuth(s.tokens))

			r.Get("/protected/profile", s.GetProfile)
			r.Get("/image", s.SearchImage)

			r.Post("/trips", s.CreateTrip)
			r.Get("/trips", s.ListTrips)
			r.Get("/trips/{id}", s.GetTrip)
			r.Put("/trips/{id}", s.UpdateTrip)
			r.Delete("/trips/{id}", s.DeleteTrip)
			r.Post("/trips/{id}/share", s.ShareTrip)
			r.Post("/trips/{id}/background", s.SetBackground)
			r.Post("/trips/{id}/photos", s.AddPhoto)
			// Store identifiers contain folder separators.
			r.Delete("/trips/{id}/photos/*", s.RemovePhoto)
		})
	})

	return r
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}
