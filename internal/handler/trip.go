package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripplanner/api/internal/auth"
	"github.com/tripplanner/api/internal/domain"
)

// CreateTripRequest is the body of POST /api/trips. Dates are calendar dates
// (2006-01-02) or RFC 3339 timestamps.
type CreateTripRequest struct {
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	StartDate   string                  `json:"startDate"`
	EndDate     string                  `json:"endDate"`
	Itinerary   []domain.ItineraryEntry `json:"itinerary"`
	Image       string                  `json:"image"`
}

// UpdateTripRequest is the body of PUT /api/trips/{id}. Absent fields are
// left unchanged.
type UpdateTripRequest struct {
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	StartDate   *string                  `json:"startDate"`
	EndDate     *string                  `json:"endDate"`
	Itinerary   *[]domain.ItineraryEntry `json:"itinerary"`
	Image       *string                  `json:"image"`
}

// Pagination describes the page returned by a list endpoint.
type Pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// TripListResponse is the body of GET /api/trips.
type TripListResponse struct {
	Data       []domain.Trip `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// MessageResponse acknowledges an operation that returns no resource.
type MessageResponse struct {
	Message string `json:"message"`
}

// ShareResponse is the body of POST /api/trips/{id}/share.
type ShareResponse struct {
	ShareID string `json:"shareId"`
}

// CreateTrip handles POST /api/trips.
func (s *Server) CreateTrip(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var body CreateTripRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	created, err := s.trips.Create(r.Context(), actor, domain.NewTrip{
		Title:       body.Title,
		Description: body.Description,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		Itinerary:   body.Itinerary,
		Image:       body.Image,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListTrips handles GET /api/trips.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=20, max=100).
func (s *Server) ListTrips(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &page); err != nil {
		requestError(w, "page must be an integer")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		requestError(w, "limit must be an integer")
		return
	}
	params := domain.NewPaginationParams(page, limit)

	result, err := s.trips.ListMine(r.Context(), actorFrom(r), params)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TripListResponse{
		Data: result.Trips,
		Pagination: Pagination{
			Page:  result.Page,
			Limit: result.Limit,
			Total: result.Total,
		},
	})
}

// GetTrip handles GET /api/trips/{id}.
func (s *Server) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	trip, err := s.trips.Get(r.Context(), actorFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// UpdateTrip handles PUT /api/trips/{id}.
func (s *Server) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body UpdateTripRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	updated, err := s.trips.Update(r.Context(), actorFrom(r), id, domain.TripPatch{
		Title:       body.Title,
		Description: body.Description,
		StartDate:   body.StartDate,
		EndDate:     body.EndDate,
		Itinerary:   body.Itinerary,
		Image:       body.Image,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteTrip handles DELETE /api/trips/{id}.
func (s *Server) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	if err := s.trips.Delete(r.Context(), actorFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Trip deleted"})
}

// ShareTrip handles POST /api/trips/{id}/share.
func (s *Server) ShareTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	shareID, err := s.trips.Share(r.Context(), actorFrom(r), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ShareResponse{ShareID: shareID})
}

// GetPublicTrip handles GET /api/public/trip/{shareId}. No token required.
func (s *Server) GetPublicTrip(w http.ResponseWriter, r *http.Request) {
	trip, err := s.trips.GetPublic(r.Context(), chi.URLParam(r, "shareId"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// --- request helpers --------------------------------------------------------

// actorFrom returns the authenticated user. Routes using it sit behind the
// bearer middleware, so the principal is always present.
func actorFrom(r *http.Request) openapi_types.UUID {
	p, _ := auth.PrincipalFrom(r.Context())
	return p.UserID
}

// tripID binds the {id} path parameter. A malformed id is reported as a
// missing trip.
func tripID(w http.ResponseWriter, r *http.Request) (openapi_types.UUID, bool) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: "trip not found"}})
		return openapi_types.UUID{}, false
	}
	return id, true
}
