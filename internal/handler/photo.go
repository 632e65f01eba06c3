package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tripplanner/api/internal/domain"
)

// photoField is the multipart field carrying an uploaded image.
const photoField = "image"

// PhotoResponse is the body of a successful upload.
type PhotoResponse struct {
	Message string       `json:"message"`
	Photo   domain.Photo `json:"photo"`
}

// BackgroundRequest is the body of POST /api/trips/{id}/background.
type BackgroundRequest struct {
	ImageURL string `json:"imageUrl"`
}

// AddPhoto handles POST /api/trips/{id}/photos (multipart, field "image").
func (s *Server) AddPhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}

	image, ok := s.readUpload(w, r)
	if !ok {
		return
	}

	photo, err := s.gallery.AddPhoto(r.Context(), actorFrom(r), id, image)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PhotoResponse{Message: "Photo uploaded", Photo: photo})
}

// RemovePhoto handles DELETE /api/trips/{id}/photos/{publicId}. The public id
// may contain "/" either literally or percent-encoded.
func (s *Server) RemovePhoto(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	publicID, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || strings.TrimSpace(publicID) == "" {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: ErrorDetail{Code: "not_found", Message: "photo not found"}})
		return
	}

	if err := s.gallery.RemovePhoto(r.Context(), actorFrom(r), id, publicID); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageResponse{Message: "Photo deleted successfully"})
}

// SetBackground handles POST /api/trips/{id}/background.
func (s *Server) SetBackground(w http.ResponseWriter, r *http.Request) {
	id, ok := tripID(w, r)
	if !ok {
		return
	}
	var body BackgroundRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	trip, err := s.gallery.PromoteBackgroundImage(r.Context(), actorFrom(r), id, body.ImageURL)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// readUpload parses the multipart form and returns the image bytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{Code: "request_too_large", Message: "image too large"}})
			return nil, false
		}
		requestError(w, "No image provided")
		return nil, false
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File[photoField]
	if len(headers) == 0 {
		requestError(w, "No image provided")
		return nil, false
	}

	var file openapi_types.File
	file.InitFromMultipart(headers[0])
	if file.FileSize() > s.maxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: ErrorDetail{Code: "request_too_large", Message: "image too large"}})
		return nil, false
	}
	data, err := file.Bytes()
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return data, true
}
