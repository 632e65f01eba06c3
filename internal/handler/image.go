package handler

import (
	"net/http"
	"strings"
)

// ImageSearchResponse is the body of GET /api/image. Image is empty when the
// search had no hits.
type ImageSearchResponse struct {
	Image string `json:"image"`
}

// SearchImage handles GET /api/image?q=.
func (s *Server) SearchImage(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		requestError(w, "Missing query parameter")
		return
	}
	image, err := s.images.Search(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ImageSearchResponse{Image: image})
}
