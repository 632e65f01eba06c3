package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripplanner/api/internal/domain"
	"github.com/tripplanner/api/internal/handler"
)

type stubSearcher struct {
	image string
	err   error
	query string
}

func (s *stubSearcher) Search(_ context.Context, query string) (string, error) {
	s.query = query
	return s.image, s.err
}

func TestSearchImage_200(t *testing.T) {
	images := &stubSearcher{image: "https://pixabay.com/get/x.jpg"}

	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/image?q=Lake+Como", nil), uuid.New())
	rec := httptest.NewRecorder()
	newRouter(handler.Services{Images: images}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lake Como", images.query)
	var resp handler.ImageSearchResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "https://pixabay.com/get/x.jpg", resp.Image)
}

func TestSearchImage_422_MissingQuery(t *testing.T) {
	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/image", nil), uuid.New())
	rec := httptest.NewRecorder()
	newRouter(handler.Services{Images: &stubSearcher{}}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSearchImage_502_Upstream(t *testing.T) {
	images := &stubSearcher{err: fmt.Errorf("imagesearch.Pixabay.Search: %w", domain.ErrUpstreamSearch)}

	req := authed(t, httptest.NewRequest(http.MethodGet, "/api/image?q=rome", nil), uuid.New())
	rec := httptest.NewRecorder()
	newRouter(handler.Services{Images: images}).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "upstream_search_error", decodeError(t, rec).Code)
}
