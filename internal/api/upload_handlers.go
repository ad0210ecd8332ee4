package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domainerrors "github.com/platebook/platebook-server/internal/errors"
	"github.com/platebook/platebook-server/internal/http/response"
)

// registerImageRoutes wires the recipe image routes directly on the chi
// router. Multipart uploads and raw image bytes bypass the OpenAPI layer.
func (s *Server) registerImageRoutes() {
	s.router.Post("/api/v1/recipes/{id}/image", s.handleUploadRecipeImage)
	s.router.Get("/api/v1/recipes/{id}/image", s.handleGetRecipeImage)
}

// handleUploadRecipeImage handles image uploads for a recipe.
// POST /api/v1/recipes/{id}/image
// Content-Type: multipart/form-data with "image" field
func (s *Server) handleUploadRecipeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recipeID := chi.URLParam(r, "id")

	userID, ok := s.authenticateRaw(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		response.BadRequest(w, "Failed to parse form data", s.logger)
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		response.BadRequest(w, "No file uploaded. Use 'image' field in multipart form", s.logger)
		return
	}
	defer file.Close()

	imgData, err := io.ReadAll(file)
	if err != nil {
		s.logger.Error("Failed to read uploaded file", "error", err, "recipe_id", recipeID)
		response.InternalError(w, "Failed to read uploaded file", s.logger)
		return
	}

	recipe, err := s.services.Recipe.AttachImage(ctx, userID, recipeID, header.Filename, imgData)
	if err != nil {
		s.writeServiceError(w, err, "upload recipe image", recipeID)
		return
	}

	response.Success(w, map[string]string{
		"image_url": recipeImagePath(recipe.ID),
	}, s.logger)
}

// handleGetRecipeImage serves a recipe's image bytes.
// GET /api/v1/recipes/{id}/image
func (s *Server) handleGetRecipeImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recipeID := chi.URLParam(r, "id")

	userID, ok := s.authenticateRaw(w, r)
	if !ok {
		return
	}

	data, mimeType, err := s.services.Recipe.GetImage(ctx, userID, recipeID)
	if err != nil {
		s.writeServiceError(w, err, "get recipe image", recipeID)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", CacheOneDayPrivate)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("Failed to write image response", "error", err, "recipe_id", recipeID)
	}
}

// authenticateRaw validates the Authorization header on a plain chi route.
// Writes the 401 itself and reports whether the request may proceed.
func (s *Server) authenticateRaw(w http.ResponseWriter, r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		response.Unauthorized(w, "Missing authorization header", s.logger)
		return "", false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		response.Unauthorized(w, "Invalid authorization header format", s.logger)
		return "", false
	}

	user, _, err := s.services.Auth.VerifyAccessToken(r.Context(), parts[1])
	if err != nil {
		response.Unauthorized(w, "Invalid or expired token", s.logger)
		return "", false
	}

	return user.ID, true
}

// writeServiceError maps a service error onto a plain chi response.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, op, recipeID string) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		response.Error(w, domainErr.HTTPStatus(), domainErr.Message, s.logger)
		return
	}

	s.logger.Error("Request failed", "op", op, "recipe_id", recipeID, "error", err)
	response.InternalError(w, "internal server error", s.logger)
}
