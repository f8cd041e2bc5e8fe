package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cashbook/backend/internal/metrics"
	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/services"
	"github.com/cashbook/backend/internal/store"
)

// BookStoreHandler serves the shared book store: one whole AppState per
// Book ID, overwritten by PUT and read back by GET. It never merges.
type BookStoreHandler struct {
	slots     store.SlotStore
	validator *services.ValidationHelper
	metrics   *metrics.Registry
}

func NewBookStoreHandler(slots store.SlotStore, m *metrics.Registry) *BookStoreHandler {
	if m == nil {
		m = metrics.NewRegistry(nil)
	}
	return &BookStoreHandler{
		slots:     slots,
		validator: services.NewValidationHelper(),
		metrics:   m,
	}
}

func (h *BookStoreHandler) Routes(r chi.Router) {
	r.Get("/books/{bookId}", h.GetBook)
	r.Put("/books/{bookId}", h.PutBook)
}

// GetBook returns the stored value for a Book ID
// @Summary Fetch book
// @Tags books
// @Produce json
// @Param bookId path string true "Book ID"
// @Success 200 {object} models.AppState
// @Failure 404 {object} services.ErrorResponse
// @Router /books/{bookId} [get]
func (h *BookStoreHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")

	data, err := h.slots.Get(r.Context(), bookID)
	if errors.Is(err, store.ErrSlotNotFound) {
		h.metrics.BookStoreOps.WithLabelValues("get", "not_found").Inc()
		services.SendErrorResponse(w, "Book not found", http.StatusNotFound, nil)
		return
	}
	if err != nil {
		h.metrics.BookStoreOps.WithLabelValues("get", "error").Inc()
		log.Error().Err(err).Str("book_id", bookID).Msg("Failed to read book")
		services.SendErrorResponse(w, "Failed to read book", http.StatusInternalServerError, nil)
		return
	}

	h.metrics.BookStoreOps.WithLabelValues("get", "ok").Inc()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// PutBook overwrites the stored value for a Book ID
// @Summary Overwrite book
// @Tags books
// @Accept json
// @Param bookId path string true "Book ID"
// @Param state body models.AppState true "Whole app state"
// @Success 204
// @Failure 400 {object} services.ErrorResponse
// @Router /books/{bookId} [put]
func (h *BookStoreHandler) PutBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}

	var state models.AppState
	if err := json.Unmarshal(data, &state); err != nil {
		h.metrics.BookStoreOps.WithLabelValues("put", "invalid").Inc()
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&state); err != nil {
		h.metrics.BookStoreOps.WithLabelValues("put", "invalid").Inc()
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if err := h.slots.Put(r.Context(), bookID, data); err != nil {
		h.metrics.BookStoreOps.WithLabelValues("put", "error").Inc()
		log.Error().Err(err).Str("book_id", bookID).Msg("Failed to store book")
		services.SendErrorResponse(w, "Failed to store book", http.StatusInternalServerError, nil)
		return
	}

	h.metrics.BookStoreOps.WithLabelValues("put", "ok").Inc()
	log.Debug().Str("book_id", bookID).Int64("last_updated", state.ActiveDay.LastUpdated).Msg("Book stored")
	w.WriteHeader(http.StatusNoContent)
}
