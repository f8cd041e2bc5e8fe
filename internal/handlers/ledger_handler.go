package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/cashbook/backend/internal/middleware"
	"github.com/cashbook/backend/internal/models"
	"github.com/cashbook/backend/internal/services"
)

// LedgerHandler exposes a device session to UI collaborators
type LedgerHandler struct {
	session *services.Session
}

func NewLedgerHandler(session *services.Session) *LedgerHandler {
	return &LedgerHandler{session: session}
}

// LedgerView is everything a UI needs to render the book
type LedgerView struct {
	BookID string              `json:"bookId"`
	Role   models.Role         `json:"role"`
	State  models.AppState     `json:"state"`
	Totals services.Totals     `json:"totals"`
	Sync   services.SyncStatus `json:"sync"`
}

// Routes mounts the ledger API. Mutations are refused on viewer devices.
func (h *LedgerHandler) Routes(r chi.Router) {
	r.Get("/ledger", h.GetLedger)
	r.Get("/ledger/totals", h.GetTotals)
	r.Get("/history", h.GetHistory)
	r.Get("/history/{index}", h.GetHistoryRecord)
	r.Get("/sync/status", h.GetSyncStatus)
	r.Get("/book", h.GetBook)
	r.Put("/book", h.SwitchBook)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireWriter(h.session.Role))

		r.Post("/ledger/out-party", h.AddOutPartyEntry)
		r.Delete("/ledger/out-party/{entryId}", h.DeleteOutPartyEntry)
		r.Post("/ledger/main", h.AddMainEntry)
		r.Delete("/ledger/main/{entryId}", h.DeleteMainEntry)
		r.Post("/ledger/day-end", h.PerformDayEnd)
		r.Post("/sync/push", h.RetryPush)
	})
}

// GetLedger returns the active book
// @Summary Get ledger
// @Tags ledger
// @Produce json
// @Success 200 {object} LedgerView
// @Router /ledger [get]
func (h *LedgerHandler) GetLedger(w http.ResponseWriter, r *http.Request) {
	bookID, state := h.session.Ledger.View()
	writeJSON(w, http.StatusOK, LedgerView{
		BookID: bookID,
		Role:   h.session.Role(),
		State:  state,
		Totals: services.ComputeTotals(state.ActiveDay),
		Sync:   h.session.Sync.Status(),
	})
}

func (h *LedgerHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Ledger.GetTotals())
}

func (h *LedgerHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"history": h.session.Ledger.History(),
	})
}

// GetHistoryRecord returns one archived day
// @Summary Archived day
// @Tags ledger
// @Produce json
// @Param index path int true "0 is the most recent day"
// @Success 200 {object} models.HistoryRecord
// @Failure 404 {object} services.ErrorResponse
// @Router /history/{index} [get]
func (h *LedgerHandler) GetHistoryRecord(w http.ResponseWriter, r *http.Request) {
	i, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		services.SendErrorResponse(w, "Invalid history index", http.StatusBadRequest, nil)
		return
	}
	record, ok := h.session.Ledger.HistoryAt(i)
	if !ok {
		services.SendErrorResponse(w, "History record not found", http.StatusNotFound, nil)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *LedgerHandler) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Sync.Status())
}

// AddOutPartyEntry records an out-party settlement
// @Summary Add out-party entry
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body object{amount=number,method=string} true "Settlement"
// @Success 201 {object} models.OutPartyEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /ledger/out-party [post]
func (h *LedgerHandler) AddOutPartyEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount float64 `json:"amount"`
		Method string  `json:"method"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		sendDecodeError(w, err)
		return
	}

	method, ok := models.ParsePaymentMethod(req.Method)
	if !ok {
		method = models.PaymentMethod(req.Method)
	}

	entry, err := h.session.Ledger.AddOutPartyEntry(r.Context(), req.Amount, method)
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, verr)
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to add out-party entry")
		services.SendErrorResponse(w, "Failed to add entry", http.StatusInternalServerError, nil)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

func (h *LedgerHandler) DeleteOutPartyEntry(w http.ResponseWriter, r *http.Request) {
	h.session.Ledger.DeleteOutPartyEntry(r.Context(), chi.URLParam(r, "entryId"))
	w.WriteHeader(http.StatusNoContent)
}

// AddMainEntry records a room transaction. Amounts that are missing or
// invalid are stored as zero.
// @Summary Add main entry
// @Tags ledger
// @Accept json
// @Produce json
// @Param request body services.MainEntryInput true "Room transaction"
// @Success 201 {object} models.MainEntry
// @Router /ledger/main [post]
func (h *LedgerHandler) AddMainEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RoomNo      string     `json:"roomNo"`
		Description string     `json:"description"`
		Method      string     `json:"method"`
		CashIn      formAmount `json:"cashIn"`
		CashOut     formAmount `json:"cashOut"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		sendDecodeError(w, err)
		return
	}

	method, _ := models.ParsePaymentMethod(req.Method)
	entry := h.session.Ledger.AddMainEntry(r.Context(), services.MainEntryInput{
		RoomNo:      req.RoomNo,
		Description: req.Description,
		Method:      method,
		CashIn:      float64(req.CashIn),
		CashOut:     float64(req.CashOut),
	})
	writeJSON(w, http.StatusCreated, entry)
}

func (h *LedgerHandler) DeleteMainEntry(w http.ResponseWriter, r *http.Request) {
	h.session.Ledger.DeleteMainEntry(r.Context(), chi.URLParam(r, "entryId"))
	w.WriteHeader(http.StatusNoContent)
}

// PerformDayEnd closes the active day
// @Summary Day end
// @Tags ledger
// @Produce json
// @Success 200 {object} models.HistoryRecord
// @Router /ledger/day-end [post]
func (h *LedgerHandler) PerformDayEnd(w http.ResponseWriter, r *http.Request) {
	record := h.session.Ledger.PerformDayEnd(r.Context())
	writeJSON(w, http.StatusOK, record)
}

func (h *LedgerHandler) RetryPush(w http.ResponseWriter, r *http.Request) {
	h.session.Sync.Repush()
	w.WriteHeader(http.StatusAccepted)
}

func (h *LedgerHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"bookId": h.session.Ledger.BookID(),
		"role":   h.session.Role(),
	})
}

// SwitchBook selects another Book ID
// @Summary Switch book
// @Tags book
// @Accept json
// @Produce json
// @Param request body object{bookId=string} true "Book ID"
// @Success 200 {object} LedgerView
// @Failure 400 {object} services.ErrorResponse
// @Router /book [put]
func (h *LedgerHandler) SwitchBook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookID string `json:"bookId"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		sendDecodeError(w, err)
		return
	}

	if _, err := h.session.Sync.SwitchBook(r.Context(), req.BookID); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}
	h.GetLedger(w, r)
}
