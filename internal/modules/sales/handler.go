package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/georgemunganga/printa-pos/internal/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// Handler exposes sales HTTP endpoints.
type Handler struct {
	service Service
	loc     *time.Location
}

func NewHandler(service Service, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{service: service, loc: loc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/sales", func(r chi.Router) {
		r.Post("/tax", h.calculateTax)                                           // POST   /api/v1/sales/tax
		r.Post("/transactions", h.createTransaction)                             // POST   /api/v1/sales/transactions
		r.Get("/transactions/{id}", h.getTransaction)                            // GET    /api/v1/sales/transactions/{id}
		r.Get("/transactions/{id}/status", h.getTransactionStatus)               // GET    /api/v1/sales/transactions/{id}/status
		r.Put("/transactions/{id}", h.updateTransaction)                         // PUT    /api/v1/sales/transactions/{id}
		r.Post("/suspended", h.suspend)                                          // POST   /api/v1/sales/suspended
		r.Get("/{business_entity_id}/suspended-transactions", h.listSuspended)   // GET    /api/v1/sales/{beid}/suspended-transactions
		r.Delete("/{business_entity_id}/suspended-transactions/{id}", h.restore) // DELETE /api/v1/sales/{beid}/suspended-transactions/{id}
	})
}

func (h *Handler) calculateTax(w http.ResponseWriter, r *http.Request) {
	var details []SalesDetail
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.CalculateTax(r.Context(), details)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, res)
}

type createResponse struct {
	Transaction Memento        `json:"transaction"`
	Payment     *PaymentIntent `json:"payment"`
}

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}
	res, err := h.service.CreateTransaction(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusCreated, createResponse{
		Transaction: ToMemento(res.Transaction, h.loc),
		Payment:     res.Payment,
	})
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ToMemento(tx, h.loc))
}

func (h *Handler) getTransactionStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	view, err := h.service.GetTransactionStatus(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, view)
}

func (h *Handler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := transactionID(w, r)
	if !ok {
		return
	}
	var details []SalesDetail
	if err := json.NewDecoder(r.Body).Decode(&details); err != nil {
		badRequest(w, err)
		return
	}
	tx, err := h.service.UpdateTransaction(r.Context(), id, details)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, ToMemento(tx, h.loc))
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, err)
		return
	}
	txs, err := h.service.Suspend(r.Context(), req)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, h.mementos(txs))
}

func (h *Handler) listSuspended(w http.ResponseWriter, r *http.Request) {
	beid, ok := businessEntityID(w, r)
	if !ok {
		return
	}
	txs, err := h.service.ListSuspended(r.Context(), beid)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, h.mementos(txs))
}

func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	beid, ok := businessEntityID(w, r)
	if !ok {
		return
	}
	txs, err := h.service.Restore(r.Context(), beid, chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, h.mementos(txs))
}

func (h *Handler) mementos(txs []*SalesTransaction) []Memento {
	out := make([]Memento, 0, len(txs))
	for _, tx := range txs {
		out = append(out, ToMemento(tx, h.loc))
	}
	return out
}

func transactionID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, apperr.New(apperr.CodeNotFound, "sales transaction %s not found", raw))
		return uuid.Nil, false
	}
	return id, true
}

func businessEntityID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "business_entity_id"), 10, 64)
	if err != nil {
		badRequest(w, errors.New("invalid business_entity_id"))
		return 0, false
	}
	return id, true
}

var statusByCode = map[apperr.Code]int{
	apperr.CodeEmptySale:             http.StatusBadRequest,
	apperr.CodeEmptyUpdate:           http.StatusBadRequest,
	apperr.CodeInvalidAmount:         http.StatusBadRequest,
	apperr.CodeEmptyTransaction:      http.StatusBadRequest,
	apperr.CodeNotFound:              http.StatusNotFound,
	apperr.CodeIllegalTransition:     http.StatusConflict,
	apperr.CodeConflict:              http.StatusConflict,
	apperr.CodeInventoryUpdateFailed: http.StatusUnprocessableEntity,
	apperr.CodePaymentServiceError:   http.StatusBadGateway,
}

// respondError renders coded errors with their own message only; causes and
// uncoded errors stay in the logs.
func respondError(w http.ResponseWriter, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) || e.Code == apperr.CodeInternal {
		respond(w, http.StatusInternalServerError, map[string]string{"code": string(apperr.CodeInternal), "error": "internal error"})
		return
	}
	status, ok := statusByCode[e.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	respond(w, status, map[string]string{"code": string(e.Code), "error": e.Message})
}

func badRequest(w http.ResponseWriter, err error) {
	respond(w, http.StatusBadRequest, map[string]string{"code": "BAD_REQUEST", "error": err.Error()})
}

func respond(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
