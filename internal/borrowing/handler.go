// internal/borrowing/handler.go
package borrowing

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/chipapapo/library-service/internal/auth"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Routes mounts the borrowing endpoints on a chi router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Post("/{id}/return", h.handleReturn)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "missing principal", http.StatusUnauthorized)
		return
	}

	var req struct {
		BookID             uuid.UUID `json:"book_id"`
		ExpectedReturnDate Date      `json:"expected_return_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b, err := h.service.Create(r.Context(), p.ID, req.BookID, req.ExpectedReturnDate, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(b)
}

func (h *Handler) handleReturn(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid borrowing ID", http.StatusBadRequest)
		return
	}

	b, err := h.service.Return(r.Context(), id, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(b)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "missing principal", http.StatusUnauthorized)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid borrowing ID", http.StatusBadRequest)
		return
	}

	v, err := h.service.Get(r.Context(), p, id)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// handleList maps the is-active, borrow-date and user query parameters to
// ListParams; the role policy itself lives in BuildFilter.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		http.Error(w, "missing principal", http.StatusUnauthorized)
		return
	}

	params := ListParams{IsActive: r.URL.Query().Get("is-active")}

	if raw := r.URL.Query().Get("borrow-date"); raw != "" {
		d, err := ParseDate(raw)
		if err != nil {
			http.Error(w, "invalid borrow-date", http.StatusBadRequest)
			return
		}
		params.BorrowDate = &d
	}

	if raw := r.URL.Query().Get("user"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			http.Error(w, "invalid user filter", http.StatusBadRequest)
			return
		}
		params.UserID = &id
	}

	views, err := h.service.List(r.Context(), p, params)
	if err != nil {
		writeError(w, err)
		return
	}
	if views == nil {
		views = []*View{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(views)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrAlreadyReturned):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrNotAvailable), errors.Is(err, ErrInvalidRange):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
