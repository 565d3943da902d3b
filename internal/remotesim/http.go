package remotesim

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/finnysync/internal/client/remote"
	"github.com/dmitrijs2005/finnysync/internal/common"
	"github.com/dmitrijs2005/finnysync/internal/logging"
)

// DefaultUser owns every record when authentication is off.
const DefaultUser = "dev"

// DefaultMaxUpload bounds an uploaded image.
const DefaultMaxUpload = 10 << 20

type userKey struct{}

func userFrom(ctx context.Context) string {
	if u, ok := ctx.Value(userKey{}).(string); ok {
		return u
	}
	return DefaultUser
}

// HTTPHandler serves the JSON API. Routes are relative to where the handler
// is mounted; NewHTTPHandler's prefix is stripped first.
type HTTPHandler struct {
	backend   *Backend
	issuer    *Issuer
	log       logging.Logger
	maxUpload int64
	mux       *http.ServeMux
}

// NewHTTPHandler builds the API under prefix (e.g. "/api"). A nil issuer
// disables authentication.
func NewHTTPHandler(prefix string, b *Backend, issuer *Issuer, log logging.Logger) http.Handler {
	if log == nil {
		log = logging.NewNop()
	}
	h := &HTTPHandler{
		backend:   b,
		issuer:    issuer,
		log:       log.With("component", "remotesim.http"),
		maxUpload: DefaultMaxUpload,
		mux:       http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /health", h.health)
	h.mux.HandleFunc("POST /auth/token", h.token)
	h.mux.HandleFunc("POST /auth/refresh", h.refresh)
	h.mux.HandleFunc("GET /files/{name}", h.file)

	h.mux.Handle("GET /budgets/list", h.auth(h.listBudgets))
	h.mux.Handle("POST /budgets/create", h.auth(h.createBudget))
	h.mux.Handle("PUT /budgets/{id}", h.auth(h.updateBudget))
	h.mux.Handle("DELETE /budgets/{id}", h.auth(h.deleteBudget))
	h.mux.Handle("POST /transactions/list", h.auth(h.listTransactions))
	h.mux.Handle("POST /transactions/create", h.auth(h.createTransaction))
	h.mux.Handle("PUT /transactions/{id}", h.auth(h.updateTransaction))
	h.mux.Handle("DELETE /transactions/{id}", h.auth(h.deleteTransaction))
	h.mux.Handle("POST /upload/image", h.auth(h.upload))

	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		return h.logged(h.mux)
	}
	return h.logged(http.StripPrefix(prefix, h.mux))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (h *HTTPHandler) logged(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.log.Debug(r.Context(), "request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// auth resolves the bearer token into the request's user.
func (h *HTTPHandler) auth(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.issuer == nil {
			next(w, r)
			return
		}
		header := r.Header.Get(common.AuthorizationHeaderName)
		token, ok := strings.CutPrefix(header, common.BearerPrefix)
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing token")
			return
		}
		userID, err := h.issuer.UserID(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		next(w, r.WithContext(context.WithValue(r.Context(), userKey{}, userID)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(remote.Envelope[any]{Status: status, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(remote.Envelope[any]{Status: status, Message: msg})
}

// httpStatus maps backend errors onto response codes.
func httpStatus(err error) int {
	if f, ok := AsFault(err); ok {
		switch f.Kind {
		case FaultTransport:
			return http.StatusServiceUnavailable
		case FaultUnauthorized:
			return http.StatusUnauthorized
		default:
			return http.StatusBadRequest
		}
	}
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func reply(w http.ResponseWriter, v any, err error) {
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body: "+err.Error())
		return false
	}
	return true
}

func (h *HTTPHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// tokenRequest asks for a credential pair. Development only: any user id is
// accepted.
type tokenRequest struct {
	UserID string `json:"user_id"`
}

func (h *HTTPHandler) token(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		writeError(w, http.StatusNotFound, "authentication disabled")
		return
	}
	var req tokenRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	tokens, err := h.issuer.Login(req.UserID)
	reply(w, tokens, err)
}

func (h *HTTPHandler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.issuer == nil {
		writeError(w, http.StatusNotFound, "authentication disabled")
		return
	}
	if err := h.backend.enter(remote.MethodRefresh); err != nil {
		reply(w, nil, err)
		return
	}
	var req remote.RefreshRequest
	if !decode(w, r, &req) {
		return
	}
	tokens, err := h.issuer.Refresh(req.RefreshToken)
	reply(w, tokens, err)
}

func (h *HTTPHandler) file(w http.ResponseWriter, r *http.Request) {
	data, ok := h.backend.File(r.PathValue("name"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(data))
	_, _ = w.Write(data)
}

func (h *HTTPHandler) listBudgets(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	v, err := h.backend.ListBudgets(userFrom(r.Context()), page)
	reply(w, v, err)
}

func (h *HTTPHandler) createBudget(w http.ResponseWriter, r *http.Request) {
	var p remote.BudgetPayload
	if !decode(w, r, &p) {
		return
	}
	v, err := h.backend.CreateBudget(userFrom(r.Context()), p)
	reply(w, v, err)
}

func (h *HTTPHandler) updateBudget(w http.ResponseWriter, r *http.Request) {
	var p remote.BudgetPayload
	if !decode(w, r, &p) {
		return
	}
	v, err := h.backend.UpdateBudget(userFrom(r.Context()), r.PathValue("id"), p)
	reply(w, v, err)
}

func (h *HTTPHandler) deleteBudget(w http.ResponseWriter, r *http.Request) {
	err := h.backend.DeleteBudget(userFrom(r.Context()), r.PathValue("id"))
	reply(w, map[string]string{}, err)
}

func (h *HTTPHandler) listTransactions(w http.ResponseWriter, r *http.Request) {
	var req remote.TransactionListRequest
	if !decode(w, r, &req) {
		return
	}
	v, err := h.backend.ListTransactions(userFrom(r.Context()), req.Page, req.Filter)
	reply(w, v, err)
}

func (h *HTTPHandler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var p remote.TransactionPayload
	if !decode(w, r, &p) {
		return
	}
	v, err := h.backend.CreateTransaction(userFrom(r.Context()), p)
	reply(w, v, err)
}

func (h *HTTPHandler) updateTransaction(w http.ResponseWriter, r *http.Request) {
	var p remote.TransactionPayload
	if !decode(w, r, &p) {
		return
	}
	v, err := h.backend.UpdateTransaction(userFrom(r.Context()), r.PathValue("id"), p)
	reply(w, v, err)
}

func (h *HTTPHandler) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	err := h.backend.DeleteTransaction(userFrom(r.Context()), r.PathValue("id"))
	reply(w, map[string]string{}, err)
}

func (h *HTTPHandler) upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	f, hdr, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image field: "+err.Error())
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.backend.Upload(hdr.Filename, data)
	reply(w, v, err)
}
