package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-sellers/internal/otp"
	"github.com/mmeshcher/marketplace-sellers/internal/ratelimit"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, details any) {
	writeJSON(w, status, errorResponse{Error: msg, Details: details})
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{service.ErrSellerNotFound, http.StatusNotFound},
	{service.ErrProductNotFound, http.StatusNotFound},
	{service.ErrOrderNotFound, http.StatusNotFound},

	{service.ErrDuplicateEmail, http.StatusConflict},
	{service.ErrDuplicateNationalID, http.StatusConflict},

	{service.ErrForbidden, http.StatusForbidden},
	{service.ErrOTPLocked, http.StatusTooManyRequests},
	{service.ErrNotificationFailed, http.StatusServiceUnavailable},

	{service.ErrInvalidCredentials, http.StatusBadRequest},
	{service.ErrAlreadyVerified, http.StatusBadRequest},
	{service.ErrInsufficientBalance, http.StatusBadRequest},
	{service.ErrReasonRequired, http.StatusBadRequest},
	{service.ErrInvalidStatus, http.StatusBadRequest},
	{service.ErrInvalidOrderTransition, http.StatusBadRequest},
	{otp.ErrNotIssued, http.StatusBadRequest},
	{otp.ErrExpired, http.StatusBadRequest},
	{otp.ErrMismatch, http.StatusBadRequest},
}

// fail отвечает клиенту по типу ошибки. Неизвестные ошибки логируются,
// а клиент получает только общий текст.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, "validation failed", verr.Fields)
		return
	}

	var notApproved *service.NotApprovedError
	if errors.As(err, &notApproved) {
		writeError(w, http.StatusForbidden, "seller account is not approved",
			map[string]string{"status": string(notApproved.Status)})
		return
	}

	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			if e.status >= http.StatusInternalServerError {
				h.logger.Warn(op+" error", zap.Error(err))
			}
			writeError(w, e.status, e.err.Error(), nil)
			return
		}
	}

	h.logger.Error(op+" error", zap.Error(err), zap.String("path", r.URL.Path))
	writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), nil)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", nil)
		return false
	}
	return true
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return page, limit
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// allow применяет ограничитель частоты. Ошибка ограничителя не блокирует запрос.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, limiter ratelimit.Limiter, key string) bool {
	if limiter == nil {
		return true
	}

	ok, retryAfter, err := limiter.Allow(r.Context(), key, time.Now())
	if err != nil {
		h.logger.Warn("rate limiter error", zap.Error(err), zap.String("key", key))
		return true
	}
	if ok {
		return true
	}

	secs := int(retryAfter.Round(time.Second) / time.Second)
	if secs < 1 {
		secs = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(secs))
	writeError(w, http.StatusTooManyRequests, "too many requests, try again later", nil)
	return false
}
