package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-sellers/internal/middleware"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/otp"
	"github.com/mmeshcher/marketplace-sellers/internal/ratelimit"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
	"github.com/mmeshcher/marketplace-sellers/internal/validation"
)

// stubService переопределяет только нужные тесту методы; вызов остальных паникует.
type stubService struct {
	Service

	signup           func(in service.SignupInput) (*service.SignupResult, error)
	resendOTP        func(email string) error
	login            func(email, password string) (*model.Seller, error)
	authorize        func(id string) (*model.Seller, error)
	requireApproved  func(id string) (*model.Seller, error)
	listProducts     func(id string) (*service.ProductList, error)
	authenticate     func(email, password string) error
	pendingApprovals func() (*service.SellerList, error)
	rejectSeller     func(id, reason string) (*model.Seller, error)
}

func (s *stubService) Signup(_ context.Context, in service.SignupInput) (*service.SignupResult, error) {
	return s.signup(in)
}

func (s *stubService) ResendOTP(_ context.Context, email string) error {
	return s.resendOTP(email)
}

func (s *stubService) Login(_ context.Context, email, password string) (*model.Seller, error) {
	return s.login(email, password)
}

func (s *stubService) AuthorizeSeller(_ context.Context, id string) (*model.Seller, error) {
	return s.authorize(id)
}

func (s *stubService) RequireApproved(_ context.Context, id string) (*model.Seller, error) {
	return s.requireApproved(id)
}

func (s *stubService) ListProducts(_ context.Context, id string, _, _ int) (*service.ProductList, error) {
	return s.listProducts(id)
}

func (s *stubService) AuthenticateAdmin(email, password string) error {
	return s.authenticate(email, password)
}

func (s *stubService) PendingApprovals(context.Context, int, int) (*service.SellerList, error) {
	return s.pendingApprovals()
}

func (s *stubService) RejectSeller(_ context.Context, id, reason string) (*model.Seller, error) {
	return s.rejectSeller(id, reason)
}

type stubDocuments struct {
	name string
	body string
	err  error
}

func (d *stubDocuments) Upload(_ context.Context, originalName, _ string, r io.Reader, _ int64) (string, error) {
	if d.err != nil {
		return "", d.err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	d.name, d.body = originalName, string(b)
	return "id-documents/stored.pdf", nil
}

func newTestHandler(t *testing.T, svc Service, opts Options) *Handler {
	t.Helper()
	return NewHandler(svc, zap.NewNop(), middleware.NewAuthMiddleware("test-secret"), opts)
}

func pendingSeller() *model.Seller {
	return &model.Seller{
		ID:        "seller-1",
		Name:      "Jane",
		Email:     "jane@example.com",
		Status:    model.SellerStatusPending,
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestFail_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", &service.ValidationError{Fields: validation.Errors{"email": "invalid"}}, http.StatusBadRequest},
		{"not approved", &service.NotApprovedError{Status: model.SellerStatusRejected}, http.StatusForbidden},
		{"seller not found", fmt.Errorf("get: %w", service.ErrSellerNotFound), http.StatusNotFound},
		{"product not found", service.ErrProductNotFound, http.StatusNotFound},
		{"order not found", service.ErrOrderNotFound, http.StatusNotFound},
		{"duplicate email", service.ErrDuplicateEmail, http.StatusConflict},
		{"duplicate national id", service.ErrDuplicateNationalID, http.StatusConflict},
		{"forbidden", service.ErrForbidden, http.StatusForbidden},
		{"otp locked", service.ErrOTPLocked, http.StatusTooManyRequests},
		{"notification", fmt.Errorf("%w: %w", service.ErrNotificationFailed, errors.New("smtp down")), http.StatusServiceUnavailable},
		{"credentials", service.ErrInvalidCredentials, http.StatusBadRequest},
		{"insufficient balance", service.ErrInsufficientBalance, http.StatusBadRequest},
		{"reason required", service.ErrReasonRequired, http.StatusBadRequest},
		{"otp expired", otp.ErrExpired, http.StatusBadRequest},
		{"otp mismatch", otp.ErrMismatch, http.StatusBadRequest},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError},
	}

	h := newTestHandler(t, &stubService{}, Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), "test", tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestFail_HidesInternalErrors(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})
	rec := httptest.NewRecorder()

	h.fail(rec, httptest.NewRequest(http.MethodGet, "/", nil), "test", errors.New("password=secret"))

	resp := decodeError(t, rec)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error)
	assert.NotContains(t, rec.Body.String(), "secret")
}

func TestSignup_IssuesToken(t *testing.T) {
	svc := &stubService{
		signup: func(in service.SignupInput) (*service.SignupResult, error) {
			assert.Equal(t, "jane@example.com", in.Email)
			return &service.SignupResult{Seller: pendingSeller(), OTPSent: true}, nil
		},
	}
	h := newTestHandler(t, svc, Options{})

	rec := doJSON(t, h.SetupRouter(), http.MethodPost, "/api/seller/signup", "", map[string]string{
		"email": "jane@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp signupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.OTPSent)
	assert.Equal(t, "pending", resp.Seller.Status)
	assert.False(t, resp.Seller.IsApproved)

	claims, err := h.authMiddleware.ParseToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "seller-1", claims.Subject)
	assert.Equal(t, middleware.RoleSeller, claims.Role)
}

func TestSignup_OTPNotSent(t *testing.T) {
	svc := &stubService{
		signup: func(service.SignupInput) (*service.SignupResult, error) {
			return &service.SignupResult{Seller: pendingSeller()}, nil
		},
	}
	h := newTestHandler(t, svc, Options{})

	rec := doJSON(t, h.SetupRouter(), http.MethodPost, "/api/seller/signup", "", map[string]string{})
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp signupResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.False(t, resp.OTPSent)
	assert.Contains(t, resp.Message, "could not be sent")
}

func TestSignup_MultipartUploadsDocument(t *testing.T) {
	docs := &stubDocuments{}
	var got service.SignupInput
	svc := &stubService{
		signup: func(in service.SignupInput) (*service.SignupResult, error) {
			got = in
			return &service.SignupResult{Seller: pendingSeller(), OTPSent: true}, nil
		},
	}
	h := newTestHandler(t, svc, Options{Documents: docs})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("name", "Jane"))
	require.NoError(t, mw.WriteField("email", "jane@example.com"))
	require.NoError(t, mw.WriteField("nationalId", "12345678901234"))
	fw, err := mw.CreateFormFile("idDocument", "passport.pdf")
	require.NoError(t, err)
	_, err = fw.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/seller/signup", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "passport.pdf", docs.name)
	assert.Equal(t, "%PDF-1.4", docs.body)
	assert.Equal(t, "id-documents/stored.pdf", got.IDDocument)
	assert.Equal(t, "12345678901234", got.NationalID)
}

func TestSignup_MultipartWithoutStore(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("idDocument", "passport.pdf")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("x"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/seller/signup", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignup_InvalidBody(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/seller/signup", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.SetupRouter().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSendOTP_RateLimited(t *testing.T) {
	calls := 0
	svc := &stubService{
		resendOTP: func(string) error {
			calls++
			return nil
		},
	}
	h := newTestHandler(t, svc, Options{OTPLimiter: ratelimit.NewMemory(1, time.Minute)})
	router := h.SetupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/seller/send-otp", "", emailRequest{Email: "jane@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/seller/send-otp", "", emailRequest{Email: " JANE@example.com"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 1, calls)
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, time.Time) (bool, time.Duration, error) {
	return false, 0, errors.New("redis: connection refused")
}

func TestLogin_LimiterErrorFailsOpen(t *testing.T) {
	svc := &stubService{
		login: func(email, password string) (*model.Seller, error) {
			return pendingSeller(), nil
		},
	}
	h := newTestHandler(t, svc, Options{LoginLimiter: failingLimiter{}})

	rec := doJSON(t, h.SetupRouter(), http.MethodPost, "/api/seller/login", "", credentialsRequest{
		Email: "jane@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp loginResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc := &stubService{
		login: func(string, string) (*model.Seller, error) {
			return nil, service.ErrInvalidCredentials
		},
	}
	h := newTestHandler(t, svc, Options{})

	rec := doJSON(t, h.SetupRouter(), http.MethodPost, "/api/seller/login", "", credentialsRequest{
		Email: "jane@example.com", Password: "wrong",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatus_RequiresToken(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/status", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatus_PendingSeller(t *testing.T) {
	svc := &stubService{
		authorize: func(id string) (*model.Seller, error) {
			assert.Equal(t, "seller-1", id)
			return pendingSeller(), nil
		},
	}
	h := newTestHandler(t, svc, Options{})
	token, err := h.authMiddleware.IssueToken("seller-1", middleware.RoleSeller)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/status", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "pending", resp.Status)
	assert.False(t, resp.IsApproved)
}

func TestProducts_NotApproved(t *testing.T) {
	svc := &stubService{
		requireApproved: func(string) (*model.Seller, error) {
			return nil, &service.NotApprovedError{Status: model.SellerStatusPending}
		},
	}
	h := newTestHandler(t, svc, Options{})
	token, err := h.authMiddleware.IssueToken("seller-1", middleware.RoleSeller)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/products", token, nil)
	require.Equal(t, http.StatusForbidden, rec.Code)

	resp := decodeError(t, rec)
	assert.Equal(t, map[string]any{"status": "pending"}, resp.Details)
}

func TestProducts_ApprovedSeller(t *testing.T) {
	svc := &stubService{
		requireApproved: func(string) (*model.Seller, error) {
			s := pendingSeller()
			s.Status, s.IsApproved = model.SellerStatusApproved, true
			return s, nil
		},
		listProducts: func(id string) (*service.ProductList, error) {
			return &service.ProductList{
				Products: []model.Product{{ID: 7, SellerID: id, Name: "Mug", Price: 1250}},
				Total:    11,
				Page:     model.Page{Page: 2, Limit: 10},
			}, nil
		},
	}
	h := newTestHandler(t, svc, Options{})
	token, err := h.authMiddleware.IssueToken("seller-1", middleware.RoleSeller)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/products?page=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 1)
	assert.InDelta(t, 12.5, resp.Products[0].Price, 0.001)
	assert.Equal(t, []string{}, resp.Products[0].Images)
	assert.Equal(t, paginationResponse{Page: 2, Limit: 10, Total: 11, Pages: 2}, resp.Pagination)
}

func TestProduct_InvalidID(t *testing.T) {
	svc := &stubService{
		requireApproved: func(string) (*model.Seller, error) { return pendingSeller(), nil },
	}
	h := newTestHandler(t, svc, Options{})
	token, err := h.authMiddleware.IssueToken("seller-1", middleware.RoleSeller)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/products/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminRoutes_RejectSellerToken(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})
	token, err := h.authMiddleware.IssueToken("seller-1", middleware.RoleSeller)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/admin/sellers/pending-approvals", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSellerRoutes_RejectAdminToken(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})
	token, err := h.authMiddleware.IssueToken("admin", middleware.RoleAdmin)
	require.NoError(t, err)

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/seller/status", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdminLogin_AndPendingApprovals(t *testing.T) {
	svc := &stubService{
		authenticate: func(email, password string) error {
			if email == "admin@example.com" && password == "admin123" {
				return nil
			}
			return service.ErrInvalidCredentials
		},
		pendingApprovals: func() (*service.SellerList, error) {
			return &service.SellerList{
				Sellers: []model.Seller{*pendingSeller()},
				Total:   1,
				Page:    model.Page{Page: 1, Limit: 10},
			}, nil
		},
	}
	h := newTestHandler(t, svc, Options{})
	router := h.SetupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/admin/login", "", credentialsRequest{
		Email: "admin@example.com", Password: "wrong",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/login", "", credentialsRequest{
		Email: "admin@example.com", Password: "admin123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&login))

	rec = doJSON(t, router, http.MethodGet, "/api/admin/sellers/pending-approvals", login["token"], nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sellersResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Sellers, 1)
	assert.Equal(t, "seller-1", resp.Sellers[0].ID)
	assert.Empty(t, resp.Sellers[0].NationalID)
}

func TestRejectSeller_ReasonRequired(t *testing.T) {
	svc := &stubService{
		rejectSeller: func(id, reason string) (*model.Seller, error) {
			assert.Equal(t, "seller-9", id)
			if strings.TrimSpace(reason) == "" {
				return nil, service.ErrReasonRequired
			}
			s := pendingSeller()
			s.Status, s.RejectionReason = model.SellerStatusRejected, reason
			return s, nil
		},
	}
	h := newTestHandler(t, svc, Options{})
	token, err := h.authMiddleware.IssueToken("admin", middleware.RoleAdmin)
	require.NoError(t, err)
	router := h.SetupRouter()

	rec := doJSON(t, router, http.MethodPost, "/api/admin/sellers/seller-9/reject", token, rejectRequest{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, http.MethodPost, "/api/admin/sellers/seller-9/reject", token, rejectRequest{Reason: "blurry ID"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp sellerActionResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "rejected", resp.Seller.Status)
	assert.Equal(t, "blurry ID", resp.Seller.RejectionReason)
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{
		Health: func(context.Context) error { return errors.New("db down") },
	})

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNotFound_JSON(t *testing.T) {
	h := newTestHandler(t, &stubService{}, Options{})

	rec := doJSON(t, h.SetupRouter(), http.MethodGet, "/api/unknown", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}
