package handler

import (
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-sellers/internal/middleware"
	"github.com/mmeshcher/marketplace-sellers/internal/service"
)

type signupResponse struct {
	Seller  sellerResponse `json:"seller"`
	Token   string         `json:"token"`
	OTPSent bool           `json:"otpSent"`
	Message string         `json:"message"`
}

// Signup регистрирует продавца. Принимает JSON или multipart с файлом idDocument.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if !h.parseSignupForm(w, r, &in) {
			return
		}
	} else if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.service.Signup(r.Context(), in)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}

	token, err := h.authMiddleware.IssueToken(res.Seller.ID, middleware.RoleSeller)
	if err != nil {
		h.fail(w, r, "signup", err)
		return
	}

	msg := "Verification code sent to your email"
	if !res.OTPSent {
		msg = "Account created, but the verification code could not be sent. Request a new code."
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		Seller:  sellerSummary(res.Seller),
		Token:   token,
		OTPSent: res.OTPSent,
		Message: msg,
	})
}

func (h *Handler) parseSignupForm(w http.ResponseWriter, r *http.Request, in *service.SignupInput) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadSize)
	if err := r.ParseMultipartForm(h.opts.MaxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body", nil)
		return false
	}

	in.Name = r.FormValue("name")
	in.Email = r.FormValue("email")
	in.Phone = r.FormValue("phone")
	in.Password = r.FormValue("password")
	in.NationalID = r.FormValue("nationalId")
	in.IDDocument = r.FormValue("idDocument")
	in.BankName = r.FormValue("bankName")
	in.AccountHolder = r.FormValue("accountHolder")
	in.AccountNumber = r.FormValue("accountNumber")
	in.RoutingCode = r.FormValue("routingCode")
	in.StoreName = r.FormValue("storeName")
	in.StoreDescription = r.FormValue("storeDescription")
	in.Address = r.FormValue("address")

	file, header, err := r.FormFile("idDocument")
	if errors.Is(err, http.ErrMissingFile) {
		return true
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid idDocument file", nil)
		return false
	}
	defer file.Close()

	if h.opts.Documents == nil {
		writeError(w, http.StatusBadRequest, "document upload is not available, pass idDocument as a reference", nil)
		return false
	}

	key, err := h.opts.Documents.Upload(r.Context(), header.Filename, header.Header.Get("Content-Type"), file, header.Size)
	if err != nil {
		h.logger.Error("upload id document", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "failed to store document", nil)
		return false
	}
	in.IDDocument = key
	return true
}

type emailRequest struct {
	Email string `json:"email"`
}

// SendOTP повторно отправляет код подтверждения почты.
func (h *Handler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if !h.allow(w, r, h.opts.OTPLimiter, "otp:"+strings.ToLower(strings.TrimSpace(req.Email))) {
		return
	}

	if err := h.service.ResendOTP(r.Context(), req.Email); err != nil {
		h.fail(w, r, "send otp", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Verification code sent to your email"})
}

type verifyRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

// VerifyEmail подтверждает почту продавца кодом.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	seller, err := h.service.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		h.fail(w, r, "verify email", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"seller":  sellerSummary(seller),
	})
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Seller sellerResponse `json:"seller"`
	Token  string         `json:"token"`
}

// Login выполняет вход продавца и выдаёт токен сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	key := "login:" + clientIP(r) + ":" + strings.ToLower(strings.TrimSpace(req.Email))
	if !h.allow(w, r, h.opts.LoginLimiter, key) {
		return
	}

	seller, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	token, err := h.authMiddleware.IssueToken(seller.ID, middleware.RoleSeller)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Seller: sellerSummary(seller), Token: token})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) sellerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.GetSellerIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, http.StatusText(http.StatusUnauthorized), nil)
	}
	return id, ok
}

// Status возвращает состояние заявки продавца.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	seller, err := h.service.AuthorizeSeller(r.Context(), id)
	if err != nil {
		h.fail(w, r, "seller status", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Status:          string(seller.Status),
		IsApproved:      seller.IsApproved,
		IsEmailVerified: seller.IsEmailVerified,
		RejectionReason: seller.RejectionReason,
		CreatedAt:       seller.CreatedAt,
	})
}

// requireApproved пропускает только одобренных продавцов.
func (h *Handler) requireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := h.sellerID(w, r)
		if !ok {
			return
		}
		if _, err := h.service.RequireApproved(r.Context(), id); err != nil {
			h.fail(w, r, "seller authorization", err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetProfile возвращает профиль продавца.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	seller, err := h.service.AuthorizeSeller(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get profile", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerDetail(seller))
}

// UpdateProfile обновляет профиль продавца.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	var in service.ProfileInput
	if !decodeJSON(w, r, &in) {
		return
	}

	seller, err := h.service.UpdateProfile(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}

	writeJSON(w, http.StatusOK, sellerDetail(seller))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// ChangePassword меняет пароль продавца.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	var req changePasswordRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, req.CurrentPassword, req.NewPassword); err != nil {
		h.fail(w, r, "change password", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Password changed successfully"})
}

type withdrawalsResponse struct {
	Withdrawals      []withdrawalResponse `json:"withdrawals"`
	TotalEarnings    float64              `json:"totalEarnings"`
	AvailableBalance float64              `json:"availableBalance"`
}

// GetWithdrawals возвращает историю выводов и доступный остаток.
func (h *Handler) GetWithdrawals(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	summary, err := h.service.Withdrawals(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get withdrawals", err)
		return
	}

	resp := withdrawalsResponse{
		Withdrawals:      make([]withdrawalResponse, 0, len(summary.Withdrawals)),
		TotalEarnings:    toAmount(summary.TotalEarnings),
		AvailableBalance: toAmount(summary.AvailableBalance),
	}
	for i := range summary.Withdrawals {
		resp.Withdrawals = append(resp.Withdrawals, withdrawalView(&summary.Withdrawals[i]))
	}

	writeJSON(w, http.StatusOK, resp)
}

type withdrawRequest struct {
	Amount float64 `json:"amount"`
}

// Withdraw создаёт заявку на вывод средств.
func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	var req withdrawRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	wd, err := h.service.RequestWithdrawal(r.Context(), id, req.Amount)
	if err != nil {
		h.fail(w, r, "withdraw", err)
		return
	}

	writeJSON(w, http.StatusCreated, withdrawalView(wd))
}

// Analytics возвращает сводные показатели продавца.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	id, ok := h.sellerID(w, r)
	if !ok {
		return
	}

	a, err := h.service.Analytics(r.Context(), id)
	if err != nil {
		h.fail(w, r, "analytics", err)
		return
	}

	writeJSON(w, http.StatusOK, analyticsView(a))
}
