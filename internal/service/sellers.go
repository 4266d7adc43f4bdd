package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mmeshcher/marketplace-sellers/internal/events"
	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/otp"
)

// SignupInput содержит данные регистрации продавца.
type SignupInput struct {
	Name             string `json:"name" validate:"required,max=100"`
	Email            string `json:"email" validate:"required,email"`
	Phone            string `json:"phone" validate:"required,phone"`
	Password         string `json:"password" validate:"required,min=6"`
	NationalID       string `json:"nationalId" validate:"required,nationalid"`
	IDDocument       string `json:"idDocument" validate:"required"`
	BankName         string `json:"bankName" validate:"required"`
	AccountHolder    string `json:"accountHolder" validate:"required"`
	AccountNumber    string `json:"accountNumber" validate:"required,numeric,min=6,max=34"`
	RoutingCode      string `json:"routingCode" validate:"required"`
	StoreName        string `json:"storeName" validate:"max=100"`
	StoreDescription string `json:"storeDescription" validate:"max=1000"`
	Address          string `json:"address" validate:"max=300"`
}

// SignupResult описывает итог регистрации.
type SignupResult struct {
	Seller *model.Seller
	// OTPSent сообщает, ушло ли письмо с кодом; при false продавец может запросить код повторно.
	OTPSent bool
}

// Signup регистрирует продавца в статусе pending и отправляет код подтверждения почты.
// Ошибка отправки письма не отменяет регистрацию.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*SignupResult, error) {
	in.Email = normalizeEmail(in.Email)
	in.NationalID = strings.TrimSpace(in.NationalID)
	in.Name = strings.TrimSpace(in.Name)

	if err := s.check(in); err != nil {
		return nil, err
	}

	emailTaken, idTaken, err := s.repo.SellerExists(ctx, in.Email, in.NationalID)
	if err != nil {
		return nil, err
	}
	if emailTaken {
		return nil, ErrDuplicateEmail
	}
	if idTaken {
		return nil, ErrDuplicateNationalID
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	seller := &model.Seller{
		ID:           s.newID(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		NationalID:   in.NationalID,
		IDDocument:   in.IDDocument,
		Bank: model.BankDetails{
			BankName:      in.BankName,
			AccountHolder: in.AccountHolder,
			AccountNumber: in.AccountNumber,
			RoutingCode:   in.RoutingCode,
		},
		StoreName:        in.StoreName,
		StoreDescription: in.StoreDescription,
		Address:          in.Address,
		Status:           model.SellerStatusPending,
	}

	if err := s.repo.CreateSeller(ctx, seller); err != nil {
		return nil, err
	}

	s.observe("registered")
	s.publish(ctx, events.SubjectSellerRegistered, events.SellerEvent{
		SellerID: seller.ID,
		Email:    seller.Email,
		Status:   string(seller.Status),
	})

	res := &SignupResult{Seller: seller}
	code, err := s.issueOTP(ctx, seller)
	if err != nil {
		s.logger.Error("failed to issue otp at signup", zap.String("seller_id", seller.ID), zap.Error(err))
		return res, nil
	}

	if err := s.notifier.SendOTP(ctx, seller.Email, seller.Name, code.Value, s.otpTTL); err != nil {
		s.logger.Warn("failed to send otp at signup", zap.String("seller_id", seller.ID), zap.Error(err))
		return res, nil
	}

	res.OTPSent = true
	return res, nil
}

// issueOTP создаёт новый код, заменяя предыдущий и обнуляя счётчик попыток.
func (s *Service) issueOTP(ctx context.Context, seller *model.Seller) (otp.Code, error) {
	code, err := otp.Generate(s.now(), s.otpTTL)
	if err != nil {
		return otp.Code{}, err
	}

	if err := s.repo.SetSellerOTP(ctx, seller.ID, code.Value, code.ExpiresAt); err != nil {
		return otp.Code{}, err
	}

	expiresAt := code.ExpiresAt
	seller.OTP = model.EmailOTP{Code: code.Value, ExpiresAt: &expiresAt}
	return code, nil
}

// ResendOTP выпускает новый код подтверждения и отправляет его на почту продавца.
func (s *Service) ResendOTP(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return invalidField("email", "is required")
	}

	seller, err := s.repo.GetSellerByEmail(ctx, email)
	if err != nil {
		return err
	}
	if seller.IsEmailVerified {
		return ErrAlreadyVerified
	}

	code, err := s.issueOTP(ctx, seller)
	if err != nil {
		return err
	}

	if err := s.notifier.SendOTP(ctx, seller.Email, seller.Name, code.Value, s.otpTTL); err != nil {
		s.logger.Warn("failed to resend otp", zap.String("seller_id", seller.ID), zap.Error(err))
		return fmt.Errorf("%w: %w", ErrNotificationFailed, err)
	}
	return nil
}

// VerifyEmail проверяет код подтверждения. Каждая неудачная попытка увеличивает счётчик;
// после otp.MaxAttempts попыток проверка блокируется до выпуска нового кода.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) (*model.Seller, error) {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" {
		return nil, invalidField("email", "is required")
	}
	if code == "" {
		return nil, invalidField("otp", "is required")
	}

	seller, err := s.repo.GetSellerByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if seller.IsEmailVerified {
		return nil, ErrAlreadyVerified
	}
	if seller.OTP.Attempts >= otp.MaxAttempts {
		return nil, ErrOTPLocked
	}

	stored := otp.Code{Value: seller.OTP.Code}
	if seller.OTP.ExpiresAt != nil {
		stored.ExpiresAt = *seller.OTP.ExpiresAt
	}

	if verr := otp.Validate(stored, code, s.now()); verr != nil {
		attempts, err := s.repo.IncrementOTPAttempts(ctx, seller.ID)
		if err != nil {
			return nil, err
		}
		s.logger.Info("otp verification failed",
			zap.String("seller_id", seller.ID),
			zap.Int("attempts", attempts),
			zap.Error(verr),
		)
		return nil, verr
	}

	if err := s.repo.MarkEmailVerified(ctx, seller.ID); err != nil {
		return nil, err
	}

	seller.IsEmailVerified = true
	seller.OTP = model.EmailOTP{}

	s.observe("email_verified")
	s.publish(ctx, events.SubjectSellerEmailVerified, events.SellerEvent{
		SellerID: seller.ID,
		Email:    seller.Email,
		Status:   string(seller.Status),
	})
	return seller, nil
}

// Login проверяет почту и пароль продавца. Статус одобрения не проверяется,
// чтобы клиент мог показать продавцу состояние заявки.
func (s *Service) Login(ctx context.Context, email, password string) (*model.Seller, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	seller, err := s.repo.GetSellerByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrSellerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !checkPassword(seller.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return seller, nil
}

// AuthorizeSeller возвращает продавца по идентификатору из токена.
func (s *Service) AuthorizeSeller(ctx context.Context, sellerID string) (*model.Seller, error) {
	return s.repo.GetSellerByID(ctx, sellerID)
}

// RequireApproved возвращает продавца, если он допущен к бизнес-операциям,
// иначе NotApprovedError с текущим статусом.
func (s *Service) RequireApproved(ctx context.Context, sellerID string) (*model.Seller, error) {
	seller, err := s.AuthorizeSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !seller.CanOperate() {
		return nil, &NotApprovedError{Status: seller.Status}
	}
	return seller, nil
}

// ProfileInput содержит изменяемые поля профиля; отсутствующие поля не меняются.
type ProfileInput struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=100"`
	Phone            *string `json:"phone" validate:"omitempty,phone"`
	StoreName        *string `json:"storeName" validate:"omitempty,max=100"`
	StoreDescription *string `json:"storeDescription" validate:"omitempty,max=1000"`
	Address          *string `json:"address" validate:"omitempty,max=300"`
	BankName         *string `json:"bankName" validate:"omitempty,min=1"`
	AccountHolder    *string `json:"accountHolder" validate:"omitempty,min=1"`
	AccountNumber    *string `json:"accountNumber" validate:"omitempty,numeric,min=6,max=34"`
	RoutingCode      *string `json:"routingCode" validate:"omitempty,min=1"`
}

// UpdateProfile обновляет профиль продавца. Частично переданные реквизиты дополняются текущими.
func (s *Service) UpdateProfile(ctx context.Context, sellerID string, in ProfileInput) (*model.Seller, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	current, err := s.AuthorizeSeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	upd := model.ProfileUpdate{
		Name:             in.Name,
		Phone:            in.Phone,
		StoreName:        in.StoreName,
		StoreDescription: in.StoreDescription,
		Address:          in.Address,
	}

	if in.BankName != nil || in.AccountHolder != nil || in.AccountNumber != nil || in.RoutingCode != nil {
		bank := current.Bank
		if in.BankName != nil {
			bank.BankName = *in.BankName
		}
		if in.AccountHolder != nil {
			bank.AccountHolder = *in.AccountHolder
		}
		if in.AccountNumber != nil {
			bank.AccountNumber = *in.AccountNumber
		}
		if in.RoutingCode != nil {
			bank.RoutingCode = *in.RoutingCode
		}
		upd.Bank = &bank
	}

	return s.repo.UpdateSellerProfile(ctx, sellerID, upd)
}

// ChangePassword меняет пароль продавца после проверки текущего.
func (s *Service) ChangePassword(ctx context.Context, sellerID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return invalidField("newPassword", fmt.Sprintf("must be at least %d", minPasswordLen))
	}

	seller, err := s.AuthorizeSeller(ctx, sellerID)
	if err != nil {
		return err
	}
	if !checkPassword(seller.PasswordHash, currentPassword) {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.repo.UpdateSellerPassword(ctx, sellerID, hash)
}

// WithdrawalSummary содержит историю выводов и доступный остаток.
type WithdrawalSummary struct {
	Withdrawals      []model.Withdrawal
	TotalEarnings    int64
	AvailableBalance int64
}

// Withdrawals возвращает заявки продавца на вывод и доступный остаток.
func (s *Service) Withdrawals(ctx context.Context, sellerID string) (*WithdrawalSummary, error) {
	seller, err := s.RequireApproved(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	withdrawals, err := s.repo.GetWithdrawals(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	return &WithdrawalSummary{
		Withdrawals:      withdrawals,
		TotalEarnings:    seller.TotalEarnings,
		AvailableBalance: model.AvailableBalance(seller.TotalEarnings, withdrawals),
	}, nil
}

// RequestWithdrawal создаёт заявку на вывод суммы amount. Сумма не может превышать
// начисления за вычетом всех предыдущих заявок.
func (s *Service) RequestWithdrawal(ctx context.Context, sellerID string, amount float64) (*model.Withdrawal, error) {
	cents := toCents(amount)
	if cents <= 0 {
		return nil, invalidField("amount", "must be greater than 0")
	}

	seller, err := s.RequireApproved(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	withdrawals, err := s.repo.GetWithdrawals(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if cents > model.AvailableBalance(seller.TotalEarnings, withdrawals) {
		return nil, ErrInsufficientBalance
	}

	w, err := s.repo.CreateWithdrawal(ctx, sellerID, cents)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.SubjectWithdrawalRequested, events.SellerEvent{
		SellerID: sellerID,
		Email:    seller.Email,
		Amount:   float64(w.Amount) / 100,
	})
	return w, nil
}
