package service

import (
	"errors"
	"fmt"

	"github.com/mmeshcher/marketplace-sellers/internal/model"
	"github.com/mmeshcher/marketplace-sellers/internal/repository"
	"github.com/mmeshcher/marketplace-sellers/internal/validation"
)

// Ошибки хранилища, которые сервис возвращает без изменений.
var (
	ErrSellerNotFound      = repository.ErrSellerNotFound
	ErrDuplicateEmail      = repository.ErrDuplicateEmail
	ErrDuplicateNationalID = repository.ErrDuplicateNationalID
	ErrInsufficientBalance = repository.ErrInsufficientBalance
	ErrProductNotFound     = repository.ErrProductNotFound
	ErrOrderNotFound       = repository.ErrOrderNotFound
)

var (
	// ErrInvalidCredentials возвращается при неверной почте или пароле.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAlreadyVerified возвращается при повторном подтверждении почты.
	ErrAlreadyVerified = errors.New("email already verified")
	// ErrOTPLocked возвращается после исчерпания попыток ввода кода.
	ErrOTPLocked = errors.New("too many failed attempts, request a new code")
	// ErrReasonRequired возвращается при отклонении продавца без причины.
	ErrReasonRequired = errors.New("rejection reason is required")
	// ErrInvalidStatus возвращается при неизвестном статусе.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidOrderTransition возвращается при попытке изменить завершённый заказ.
	ErrInvalidOrderTransition = errors.New("order status can no longer be changed")
	// ErrForbidden возвращается при обращении к чужому ресурсу.
	ErrForbidden = errors.New("access denied")
	// ErrNotificationFailed возвращается, если письмо не удалось отправить и вызывающему важно об этом знать.
	ErrNotificationFailed = errors.New("failed to send email")
)

// ValidationError описывает некорректные поля запроса.
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return e.Fields.Error()
}

func invalidField(field, msg string) error {
	return &ValidationError{Fields: validation.Errors{field: msg}}
}

// NotApprovedError возвращается, когда продавец ещё не допущен к операциям.
type NotApprovedError struct {
	Status model.SellerStatus
}

func (e *NotApprovedError) Error() string {
	return fmt.Sprintf("seller account is not approved (status: %s)", e.Status)
}
