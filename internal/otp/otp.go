// Package otp генерирует и проверяет одноразовые коды подтверждения почты.
package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"
)

// DefaultTTL — срок действия кода по умолчанию.
const DefaultTTL = 10 * time.Minute

// MaxAttempts — число неудачных проверок, после которого код блокируется.
const MaxAttempts = 5

const (
	codeMin   = 100000
	codeRange = 900000
)

var (
	// ErrNotIssued возвращается, если код ещё не выдавался или уже использован.
	ErrNotIssued = errors.New("otp not issued")
	// ErrExpired возвращается, если срок действия кода истёк.
	ErrExpired = errors.New("otp expired")
	// ErrMismatch возвращается, если введённый код не совпадает с выданным.
	ErrMismatch = errors.New("otp mismatch")
)

// Code — выданный код и момент окончания его действия.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Generate выдаёт новый шестизначный код, действующий ttl начиная с now.
func Generate(now time.Time, ttl time.Duration) (Code, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeRange))
	if err != nil {
		return Code{}, fmt.Errorf("generate otp: %w", err)
	}

	return Code{
		Value:     fmt.Sprintf("%06d", n.Int64()+codeMin),
		ExpiresAt: now.Add(ttl),
	}, nil
}

// Validate сверяет введённый код с сохранённым. Счётчик попыток ведёт вызывающий.
func Validate(stored Code, provided string, now time.Time) error {
	if stored.Value == "" {
		return ErrNotIssued
	}
	if !now.Before(stored.ExpiresAt) {
		return ErrExpired
	}
	if stored.Value != provided {
		return ErrMismatch
	}
	return nil
}
