package mailer

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"

	"golang.org/x/oauth2"
)

var transientMarkers = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"timeout",
	"etimedout",
	"econnrefused",
	"econnreset",
	"enotfound",
}

// IsTransient сообщает, что ошибка вызвана временным сетевым сбоем и отправку стоит повторить.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return false
	}

	var tokenErr *oauth2.RetrieveError
	if errors.As(err, &tokenErr) {
		return false
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ETIMEDOUT) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}

	return false
}
