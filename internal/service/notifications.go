package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type notificationKind int

const (
	notifyApproval notificationKind = iota + 1
	notifyRejection
)

type notification struct {
	kind   notificationKind
	to     string
	name   string
	reason string
}

const drainTimeout = 5 * time.Second

// enqueue ставит письмо в очередь. При переполненной очереди письмо отбрасывается,
// переход статуса при этом уже сохранён.
func (s *Service) enqueue(n notification) {
	select {
	case s.notifications <- n:
	default:
		s.logger.Error("notification queue is full, dropping email",
			zap.String("to", n.to),
			zap.Int("kind", int(n.kind)),
		)
	}
}

// RunNotifications отправляет письма об одобрении и отклонении до отмены ctx.
// После отмены оставшиеся в очереди письма отправляются с ограничением по времени.
func (s *Service) RunNotifications(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.drainNotifications(ctx)
			return nil
		case n := <-s.notifications:
			s.deliver(ctx, n)
		}
	}
}

func (s *Service) drainNotifications(parent context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), drainTimeout)
	defer cancel()

	for {
		select {
		case n := <-s.notifications:
			if ctx.Err() != nil {
				s.logger.Warn("shutdown: dropping queued email", zap.String("to", n.to))
				continue
			}
			s.deliver(ctx, n)
		default:
			return
		}
	}
}

func (s *Service) deliver(ctx context.Context, n notification) {
	var err error
	switch n.kind {
	case notifyApproval:
		err = s.notifier.SendApproval(ctx, n.to, n.name)
	case notifyRejection:
		err = s.notifier.SendRejection(ctx, n.to, n.name, n.reason)
	default:
		return
	}

	if err != nil {
		s.logger.Warn("failed to send seller notification",
			zap.String("to", n.to),
			zap.Int("kind", int(n.kind)),
			zap.Error(err),
		)
	}
}
