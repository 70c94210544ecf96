package shop

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/gleam-storefront/internal/domain/notification"
)

// Notifications returns the mirrored notifications, newest first.
func (s *Service) Notifications() []notification.Notification {
	return s.notifications.Snapshot()
}

// MarkNotificationRead flags one notification as read.
func (s *Service) MarkNotificationRead(ctx context.Context, id string) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	stored, err := s.store.Update(ctx, notification.Table, id, map[string]any{
		"is_read": true,
	})
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	n, err := decodeRow[notification.Notification](stored)
	if err != nil {
		s.lg.Warn("malformed notification write result", zap.Error(err))
		return nil
	}
	s.notifications.Upsert(n)
	return nil
}

// MarkAllNotificationsRead flags every unread notification as read.
func (s *Service) MarkAllNotificationsRead(ctx context.Context) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	for _, n := range s.notifications.Snapshot() {
		if n.IsRead {
			continue
		}
		if err := s.MarkNotificationRead(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteNotification removes one notification.
func (s *Service) DeleteNotification(ctx context.Context, id string) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	if err := s.store.Delete(ctx, notification.Table, id); err != nil {
		return errors.Wrap(err, "delete notification")
	}
	s.notifications.Remove(id)
	return nil
}

// ClearNotifications removes every notification for the user.
func (s *Service) ClearNotifications(ctx context.Context) error {
	if s.id.ID == "" {
		return ErrNotAuthenticated
	}
	for _, n := range s.notifications.Snapshot() {
		if err := s.DeleteNotification(ctx, n.ID); err != nil {
			return err
		}
	}
	return nil
}
