package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var ErrNotificationNotFound = errors.New("notification not found")

type ListOptions struct {
	Page       int // 1-based
	PageSize   int
	UnreadOnly bool
}

type ListResult struct {
	Notifications []Notification
	Total         int
	UnreadCount   int
}

type Repository interface {
	Insert(ctx context.Context, n *Notification) (*Notification, error)
	ListByUser(ctx context.Context, userID uuid.UUID, opts ListOptions) (*ListResult, error)
	// MarkRead flips is_read, guarded by ownership: the notification must
	// belong to userID or ErrNotificationNotFound is returned.
	MarkRead(ctx context.Context, id, userID uuid.UUID) (*Notification, error)
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
	ListAdminIDs(ctx context.Context) ([]uuid.UUID, error)
}
