package notify

import (
	"sync"

	"FollowFeed/internal/domain/models"
)

// DefaultInboxSize is how many notifications the inbox keeps.
const DefaultInboxSize = 50

// Inbox keeps the most recent notifications, newest first.
type Inbox struct {
	mu    sync.RWMutex
	items []models.Notification
	size  int
}

func NewInbox(size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{size: size}
}

func (i *Inbox) Add(n models.Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.items = append([]models.Notification{n}, i.items...)
	if len(i.items) > i.size {
		i.items = i.items[:i.size]
	}
}

// List returns up to limit notifications. A non-positive limit returns everything.
func (i *Inbox) List(limit int) []models.Notification {
	i.mu.RLock()
	defer i.mu.RUnlock()

	n := len(i.items)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]models.Notification, n)
	copy(out, i.items[:n])
	return out
}

func (i *Inbox) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.items)
}
