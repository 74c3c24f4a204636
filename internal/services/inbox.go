package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/saeid-a/CourseHubBack/internal/live"
	"github.com/saeid-a/CourseHubBack/internal/models"
	"github.com/saeid-a/CourseHubBack/pkg/logger"
)

type InboxUpdate struct {
	Kind         live.EventKind       `json:"kind"`
	Notification *models.Notification `json:"notification"`
	UnreadCount  int                  `json:"unread_count"`
}

// InboxView keeps a viewer's notification list and unread count current as
// events arrive. Exactly one live subscription backs it: the viewer's inbox
// topic, or the unfiltered notifications topic when degraded.
type InboxView struct {
	viewer   models.Viewer
	degraded bool

	mu     sync.RWMutex
	items  []models.Notification
	unread int

	sub     *live.Subscription
	updates chan InboxUpdate
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

func (s *NotificationService) OpenInbox(ctx context.Context, viewer models.Viewer) (*InboxView, error) {
	if viewer.ID == "" {
		return nil, ErrForbidden
	}

	// Subscribe before listing so nothing created in between is missed;
	// apply upserts by id, so overlap is harmless.
	sub, err := s.broker.Subscribe(ctx, live.InboxTopic(viewer))
	if err != nil {
		return nil, fmt.Errorf("%w: subscribe inbox: %w", ErrPersistence, err)
	}

	degraded := false
	items, err := s.notifications.ListInbox(ctx, viewer)
	if err != nil && isQueryUnsupported(err) {
		logger.Warn().Err(err).Str("viewer_id", viewer.ID).Msg("inbox query unsupported, falling back to unfiltered subscription")
		sub.Cancel()
		degraded = true

		sub, err = s.broker.Subscribe(ctx, live.AllNotificationsTopic)
		if err != nil {
			return nil, fmt.Errorf("%w: subscribe notifications: %w", ErrPersistence, err)
		}

		var all []models.Notification
		all, err = s.notifications.ListAll(ctx)
		items = filterInbox(all, viewer)
	}
	if err != nil {
		sub.Cancel()
		return nil, fmt.Errorf("%w: load inbox: %w", ErrPersistence, err)
	}

	viewCtx, cancel := context.WithCancel(ctx)
	view := &InboxView{
		viewer:   viewer,
		degraded: degraded,
		items:    items,
		unread:   countUnread(items),
		sub:      sub,
		updates:  make(chan InboxUpdate, s.bufferSize),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go view.run(viewCtx)
	return view, nil
}

func (v *InboxView) run(ctx context.Context) {
	defer close(v.done)
	defer close(v.updates)
	defer v.sub.Cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-v.sub.C:
			if !ok {
				return
			}
			if event.Notification == nil || !event.Notification.InInbox(v.viewer) {
				continue
			}
			if event.Kind != live.NotificationCreated && event.Kind != live.NotificationUpdated {
				continue
			}

			unread := v.apply(*event.Notification)
			update := InboxUpdate{Kind: event.Kind, Notification: event.Notification, UnreadCount: unread}
			select {
			case v.updates <- update:
			default:
				logger.Debug().Str("viewer_id", v.viewer.ID).Msg("inbox update channel full, consumer will resync from snapshot")
			}
		}
	}
}

// apply upserts notification and returns the new unread count.
func (v *InboxView) apply(notification models.Notification) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i := range v.items {
		if v.items[i].ID != notification.ID {
			continue
		}
		if v.items[i].Read != notification.Read {
			if notification.Read {
				v.unread--
			} else {
				v.unread++
			}
		}
		v.items[i] = notification
		return v.unread
	}

	position := len(v.items)
	for i := range v.items {
		if notification.Timestamp.After(v.items[i].Timestamp) {
			position = i
			break
		}
	}
	v.items = append(v.items, models.Notification{})
	copy(v.items[position+1:], v.items[position:])
	v.items[position] = notification
	if !notification.Read {
		v.unread++
	}
	return v.unread
}

func (v *InboxView) Snapshot() []models.Notification {
	v.mu.RLock()
	defer v.mu.RUnlock()

	snapshot := make([]models.Notification, len(v.items))
	copy(snapshot, v.items)
	return snapshot
}

func (v *InboxView) UnreadCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.unread
}

// Updates delivers one entry per applied change. It is a change signal; if
// the consumer lags, entries are skipped and Snapshot stays authoritative.
func (v *InboxView) Updates() <-chan InboxUpdate {
	return v.updates
}

func (v *InboxView) Degraded() bool {
	return v.degraded
}

// Done is closed once the view has stopped, either via Close or because
// its subscription ended.
func (v *InboxView) Done() <-chan struct{} {
	return v.done
}

func (v *InboxView) Close() {
	v.once.Do(func() {
		v.cancel()
		<-v.done
	})
}
