package client

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Resource mirrors the server's resource document.
type Resource struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	URL          string `json:"url"`
	Type         string `json:"type"`
	ViewCount    int64  `json:"viewCount"`
	HelpfulCount int64  `json:"helpfulCount"`
	Embed        *Embed `json:"embed,omitempty"`
	CreatedAt    int64  `json:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt"`
}

type Embed struct {
	Platform string `json:"platform"`
	EmbedID  string `json:"embedId"`
}

// CounterEvent is one engagement update pushed by the server. Each event
// carries the full current value for exactly one counter of one resource,
// never a delta, so late or out-of-order events self-correct.
type CounterEvent struct {
	Type         string `json:"-"`
	ResourceID   string `json:"resourceId"`
	ViewCount    *int64 `json:"viewCount,omitempty"`
	HelpfulCount *int64 `json:"helpfulCount,omitempty"`
}

const (
	EventViewUpdate = "resource:viewUpdate"
	EventLikeUpdate = "resource:likeUpdate"
)

// ResourceList is a local copy of the resource library that merges pushed
// counter snapshots in place. Only the event's counter is touched; every
// other field keeps its local value.
type ResourceList struct {
	mu    sync.RWMutex
	items []Resource
}

func NewResourceList(items []Resource) *ResourceList {
	copied := make([]Resource, len(items))
	copy(copied, items)
	return &ResourceList{items: copied}
}

// Replace swaps in a freshly fetched list.
func (l *ResourceList) Replace(items []Resource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = make([]Resource, len(items))
	copy(l.items, items)
}

// Apply merges one counter event by identifier match. Events for unknown
// resources are dropped; the next full fetch picks them up.
func (l *ResourceList) Apply(ev CounterEvent) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.items {
		if l.items[i].ID != ev.ResourceID {
			continue
		}
		switch ev.Type {
		case EventViewUpdate:
			if ev.ViewCount != nil {
				l.items[i].ViewCount = *ev.ViewCount
			}
		case EventLikeUpdate:
			if ev.HelpfulCount != nil {
				l.items[i].HelpfulCount = *ev.HelpfulCount
			}
		}
		return true
	}
	return false
}

// Snapshot returns a copy of the current list.
func (l *ResourceList) Snapshot() []Resource {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Resource, len(l.items))
	copy(out, l.items)
	return out
}

// Get looks up one resource by id.
func (l *ResourceList) Get(id string) (Resource, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for i := range l.items {
		if l.items[i].ID == id {
			return l.items[i], true
		}
	}
	return Resource{}, false
}

// ResourceFeed subscribes to the server's resources room over WebSocket
// and keeps a ResourceList current.
type ResourceFeed struct {
	conn     *websocket.Conn
	list     *ResourceList
	logger   zerolog.Logger
	onUpdate func(CounterEvent)

	closeOnce sync.Once
	done      chan struct{}
}

type FeedOption func(*ResourceFeed)

func WithFeedLogger(logger zerolog.Logger) FeedOption {
	return func(f *ResourceFeed) { f.logger = logger }
}

// WithUpdateHook registers a callback invoked after each merged event.
// UIs re-render the matching row here.
func WithUpdateHook(fn func(CounterEvent)) FeedOption {
	return func(f *ResourceFeed) { f.onUpdate = fn }
}

// DialResourceFeed connects to the realtime endpoint (ws://host/ws), joins
// the resources room, and starts merging events into list.
func DialResourceFeed(ctx context.Context, wsURL, accessToken string, list *ResourceList, opts ...FeedOption) (*ResourceFeed, error) {
	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL+"?token="+accessToken, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	f := &ResourceFeed{
		conn:   conn,
		list:   list,
		logger: zerolog.Nop(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}

	if err := conn.WriteJSON(map[string]string{"type": "resources:join"}); err != nil {
		conn.Close()
		return nil, err
	}

	go f.readLoop()
	return f, nil
}

func (f *ResourceFeed) readLoop() {
	defer close(f.done)

	for {
		var envelope struct {
			Type    string          `json:"type"`
			Payload json.RawMessage `json:"payload"`
		}
		if err := f.conn.ReadJSON(&envelope); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.logger.Warn().Err(err).Msg("resource feed closed unexpectedly")
			}
			return
		}

		switch envelope.Type {
		case EventViewUpdate, EventLikeUpdate:
			var ev CounterEvent
			if err := json.Unmarshal(envelope.Payload, &ev); err != nil {
				f.logger.Warn().Err(err).Msg("malformed counter event")
				continue
			}
			ev.Type = envelope.Type
			if f.list.Apply(ev) && f.onUpdate != nil {
				f.onUpdate(ev)
			}
		}
	}
}

// List exposes the underlying resource list.
func (f *ResourceFeed) List() *ResourceList {
	return f.list
}

// Leave tells the server to stop sending engagement events. The connection
// stays open for a later rejoin.
func (f *ResourceFeed) Leave() error {
	return f.conn.WriteJSON(map[string]string{"type": "resources:leave"})
}

// Close tears the connection down. Safe to call more than once.
func (f *ResourceFeed) Close() error {
	var err error
	f.closeOnce.Do(func() {
		f.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		err = f.conn.Close()
		<-f.done
	})
	return err
}
