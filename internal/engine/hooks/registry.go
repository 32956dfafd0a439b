package hooks

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Trigger names a host lifecycle event.
type Trigger string

const (
	SavePost    Trigger = "save_post"
	SavePage    Trigger = "save_page"
	ACFSavePost Trigger = "acf_save_post"
)

// DefaultPriority matches the host's default hook priority.
const DefaultPriority = 10

var knownTriggers = map[Trigger]struct{}{
	SavePost:    {},
	SavePage:    {},
	ACFSavePost: {},
}

// ErrUnknownTrigger is returned for trigger names outside the known set.
type ErrUnknownTrigger struct {
	Trigger string
}

func (e *ErrUnknownTrigger) Error() string {
	return fmt.Sprintf("unknown trigger %q", e.Trigger)
}

// ParseTrigger validates a trigger name.
func ParseTrigger(name string) (Trigger, error) {
	t := Trigger(name)
	if _, ok := knownTriggers[t]; !ok {
		return "", &ErrUnknownTrigger{Trigger: name}
	}
	return t, nil
}

// SaveEvent is the payload of a content-saved notification. Hosts send the
// item id either as a JSON string or as a number; both decode into ID.
type SaveEvent struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (e *SaveEvent) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID     json.RawMessage `json:"id"`
		Status string          `json:"status"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id, err := decodeID(raw.ID)
	if err != nil {
		return err
	}
	e.ID = id
	e.Status = raw.Status
	return nil
}

func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or a number, got %s", raw)
	}
	return n.String(), nil
}

type Handler func(ctx context.Context, trigger Trigger, event SaveEvent)

type subscription struct {
	priority int
	seq      int
	handler  Handler
}

// Registry binds handlers to triggers. Subscriptions are expected at start-up;
// Fire may run concurrently with itself.
type Registry struct {
	mu   sync.RWMutex
	subs map[Trigger][]subscription
	seq  int
}

func NewRegistry() *Registry {
	return &Registry{subs: make(map[Trigger][]subscription)}
}

func (r *Registry) Subscribe(trigger Trigger, priority int, handler Handler) error {
	if _, ok := knownTriggers[trigger]; !ok {
		return &ErrUnknownTrigger{Trigger: string(trigger)}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	subs := append(r.subs[trigger], subscription{priority: priority, seq: r.seq, handler: handler})
	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].priority != subs[j].priority {
			return subs[i].priority < subs[j].priority
		}
		return subs[i].seq < subs[j].seq
	})
	r.subs[trigger] = subs
	return nil
}

// Fire runs every handler bound to trigger, in priority order, on the caller's
// goroutine.
func (r *Registry) Fire(ctx context.Context, trigger Trigger, event SaveEvent) error {
	if _, ok := knownTriggers[trigger]; !ok {
		return &ErrUnknownTrigger{Trigger: string(trigger)}
	}

	r.mu.RLock()
	subs := make([]subscription, len(r.subs[trigger]))
	copy(subs, r.subs[trigger])
	r.mu.RUnlock()

	for _, s := range subs {
		s.handler(ctx, trigger, event)
	}
	return nil
}

// Count reports how many handlers are bound to trigger.
func (r *Registry) Count(trigger Trigger) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs[trigger])
}
