package session

import "sync"

// hub fans events out to subscribers. Slow subscribers lose events rather
// than block a writer.
type hub struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

func newHub() *hub {
	return &hub{subs: make(map[int]chan Event)}
}

func (h *hub) publish(evt Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
		}
	}
}

func (h *hub) subscribe(buf int) (<-chan Event, func()) {
	ch := make(chan Event, buf)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}
