package notify

import (
	"context"
	"errors"
	"sync"
)

// Message is one recorded delivery.
type Message struct {
	ChatID int64
	Text   string
}

// Recorder is an in-memory Notifier for testing. Deliveries to chat ids
// marked with FailFor return an error, simulating a user who blocked the bot.
type Recorder struct {
	mu      sync.Mutex
	sent    []Message
	failFor map[int64]bool
}

func NewRecorder() *Recorder {
	return &Recorder{failFor: make(map[int64]bool)}
}

var _ Notifier = (*Recorder)(nil)

func (r *Recorder) FailFor(chatID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failFor[chatID] = true
}

func (r *Recorder) Send(_ context.Context, chatID int64, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failFor[chatID] {
		return errors.New("delivery failed")
	}
	r.sent = append(r.sent, Message{ChatID: chatID, Text: text})
	return nil
}

// Sent returns a copy of all successful deliveries.
func (r *Recorder) Sent() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.sent))
	copy(out, r.sent)
	return out
}

// SentTo returns the successful deliveries addressed to chatID.
func (r *Recorder) SentTo(chatID int64) []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Message
	for _, m := range r.sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}
