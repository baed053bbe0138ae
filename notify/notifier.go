// Package notify delivers transient user-facing messages (toasts) for
// mutation outcomes.
package notify

import (
	"context"
	"log/slog"
	"sync"
)

// Level is the severity of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Message is one notification.
type Message struct {
	Level Level
	Text  string
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Success(ctx context.Context, text string)
	Error(ctx context.Context, text string)
}

// LogNotifier writes notifications to a structured logger. It is the default
// for headless consumers such as the CLI.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a Notifier backed by logger. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger.With(slog.String("component", "notify"))}
}

// Success logs text at info level.
func (n *LogNotifier) Success(ctx context.Context, text string) {
	n.logger.InfoContext(ctx, text, slog.String("level", string(LevelSuccess)))
}

// Error logs text at warn level.
func (n *LogNotifier) Error(ctx context.Context, text string) {
	n.logger.WarnContext(ctx, text, slog.String("level", string(LevelError)))
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Success records a success message.
func (r *Recorder) Success(ctx context.Context, text string) {
	r.add(Message{Level: LevelSuccess, Text: text})
}

// Error records an error message.
func (r *Recorder) Error(ctx context.Context, text string) {
	r.add(Message{Level: LevelError, Text: text})
}

func (r *Recorder) add(m Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, m)
}

// Messages returns a copy of the recorded notifications.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent notification.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Reset forgets all recorded notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
