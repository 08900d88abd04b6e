package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Level classifies a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is one user-visible message.
type Notification struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Code    string    `json:"code,omitempty"`
}

// Error builds an error-level notification stamped now.
func Error(message, code string) Notification {
	return Notification{Time: time.Now(), Level: LevelError, Message: message, Code: code}
}

// Info builds an info-level notification stamped now.
func Info(message string) Notification {
	return Notification{Time: time.Now(), Level: LevelInfo, Message: message}
}

func Success(message string) Notification {
	return Notification{Time: time.Now(), Level: LevelSuccess, Message: message}
}

// Sink receives notifications.
type Sink interface {
	Notify(ctx context.Context, n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, n Notification)

func (f SinkFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }

// NoOpSink drops notifications.
type NoOpSink struct{}

func (NoOpSink) Notify(context.Context, Notification) {}

// ChannelSink writes notifications into a buffered channel.
type ChannelSink struct {
	ch chan Notification
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{ch: make(chan Notification, buffer)}
}

func (s *ChannelSink) Notify(ctx context.Context, n Notification) {
	select {
	case s.ch <- n:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Notifications() <-chan Notification {
	return s.ch
}

// WriterSink prints one line per notification. With JSON set it writes one JSON
// object per line instead.
type WriterSink struct {
	w    io.Writer
	json bool
	mu   sync.Mutex
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func NewJSONWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w, json: true}
}

func (s *WriterSink) Notify(_ context.Context, n Notification) {
	if s == nil || s.w == nil {
		return
	}
	var line []byte
	if s.json {
		data, err := json.Marshal(n)
		if err != nil {
			return
		}
		line = append(data, '\n')
	} else {
		text := fmt.Sprintf("[%s] %s", n.Level, n.Message)
		if n.Code != "" {
			text += " (" + n.Code + ")"
		}
		line = []byte(text + "\n")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, _ = s.w.Write(line)
}

// LogSink forwards notifications to a zap logger.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &LogSink{log: log}
}

func (s *LogSink) Notify(_ context.Context, n Notification) {
	fields := []zap.Field{zap.String("level", string(n.Level))}
	if n.Code != "" {
		fields = append(fields, zap.String("code", n.Code))
	}
	switch n.Level {
	case LevelError:
		s.log.Error(n.Message, fields...)
	case LevelWarning:
		s.log.Warn(n.Message, fields...)
	default:
		s.log.Info(n.Message, fields...)
	}
}

// Multi fans a notification out to every sink in order.
type Multi []Sink

func (m Multi) Notify(ctx context.Context, n Notification) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, n)
		}
	}
}
