// Package notify defines the notification sink collaborator. Deliveries
// are best-effort: the purge orchestrator never lets a notification
// failure affect a run.
package notify

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Sink delivers a message to a node owner.
type Sink interface {
	Notify(ctx context.Context, ownerID, message string) error
}

// WriterSink writes notifications to an io.Writer, one per line. It is
// the default sink for the CLI, where the chat front-end that would
// deliver real messages lives outside this process.
type WriterSink struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Notify(_ context.Context, ownerID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintf(s.w, "notify %s: %s\n", ownerID, message)
	return err
}

// Discard is a sink that drops every notification.
var Discard Sink = discardSink{}

type discardSink struct{}

func (discardSink) Notify(context.Context, string, string) error { return nil }
