package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Sink receives streamed entries.
type Sink interface {
	Emit(ctx context.Context, e Entry)
}

// NoOpSink drops entries.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Entry) {}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Entry)

func (f SinkFunc) Emit(ctx context.Context, e Entry) { f(ctx, e) }

// ChannelSink forwards entries into a buffered channel.
type ChannelSink struct {
	entries chan Entry
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{entries: make(chan Entry, buffer)}
}

// Emit blocks until the entry is buffered or ctx is done.
func (s *ChannelSink) Emit(ctx context.Context, e Entry) {
	select {
	case s.entries <- e:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Entries() <-chan Entry {
	return s.entries
}

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		return &JSONWriterSink{}
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, e Entry) {
	if s == nil || s.enc == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(e)
	s.mu.Unlock()
}
