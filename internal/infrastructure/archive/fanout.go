package archive

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirillkom/faq-assistant/internal/core/domain"
	"github.com/kirillkom/faq-assistant/internal/core/ports"
)

// Sink is a named conversation logger.
type Sink struct {
	Name   string
	Logger ports.ConversationLogger
}

// Fanout writes every record to all sinks. A failing sink does not stop the others; the
// joined error names each sink that failed.
type Fanout struct {
	sinks []Sink
}

func NewFanout(sinks ...Sink) *Fanout {
	out := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s.Logger != nil {
			out = append(out, s)
		}
	}
	return &Fanout{sinks: out}
}

func (f *Fanout) Len() int {
	return len(f.sinks)
}

func (f *Fanout) Log(ctx context.Context, record domain.ConversationRecord) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Logger.Log(ctx, record); err != nil {
			errs = append(errs, fmt.Errorf("%s sink: %w", s.Name, err))
		}
	}
	return errors.Join(errs...)
}
