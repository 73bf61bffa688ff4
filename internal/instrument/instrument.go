package instrument

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Instrumenter opens spans around engine operations. Implementations must be
// safe for concurrent use.
type Instrumenter interface {
	StartSpan(ctx context.Context, source, component, action string) (context.Context, Span)
}

// Span records the outcome of one instrumented operation.
type Span interface {
	End()
	SetStatus(status string)
	SetMetadata(key string, value any)
	SetEntity(entity, recordID string)
}

type ctxKey struct{}

// WithInstrumenter stores an Instrumenter on the context.
func WithInstrumenter(ctx context.Context, inst Instrumenter) context.Context {
	return context.WithValue(ctx, ctxKey{}, inst)
}

// GetInstrumenter returns the context's Instrumenter, or a noop one.
func GetInstrumenter(ctx context.Context) Instrumenter {
	if inst, ok := ctx.Value(ctxKey{}).(Instrumenter); ok {
		return inst
	}
	return noop
}

// --- log-backed instrumenter ---

// LogInstrumenter writes one log line per finished span. Good enough for
// development; swap in something heavier behind the same interface when
// needed.
type LogInstrumenter struct{}

func (l *LogInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	return ctx, &logSpan{
		id:     uuid.New().String()[:8],
		action: action,
		source: source,
		start:  time.Now(),
	}
}

type logSpan struct {
	id       string
	source   string
	action   string
	status   string
	entity   string
	recordID string
	start    time.Time
}

func (s *logSpan) End() {
	log.Printf("span %s %s %s entity=%s/%s status=%s took=%s",
		s.id, s.source, s.action, s.entity, s.recordID, s.status, time.Since(s.start))
}

func (s *logSpan) SetStatus(status string)           { s.status = status }
func (s *logSpan) SetMetadata(key string, value any) {}
func (s *logSpan) SetEntity(entity, recordID string) {
	s.entity = entity
	s.recordID = recordID
}

// --- noop instrumenter ---

var noop = &NoopInstrumenter{}

type NoopInstrumenter struct{}

func (n *NoopInstrumenter) StartSpan(ctx context.Context, source, component, action string) (context.Context, Span) {
	return ctx, &NoopSpan{}
}

type NoopSpan struct{}

func (n *NoopSpan) End()                              {}
func (n *NoopSpan) SetStatus(status string)           {}
func (n *NoopSpan) SetMetadata(key string, value any) {}
func (n *NoopSpan) SetEntity(entity, recordID string) {}
