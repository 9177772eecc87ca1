package gate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roomgate/internal/category"
	"github.com/fyrsmithlabs/roomgate/internal/classifier"
	"github.com/fyrsmithlabs/roomgate/internal/corpus"
	"github.com/fyrsmithlabs/roomgate/internal/logging"
	"github.com/fyrsmithlabs/roomgate/internal/memorystore"
	"github.com/fyrsmithlabs/roomgate/internal/secrets"
)

const instrumentationName = "github.com/fyrsmithlabs/roomgate/internal/gate"

// Predictor classifies exchanges. *classifier.Classifier satisfies it.
type Predictor interface {
	Predict(ctx context.Context, text string) (classifier.Prediction, error)
	PredictWithThreshold(ctx context.Context, text string, threshold float64) (classifier.Prediction, error)
}

// Tagger assigns a category to a PERSIST exchange. *category.Tagger satisfies it.
type Tagger interface {
	Tag(text string) category.Category
}

// Store persists exchanges. *memorystore.Store satisfies it.
type Store interface {
	Append(ctx context.Context, e memorystore.Entry) (memorystore.Entry, error)
}

// Options control a single Process call.
type Options struct {
	// AutoPersist appends PERSIST exchanges to the store.
	AutoPersist bool
	// Threshold overrides the classifier threshold when non-zero.
	Threshold float64
	// Metadata is flattened into the stored record.
	Metadata map[string]any
}

// DefaultOptions persists PERSIST exchanges at the configured threshold.
func DefaultOptions() Options {
	return Options{AutoPersist: true}
}

// Decision is the outcome for one exchange.
type Decision struct {
	Exchange   string             `json:"-"`
	Decision   corpus.Label       `json:"decision"`
	Confidence float64            `json:"confidence"`
	Category   *category.Category `json:"category"`
	Persisted  bool               `json:"persisted"`
	// EntryID is the stored record id when Persisted.
	EntryID string `json:"id,omitempty"`
}

// Service runs exchanges through the gate. It holds no per-call state and
// is safe for concurrent use.
type Service struct {
	predictor Predictor
	tagger    Tagger
	store     Store
	scrubber  secrets.Scrubber
	logger    *logging.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithScrubber redacts credentials from text before it is stored.
func WithScrubber(s secrets.Scrubber) Option {
	return func(svc *Service) {
		if s != nil {
			svc.scrubber = s
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *logging.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithTracer overrides the global tracer.
func WithTracer(t trace.Tracer) Option {
	return func(svc *Service) {
		if t != nil {
			svc.tracer = t
		}
	}
}

// New creates a gate service.
func New(predictor Predictor, tagger Tagger, store Store, opts ...Option) (*Service, error) {
	if predictor == nil {
		return nil, fmt.Errorf("%w: predictor is required", ErrModelUnavailable)
	}
	if tagger == nil {
		return nil, errors.New("tagger is required")
	}
	if store == nil {
		return nil, errors.New("store is required")
	}

	s := &Service{
		predictor: predictor,
		tagger:    tagger,
		store:     store,
		scrubber:  secrets.Noop{},
		logger:    logging.Nop(),
		tracer:    otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Process classifies text and, for PERSIST with AutoPersist, appends it to
// the memory store.
func (s *Service) Process(ctx context.Context, text string, opts Options) (Decision, error) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "gate.Process")
	defer span.End()
	defer func() { Duration.Observe(time.Since(start).Seconds()) }()

	span.SetAttributes(
		attribute.Int("gate.text_length", len(text)),
		attribute.Bool("gate.auto_persist", opts.AutoPersist),
	)

	if strings.TrimSpace(text) == "" {
		return Decision{}, s.fail(ctx, span, "validate", fmt.Errorf("%w: text is blank", ErrInvalidInput))
	}

	var (
		pred classifier.Prediction
		err  error
	)
	if opts.Threshold != 0 {
		pred, err = s.predictor.PredictWithThreshold(ctx, text, opts.Threshold)
	} else {
		pred, err = s.predictor.Predict(ctx, text)
	}
	if err != nil {
		return Decision{}, s.fail(ctx, span, "classify", fmt.Errorf("classifying exchange: %w", err))
	}

	d := Decision{
		Exchange:   text,
		Decision:   pred.Label,
		Confidence: pred.Confidence,
	}
	span.SetAttributes(
		attribute.String("gate.decision", string(pred.Label)),
		attribute.Float64("gate.probability", pred.PersistProbability),
	)

	if pred.Label != corpus.LabelPersist {
		DecisionsTotal.WithLabelValues(string(pred.Label), "").Inc()
		s.logger.Debug(ctx, "exchange flushed",
			logging.Exchange("exchange", text),
			zap.Float64("confidence", pred.Confidence))
		return d, nil
	}

	cat := s.tagger.Tag(text)
	d.Category = &cat
	span.SetAttributes(attribute.String("gate.category", string(cat)))

	if opts.AutoPersist {
		stored := text
		if res := s.scrubber.Scrub(text); res.HasFindings() {
			stored = res.Scrubbed
			s.logger.Info(ctx, "redacted secrets before persisting",
				zap.Strings("rules", res.RuleIDs()))
		}

		entry, err := s.store.Append(ctx, memorystore.Entry{
			Text:     stored,
			Category: cat,
			Metadata: opts.Metadata,
		})
		if err != nil {
			return Decision{}, s.fail(ctx, span, "persist", fmt.Errorf("persisting exchange: %w", err))
		}
		d.Persisted = true
		d.EntryID = entry.ID
	}

	span.SetAttributes(attribute.Bool("gate.persisted", d.Persisted))
	DecisionsTotal.WithLabelValues(string(pred.Label), string(cat)).Inc()
	s.logger.Info(ctx, "exchange kept",
		logging.Exchange("exchange", text),
		zap.String("category", string(cat)),
		zap.Float64("confidence", pred.Confidence),
		zap.Bool("persisted", d.Persisted))

	return d, nil
}

func (s *Service) fail(ctx context.Context, span trace.Span, stage string, err error) error {
	ErrorsTotal.WithLabelValues(stage).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	if !errors.Is(err, ErrInvalidInput) {
		s.logger.Error(ctx, "gate failed", zap.String("stage", stage), zap.Error(err))
	}
	return err
}
