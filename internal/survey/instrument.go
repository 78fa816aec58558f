package survey

import (
	"context"

	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// instrumentedStore counts every load and save against the concrete backend
// name, both outcomes, so backends can be compared and a success rate
// derived.
type instrumentedStore struct {
	inner   Store
	backend string
	metrics *metrics.Metrics
}

var _ Store = (*instrumentedStore)(nil)

// InstrumentStore wraps a store with operation counters. A nil metrics set
// returns the store unwrapped.
func InstrumentStore(inner Store, backend string, m *metrics.Metrics) Store {
	if m == nil {
		return inner
	}
	return &instrumentedStore{inner: inner, backend: backend, metrics: m}
}

func (s *instrumentedStore) Load(ctx context.Context, projectKey string) (models.SurveyRecord, error) {
	record, err := s.inner.Load(ctx, projectKey)
	s.metrics.StoreOperations.WithLabelValues(s.backend, "load", result(err)).Inc()
	return record, err
}

func (s *instrumentedStore) Save(ctx context.Context, projectKey string, question QuestionID, answer string) error {
	err := s.inner.Save(ctx, projectKey, question, answer)
	s.metrics.StoreOperations.WithLabelValues(s.backend, "save", result(err)).Inc()
	return err
}

func (s *instrumentedStore) Close() error {
	return s.inner.Close()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
