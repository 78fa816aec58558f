package survey

import (
	"context"
	"fmt"
	"sync"

	"github.com/projectpulse/pulsebot/internal/metrics"
	"github.com/projectpulse/pulsebot/pkg/models"
)

// Store persists survey answers per project key. Save performs a
// read-modify-write merge of a single question's answer and must be
// idempotent; implementations serialize writes per project key so concurrent
// saves cannot lose updates. Load returns an empty record when no answers
// exist yet.
type Store interface {
	Load(ctx context.Context, projectKey string) (models.SurveyRecord, error)
	Save(ctx context.Context, projectKey string, question QuestionID, answer string) error
	Close() error
}

// keyLocks hands out one mutex per project key, created on first use. It
// backs the single-writer-per-key discipline for backends whose medium has
// no atomic merge of its own (the flat-file store).
type keyLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyLocks() *keyLocks {
	return &keyLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyLocks) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	return l
}

// Backend names accepted by NewStore.
const (
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Options selects and configures a store backend.
type Options struct {
	Backend   string
	DataDir   string // file backend
	Path      string // sqlite backend
	DSN       string // postgres backend
	RedisAddr string // redis backend
	Metrics   *metrics.Metrics
}

// NewStore constructs the configured backend, instrumented when Options
// carries a metrics set.
func NewStore(opts Options) (Store, error) {
	backend := opts.Backend
	if backend == "" {
		backend = BackendFile
	}

	var (
		inner Store
		err   error
	)
	switch backend {
	case BackendFile:
		inner, err = NewFileStore(opts.DataDir)
	case BackendSQLite:
		inner, err = NewSQLStore(BackendSQLite, opts.Path)
	case BackendPostgres:
		inner, err = NewSQLStore(BackendPostgres, opts.DSN)
	case BackendRedis:
		inner, err = NewRedisStore(opts.RedisAddr)
	default:
		return nil, fmt.Errorf("unknown survey store backend %q", opts.Backend)
	}
	if err != nil {
		return nil, err
	}
	return InstrumentStore(inner, backend, opts.Metrics), nil
}
