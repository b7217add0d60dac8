package api

import (
	"context"
	"io"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"eapgraph/internal/graph"
	"eapgraph/internal/pipeline"
)

// Loader выполняет полную загрузку документа
type Loader func(ctx context.Context) (*pipeline.Result, error)

// Snapshot: один загруженный документ. Не меняется после публикации.
type Snapshot struct {
	LoadID   string
	LoadedAt time.Time
	Result   *pipeline.Result
}

func (s *Snapshot) Doc() *graph.Document { return s.Result.Document }

// Storage держит текущий снимок и подменяет его целиком при перезагрузке
type Storage struct {
	mu      sync.RWMutex
	current *Snapshot
	load    Loader
	entropy io.Reader
	log     *slog.Logger

	reloadMu sync.Mutex // одна перезагрузка за раз
}

func NewStorage(load Loader, log *slog.Logger) *Storage {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Storage{
		load:    load,
		entropy: ulid.Monotonic(src, 0),
		log:     log,
	}
}

func (s *Storage) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), s.entropy).String()
}

// Publish делает res текущим снимком
func (s *Storage) Publish(res *pipeline.Result) *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := &Snapshot{LoadID: s.newID(), LoadedAt: time.Now().UTC(), Result: res}
	s.current = snap
	return snap
}

// Current: текущий снимок или nil, если загрузки ещё не было
func (s *Storage) Current() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload загружает документ заново; при ошибке остаётся прежний снимок
func (s *Storage) Reload(ctx context.Context) (*Snapshot, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	res, err := s.load(ctx)
	if err != nil {
		s.log.Error("reload failed, keeping previous document", "err", err)
		return nil, err
	}
	snap := s.Publish(res)
	s.log.Info("document reloaded", "load_id", snap.LoadID, "elapsed", res.Elapsed)
	return snap, nil
}
