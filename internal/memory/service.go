package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/embeddings"
)

const instrumentationName = "github.com/fyrsmithlabs/phased/internal/memory"

// DefaultSearchLimit is the result cap applied when a search specifies none.
const DefaultSearchLimit = 10

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Weights tunes the combined search score. The exact blend is configuration,
// not contract; ranking must only be deterministic for a fixed store state.
type Weights struct {
	// Similarity weights embedding cosine similarity.
	Similarity float64

	// ConceptOverlap weights the fraction of requested concepts present.
	ConceptOverlap float64

	// Importance weights the entry's stored importance.
	Importance float64
}

// Config configures the memory service.
type Config struct {
	// Path is the storage directory (catalog + vector index).
	Path string

	// Collection is the vector index collection name.
	Collection string

	// TitleMaxLen soft-caps entry titles for index efficiency. Default 200.
	TitleMaxLen int

	// EmbedTimeout bounds each call to the embedding provider. Default 10s.
	EmbedTimeout time.Duration

	// Weights tunes search ranking.
	Weights Weights

	// Compress enables gzip compression of the persisted vector index.
	Compress bool
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.Collection == "" {
		c.Collection = "phased_memories"
	}
	if c.TitleMaxLen == 0 {
		c.TitleMaxLen = 200
	}
	if c.EmbedTimeout == 0 {
		c.EmbedTimeout = 10 * time.Second
	}
	if c.Weights == (Weights{}) {
		c.Weights = Weights{Similarity: 0.6, ConceptOverlap: 0.25, Importance: 0.15}
	}
}

// Service is the durable memory store.
//
// Writes are serialized per instance (single-writer discipline); reads may
// proceed concurrently. The embedding provider is treated as an unreliable
// external dependency: a failed or timed-out embedding never fails a save.
// The entry is persisted unembedded and lazily indexed later.
type Service struct {
	config   Config
	provider embeddings.Provider
	logger   *zap.Logger

	db         *chromem.DB
	collection *chromem.Collection

	tracer        trace.Tracer
	meter         metric.Meter
	saveCounter   metric.Int64Counter
	searchCounter metric.Int64Counter

	mu  sync.RWMutex
	cat *catalog
}

// NewService opens a memory store at cfg.Path.
func NewService(cfg Config, provider embeddings.Provider, logger *zap.Logger) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: storage path is required", ErrInvalidConfig)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: embedding provider is required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()

	db, err := chromem.NewPersistentDB(filepath.Join(cfg.Path, "index"), cfg.Compress)
	if err != nil {
		return nil, fmt.Errorf("opening vector index: %w", err)
	}

	s := &Service{
		config:   cfg,
		provider: provider,
		logger:   logger,
		db:       db,
		tracer:   otel.Tracer(instrumentationName),
		meter:    otel.Meter(instrumentationName),
	}

	s.collection, err = db.GetOrCreateCollection(cfg.Collection, nil, s.embeddingFunc())
	if err != nil {
		return nil, fmt.Errorf("opening collection %s: %w", cfg.Collection, err)
	}

	s.cat, err = openCatalog(filepath.Join(cfg.Path, "catalog.json"))
	if err != nil {
		return nil, err
	}

	s.initMetrics()

	logger.Info("memory store opened",
		zap.String("path", cfg.Path),
		zap.String("collection", cfg.Collection),
		zap.Int("entries", len(s.cat.entries)),
	)

	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"phased.memory.saves_total",
		metric.WithDescription("Total number of memory entries saved"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.searchCounter, err = s.meter.Int64Counter(
		"phased.memory.searches_total",
		metric.WithDescription("Total number of memory searches"),
		metric.WithUnit("{search}"),
	)
	if err != nil {
		s.logger.Warn("failed to create search counter", zap.Error(err))
	}
}

func (s *Service) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.provider.EmbedQuery(ctx, text)
	}
}

// embedText returns the entry text used for embedding.
func embedText(title, content string) string {
	return title + "\n\n" + content
}

// Save persists a new entry. The embedding is computed via the injected
// provider with a bounded timeout; on failure the entry is stored with
// PendingEmbedding set instead of failing the save.
func (s *Service) Save(ctx context.Context, input SaveInput) (Entry, error) {
	ctx, span := s.tracer.Start(ctx, "memory.save")
	defer span.End()

	concepts, err := validateInput(input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Entry{}, err
	}

	entry := Entry{
		ID:          uuid.New().String(),
		Type:        input.Type,
		Title:       truncateTitle(input.Title, s.config.TitleMaxLen),
		Content:     input.Content,
		Facts:       append([]string(nil), input.Facts...),
		Concepts:    concepts,
		Importance:  input.Importance,
		CreatedAt:   timeNow().UTC(),
		SourceFiles: append([]string(nil), input.SourceFiles...),
	}

	span.SetAttributes(
		attribute.String("memory_id", entry.ID),
		attribute.String("type", string(entry.Type)),
	)

	vector, embedErr := s.embed(ctx, embedText(entry.Title, entry.Content))

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := record{Entry: entry, PendingEmbedding: embedErr != nil}
	if embedErr == nil {
		if err := s.index(ctx, entry, vector); err != nil {
			s.logger.Warn("indexing failed, entry flagged for re-index",
				zap.String("id", entry.ID), zap.Error(err))
			rec.PendingEmbedding = true
		}
	} else {
		s.logger.Warn("embedding unavailable, entry flagged for re-index",
			zap.String("id", entry.ID), zap.Error(embedErr))
	}

	s.cat.put(rec)
	if err := s.cat.flush(); err != nil {
		s.cat.remove(entry.ID)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Entry{}, err
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("type", string(entry.Type)),
			attribute.Bool("pending_embedding", rec.PendingEmbedding),
		))
	}

	s.logger.Debug("saved memory entry",
		zap.String("id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.Bool("pending_embedding", rec.PendingEmbedding),
	)

	return entry, nil
}

// embed calls the provider under the configured timeout.
func (s *Service) embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.EmbedTimeout)
	defer cancel()
	return s.provider.EmbedQuery(ctx, text)
}

// index upserts an entry into the vector collection. Caller holds the lock.
func (s *Service) index(ctx context.Context, entry Entry, vector []float32) error {
	doc := chromem.Document{
		ID:        entry.ID,
		Content:   embedText(entry.Title, entry.Content),
		Embedding: vector,
		Metadata: map[string]string{
			"type":       string(entry.Type),
			"concepts":   strings.Join(entry.Concepts, ","),
			"importance": strconv.FormatFloat(entry.Importance, 'f', -1, 64),
			"created_at": strconv.FormatInt(entry.CreatedAt.Unix(), 10),
		},
	}
	if err := s.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("indexing entry %s: %w", entry.ID, err)
	}
	return nil
}

// Search performs ranked retrieval. The score combines embedding similarity,
// concept overlap, and importance per the configured weights; results are
// ordered descending by score with the entry ID as a deterministic
// tie-breaker, so identical store state and parameters always yield
// identical order.
func (s *Service) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	ctx, span := s.tracer.Start(ctx, "memory.search")
	defer span.End()

	if strings.TrimSpace(req.Query) == "" {
		span.SetStatus(codes.Error, ErrEmptyQuery.Error())
		return nil, ErrEmptyQuery
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	reqConcepts := normalizeConcepts(req.Concepts)

	span.SetAttributes(
		attribute.Int("limit", limit),
		attribute.Int("concept_filters", len(reqConcepts)),
	)

	// Best-effort lazy re-index of entries saved while the provider was down.
	s.reindexPending(ctx)

	queryVec, err := s.embed(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := s.collection.Count()
	if count == 0 {
		return []SearchResult{}, nil
	}

	// Score the whole collection: stores are per-project and small, and
	// rescoring needs every candidate's concepts and importance anyway.
	hits, err := s.collection.QueryEmbedding(ctx, queryVec, count, nil, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying index: %w", err)
	}

	w := s.config.Weights
	results := make([]SearchResult, 0, len(hits))
	for _, hit := range hits {
		rec, ok := s.cat.get(hit.ID)
		if !ok {
			// Index entry without catalog record; stale, skip.
			continue
		}
		score := w.Similarity*float64(hit.Similarity) +
			w.ConceptOverlap*conceptOverlap(reqConcepts, rec.Concepts) +
			w.Importance*rec.Importance
		results = append(results, SearchResult{Memory: rec.Entry, Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Memory.ID < results[j].Memory.ID
	})

	if len(results) > limit {
		results = results[:limit]
	}

	if s.searchCounter != nil {
		s.searchCounter.Add(ctx, 1)
	}

	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

// conceptOverlap is the fraction of requested concepts present on the entry.
// No requested concepts means no contribution for any entry.
func conceptOverlap(requested, have []string) float64 {
	if len(requested) == 0 {
		return 0
	}
	haveSet := make(map[string]bool, len(have))
	for _, c := range have {
		haveSet[c] = true
	}
	matched := 0
	for _, c := range requested {
		if haveSet[c] {
			matched++
		}
	}
	return float64(matched) / float64(len(requested))
}

// reindexPending tries to embed and index entries flagged during provider
// outages. Failures leave the flag set; this is strictly best-effort.
func (s *Service) reindexPending(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.cat.pending()
	if len(pending) == 0 {
		return
	}

	changed := false
	for _, rec := range pending {
		vector, err := s.embed(ctx, embedText(rec.Title, rec.Content))
		if err != nil {
			continue
		}
		if err := s.index(ctx, rec.Entry, vector); err != nil {
			s.logger.Warn("re-index failed", zap.String("id", rec.ID), zap.Error(err))
			continue
		}
		rec.PendingEmbedding = false
		s.cat.put(rec)
		changed = true
	}

	if changed {
		if err := s.cat.flush(); err != nil {
			s.logger.Warn("flushing catalog after re-index", zap.Error(err))
		}
	}
}

// Get retrieves an entry by ID.
func (s *Service) Get(ctx context.Context, id string) (Entry, error) {
	_, span := s.tracer.Start(ctx, "memory.get")
	defer span.End()

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.cat.get(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.Entry, nil
}

// GetRecent returns the newest entries first, capped at limit.
func (s *Service) GetRecent(ctx context.Context, limit int) ([]Entry, error) {
	_, span := s.tracer.Start(ctx, "memory.get_recent")
	defer span.End()

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := s.cat.all()
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		}
		return records[i].ID < records[j].ID
	})

	if len(records) > limit {
		records = records[:limit]
	}
	entries := make([]Entry, len(records))
	for i, r := range records {
		entries[i] = r.Entry
	}
	return entries, nil
}

// Update applies a partial update. The embedding is recomputed only when
// title or content changed; CreatedAt is never modified.
func (s *Service) Update(ctx context.Context, id string, input UpdateInput) (Entry, error) {
	ctx, span := s.tracer.Start(ctx, "memory.update")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.cat.get(id)
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	prev := rec

	reembed := false
	if input.Title != nil && *input.Title != rec.Title {
		if strings.TrimSpace(*input.Title) == "" {
			return Entry{}, fmt.Errorf("%w: title cannot be empty", ErrInvalidEntry)
		}
		rec.Title = truncateTitle(*input.Title, s.config.TitleMaxLen)
		reembed = true
	}
	if input.Content != nil && *input.Content != rec.Content {
		if strings.TrimSpace(*input.Content) == "" {
			return Entry{}, fmt.Errorf("%w: content cannot be empty", ErrInvalidEntry)
		}
		rec.Content = *input.Content
		reembed = true
	}
	if input.Facts != nil {
		rec.Facts = append([]string(nil), input.Facts...)
	}
	if input.Concepts != nil {
		concepts := normalizeConcepts(input.Concepts)
		if len(concepts) == 0 {
			return Entry{}, fmt.Errorf("%w: at least one concept is required", ErrInvalidEntry)
		}
		rec.Concepts = concepts
	}
	if input.Importance != nil {
		if *input.Importance < 0 || *input.Importance > 1 {
			return Entry{}, fmt.Errorf("%w: importance must be in [0,1], got %v", ErrInvalidEntry, *input.Importance)
		}
		rec.Importance = *input.Importance
	}
	if input.SourceFiles != nil {
		rec.SourceFiles = append([]string(nil), input.SourceFiles...)
	}

	if reembed {
		vector, err := s.embed(ctx, embedText(rec.Title, rec.Content))
		if err != nil {
			// The old embedding is stale; drop it and flag for re-index.
			if delErr := s.collection.Delete(ctx, nil, nil, id); delErr != nil {
				s.logger.Warn("removing stale index entry", zap.String("id", id), zap.Error(delErr))
			}
			rec.PendingEmbedding = true
			s.logger.Warn("embedding unavailable on update, entry flagged for re-index",
				zap.String("id", id), zap.Error(err))
		} else {
			if err := s.index(ctx, rec.Entry, vector); err != nil {
				rec.PendingEmbedding = true
				s.logger.Warn("re-indexing updated entry failed", zap.String("id", id), zap.Error(err))
			} else {
				rec.PendingEmbedding = false
			}
		}
	}

	s.cat.put(rec)
	if err := s.cat.flush(); err != nil {
		s.cat.put(prev)
		span.RecordError(err)
		return Entry{}, err
	}

	return rec.Entry, nil
}

// Delete removes an entry from both the catalog and the vector index.
func (s *Service) Delete(ctx context.Context, id string) error {
	ctx, span := s.tracer.Start(ctx, "memory.delete")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.cat.get(id); !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if err := s.collection.Delete(ctx, nil, nil, id); err != nil {
		s.logger.Warn("removing index entry", zap.String("id", id), zap.Error(err))
	}

	s.cat.remove(id)
	if err := s.cat.flush(); err != nil {
		return err
	}

	s.logger.Debug("deleted memory entry", zap.String("id", id))
	return nil
}
