package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/state"
	"github.com/fyrsmithlabs/phased/internal/workspace"
)

const instrumentationName = "github.com/fyrsmithlabs/phased/internal/checkpoint"

// timeNow is a variable for testing purposes (allows mocking time).
var timeNow = time.Now

// Sentinel errors for checkpoint operations.
var (
	// ErrNotFound is returned when no checkpoint exists for an ID.
	ErrNotFound = errors.New("checkpoint not found")

	// ErrMalformed indicates a checkpoint file that failed validation.
	ErrMalformed = errors.New("malformed checkpoint")
)

// Config configures the checkpoint service.
type Config struct {
	// MaxCheckpoints is the retention count; older checkpoints are pruned
	// oldest-first beyond it. Default 10.
	MaxCheckpoints int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxCheckpoints: DefaultMaxCheckpoints}
}

// Service manages workflow state checkpoints on disk.
type Service struct {
	config Config
	dir    string
	store  *state.Store
	logger *zap.Logger

	tracer         trace.Tracer
	meter          metric.Meter
	saveCounter    metric.Int64Counter
	restoreCounter metric.Int64Counter
}

// NewService creates a checkpoint service writing under layout's
// checkpoints directory and restoring into the given state store.
func NewService(cfg Config, layout *workspace.Layout, store *state.Store, logger *zap.Logger) (*Service, error) {
	if layout == nil {
		return nil, errors.New("workspace layout is required")
	}
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxCheckpoints <= 0 {
		cfg.MaxCheckpoints = DefaultMaxCheckpoints
	}

	s := &Service{
		config: cfg,
		dir:    layout.CheckpointsDir(),
		store:  store,
		logger: logger,
		tracer: otel.Tracer(instrumentationName),
		meter:  otel.Meter(instrumentationName),
	}
	s.initMetrics()
	return s, nil
}

func (s *Service) initMetrics() {
	var err error

	s.saveCounter, err = s.meter.Int64Counter(
		"phased.checkpoint.saves_total",
		metric.WithDescription("Total number of checkpoints saved"),
		metric.WithUnit("{save}"),
	)
	if err != nil {
		s.logger.Warn("failed to create save counter", zap.Error(err))
	}

	s.restoreCounter, err = s.meter.Int64Counter(
		"phased.checkpoint.restores_total",
		metric.WithDescription("Total number of checkpoint restores"),
		metric.WithUnit("{restore}"),
	)
	if err != nil {
		s.logger.Warn("failed to create restore counter", zap.Error(err))
	}
}

// Save snapshots the current workflow state. Returns the checkpoint ID.
func (s *Service) Save(ctx context.Context, label string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.save")
	defer span.End()

	cp := Checkpoint{
		ID:        uuid.New().String(),
		Label:     label,
		State:     s.store.Current(),
		CreatedAt: timeNow().UTC(),
	}
	span.SetAttributes(attribute.String("checkpoint_id", cp.ID))

	if err := workspace.EnsureDir(s.dir); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("encoding checkpoint: %w", err)
	}
	if err := os.WriteFile(s.path(cp.ID), data, 0o644); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("writing checkpoint: %w", err)
	}

	if err := s.prune(); err != nil {
		s.logger.Warn("pruning checkpoints failed", zap.Error(err))
	}

	if s.saveCounter != nil {
		s.saveCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.Bool("labeled", label != ""),
		))
	}

	s.logger.Info("saved checkpoint",
		zap.String("id", cp.ID),
		zap.String("label", label),
		zap.String("phase", string(cp.State.Phase)),
	)
	return cp.ID, nil
}

// List returns all checkpoints, newest first.
func (s *Service) List(ctx context.Context) ([]Checkpoint, error) {
	_, span := s.tracer.Start(ctx, "checkpoint.list")
	defer span.End()

	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return []Checkpoint{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("reading checkpoint directory: %w", err)
	}

	checkpoints := make([]Checkpoint, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cp, err := s.read(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			// A corrupt file must not hide the rest of the history.
			s.logger.Warn("skipping unreadable checkpoint",
				zap.String("file", entry.Name()),
				zap.Error(err),
			)
			continue
		}
		checkpoints = append(checkpoints, cp)
	}

	sort.SliceStable(checkpoints, func(i, j int) bool {
		if !checkpoints[i].CreatedAt.Equal(checkpoints[j].CreatedAt) {
			return checkpoints[i].CreatedAt.After(checkpoints[j].CreatedAt)
		}
		return checkpoints[i].ID > checkpoints[j].ID
	})

	span.SetAttributes(attribute.Int("count", len(checkpoints)))
	return checkpoints, nil
}

// Get retrieves a checkpoint by ID, or the newest for Latest.
func (s *Service) Get(ctx context.Context, id string) (Checkpoint, error) {
	if id == Latest {
		checkpoints, err := s.List(ctx)
		if err != nil {
			return Checkpoint{}, err
		}
		if len(checkpoints) == 0 {
			return Checkpoint{}, fmt.Errorf("%w: no checkpoints exist", ErrNotFound)
		}
		return checkpoints[0], nil
	}

	cp, err := s.read(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return Checkpoint{}, err
	}
	return cp, nil
}

// Load restores the workflow state from a checkpoint. The snapshot is
// validated in full before the state store is touched; any failure leaves
// live state unchanged.
func (s *Service) Load(ctx context.Context, id string) (Checkpoint, error) {
	ctx, span := s.tracer.Start(ctx, "checkpoint.load")
	defer span.End()
	span.SetAttributes(attribute.String("checkpoint_id", id))

	cp, err := s.Get(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Checkpoint{}, err
	}

	if err := s.store.Restore(cp.State); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Checkpoint{}, fmt.Errorf("restoring state: %w", err)
	}

	if s.restoreCounter != nil {
		s.restoreCounter.Add(ctx, 1)
	}

	s.logger.Info("restored checkpoint",
		zap.String("id", cp.ID),
		zap.String("phase", string(cp.State.Phase)),
	)
	return cp, nil
}

// Delete removes a checkpoint file.
func (s *Service) Delete(ctx context.Context, id string) error {
	_, span := s.tracer.Start(ctx, "checkpoint.delete")
	defer span.End()

	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("deleting checkpoint: %w", err)
	}

	s.logger.Info("deleted checkpoint", zap.String("id", id))
	return nil
}

func (s *Service) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// read parses and fully validates one checkpoint file.
func (s *Service) read(path string) (Checkpoint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Checkpoint{}, err
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrMalformed, filepath.Base(path), err)
	}
	if cp.ID == "" {
		return Checkpoint{}, fmt.Errorf("%w: %s: missing id", ErrMalformed, filepath.Base(path))
	}
	if err := state.Validate(cp.State); err != nil {
		return Checkpoint{}, fmt.Errorf("%w: %s: %v", ErrMalformed, filepath.Base(path), err)
	}
	return cp, nil
}

// prune removes the oldest checkpoints beyond the retention count.
func (s *Service) prune() error {
	checkpoints, err := s.List(context.Background())
	if err != nil {
		return err
	}
	if len(checkpoints) <= s.config.MaxCheckpoints {
		return nil
	}

	for _, cp := range checkpoints[s.config.MaxCheckpoints:] {
		if err := os.Remove(s.path(cp.ID)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("pruning checkpoint %s: %w", cp.ID, err)
		}
		s.logger.Debug("pruned checkpoint", zap.String("id", cp.ID))
	}
	return nil
}
