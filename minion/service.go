package minion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/google/uuid"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// ErrRefreshInProgress is returned by Refresh while another refresh has not finished yet.
var ErrRefreshInProgress = errors.New("a refresh is already in progress")

// Service runs the fetch -> parse -> aggregate pipeline. Every run starts from scratch, only the rows of the latest
// successful run are kept in Storage for the metrics exporter.
type Service struct {
	Cfg    Config
	logger *zap.Logger

	source  Source
	parser  kafka.Parser
	filter  *recordFilter
	storage *Storage

	// isRefreshing guards Refresh so that at most one connection is opened against the target at a time
	isRefreshing *atomic.Bool
}

func NewService(cfg Config, logger *zap.Logger, source Source, parser kafka.Parser) (*Service, error) {
	filter, err := newRecordFilter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create record filter: %w", err)
	}

	return &Service{
		Cfg:    cfg,
		logger: logger.Named("minion"),

		source:  source,
		parser:  parser,
		filter:  filter,
		storage: newStorage(logger),

		isRefreshing: atomic.NewBool(false),
	}, nil
}

// Collect runs the pipeline once. It blocks until every command has completed and its output has been parsed.
func (s *Service) Collect(ctx context.Context, sink progress.Sink) ([]Row, error) {
	logger := s.logger.With(zap.String("run_id", uuid.NewString()))
	startedAt := time.Now()

	rows, err := s.collect(ctx, sink)
	if err != nil {
		s.storage.markFailed(err, time.Now())
		logger.Warn("failed to collect consumer group lags",
			zap.Duration("duration", time.Since(startedAt)),
			zap.Error(err))
		return nil, err
	}

	s.storage.replaceRows(rows, time.Now())
	logger.Info("collected consumer group lags",
		zap.Int("row_count", len(rows)),
		zap.Duration("duration", time.Since(startedAt)))

	return rows, nil
}

// Refresh is Collect behind a busy guard. A call made while another refresh is running returns
// ErrRefreshInProgress immediately instead of queueing up.
func (s *Service) Refresh(ctx context.Context, sink progress.Sink) ([]Row, error) {
	if !s.isRefreshing.CompareAndSwap(false, true) {
		return nil, ErrRefreshInProgress
	}
	defer s.isRefreshing.Store(false)

	return s.Collect(ctx, sink)
}

func (s *Service) IsRefreshing() bool {
	return s.isRefreshing.Load()
}

func (s *Service) Storage() *Storage {
	return s.storage
}

func (s *Service) collect(ctx context.Context, sink progress.Sink) ([]Row, error) {
	outputs, err := s.source.Fetch(ctx, sink)
	if err != nil {
		return nil, err
	}

	batches := make([][]kafka.LagRecord, 0, len(outputs))
	for _, output := range outputs {
		records, err := s.parse(output)
		if err != nil {
			return nil, err
		}
		batches = append(batches, s.filter.Apply(records))
	}

	return Aggregate(batches), nil
}

func (s *Service) parse(output Output) ([]kafka.LagRecord, error) {
	records, err := s.parser.Parse(output.Lines)
	if err != nil {
		return nil, fmt.Errorf("failed to parse output of %v: %w", output.Source, err)
	}
	return records, nil
}
