package minion

import (
	"fmt"
	"sort"
	"time"

	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Storage holds the rows of the latest successful refresh plus refresh bookkeeping. It is read concurrently by the
// metrics exporter while the pipeline replaces it.
type Storage struct {
	logger *zap.Logger

	// rows is a map of all rows of the latest successful refresh.
	// A unique key in the format "group:topic" is used as map key.
	// Value is of type Row
	rows cmap.ConcurrentMap

	lastSuccess        *atomic.Time
	lastFailure        *atomic.Time
	lastError          *atomic.Error
	succeededRefreshes *atomic.Int64
	failedRefreshes    *atomic.Int64
}

func newStorage(logger *zap.Logger) *Storage {
	return &Storage{
		logger:             logger.Named("storage"),
		rows:               cmap.New(),
		lastSuccess:        atomic.NewTime(time.Time{}),
		lastFailure:        atomic.NewTime(time.Time{}),
		lastError:          atomic.NewError(nil),
		succeededRefreshes: atomic.NewInt64(0),
		failedRefreshes:    atomic.NewInt64(0),
	}
}

// replaceRows stores the new snapshot and removes rows of group/topic pairs that are no longer reported.
func (s *Storage) replaceRows(rows []Row, at time.Time) {
	keep := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		key := encodeRowKey(row.Group, row.Topic)
		keep[key] = struct{}{}
		s.rows.Set(key, row)
	}
	for _, key := range s.rows.Keys() {
		if _, exists := keep[key]; !exists {
			s.rows.Remove(key)
		}
	}

	s.lastSuccess.Store(at)
	s.lastError.Store(nil)
	s.succeededRefreshes.Inc()
	s.logger.Debug("stored refreshed rows", zap.Int("row_count", len(rows)))
}

func (s *Storage) markFailed(err error, at time.Time) {
	s.lastFailure.Store(at)
	s.lastError.Store(err)
	s.failedRefreshes.Inc()
}

// Rows returns the stored rows ordered by group and topic.
func (s *Storage) Rows() []Row {
	items := s.rows.Items()
	rows := make([]Row, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.(Row))
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Group != rows[j].Group {
			return rows[i].Group < rows[j].Group
		}
		return rows[i].Topic < rows[j].Topic
	})
	return rows
}

// LastSuccess returns the time of the latest successful refresh, zero if there has been none.
func (s *Storage) LastSuccess() time.Time {
	return s.lastSuccess.Load()
}

// LastFailure returns the time of the latest failed refresh, zero if there has been none.
func (s *Storage) LastFailure() time.Time {
	return s.lastFailure.Load()
}

// LastError returns the error of the latest refresh, nil if it succeeded.
func (s *Storage) LastError() error {
	return s.lastError.Load()
}

func (s *Storage) RefreshCounts() (succeeded int64, failed int64) {
	return s.succeededRefreshes.Load(), s.failedRefreshes.Load()
}

func encodeRowKey(group string, topic string) string {
	return fmt.Sprintf("%v:%v", group, topic)
}
