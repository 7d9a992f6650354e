package tui

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/cloudhut/kafka-lag-monitor/render"
	"go.uber.org/zap"
)

// RunHeadless refreshes on every tick and prints the table after each successful refresh until ctx is cancelled.
// Failed refreshes are logged, the loop keeps going.
func RunHeadless(ctx context.Context, cfg Config, logger *zap.Logger, refresher Refresher, out io.Writer, format render.Format) error {
	logger = logger.Named("headless")

	ticker := time.NewTicker(cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		if err := refreshAndPrint(ctx, logger, refresher, out, format); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func refreshAndPrint(ctx context.Context, logger *zap.Logger, refresher Refresher, out io.Writer, format render.Format) error {
	rows, err := refresher.Refresh(ctx, progress.Nop{})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("failed to refresh consumer group lags", zap.Error(err))
		return nil
	}

	if _, err := fmt.Fprintf(out, "# %v\n", time.Now().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	if err := render.Write(out, rows, format); err != nil {
		return fmt.Errorf("failed to write table: %w", err)
	}
	return nil
}

var _ Refresher = (*minion.Service)(nil)
