package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Refresher runs one pipeline refresh. minion.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, sink progress.Sink) ([]minion.Row, error)
}

const keyHelp = "r refresh  d dark mode  q quit"

// View is the live lag table. All fields below app are only touched on the tview event loop.
type View struct {
	cfg       Config
	logger    *zap.Logger
	refresher Refresher
	steps     int

	app    *tview.Application
	table  *tview.Table
	status *tview.TextView

	// queueUpdate hands a function to the event loop
	queueUpdate func(func())
	// isRefreshing is set while a refresh started by this view is in flight
	isRefreshing *atomic.Bool

	dark        bool
	rows        []minion.Row
	lastRefresh time.Time
}

// NewView creates the live view. Title is shown above the table, steps is the number of commands a refresh runs.
func NewView(cfg Config, logger *zap.Logger, refresher Refresher, title string, steps int) *View {
	table := tview.NewTable().SetFixed(1, 0).SetSelectable(true, false)
	table.SetBorder(true).SetTitle(" " + tview.Escape(title) + " ").SetTitleAlign(tview.AlignLeft)

	status := tview.NewTextView().SetDynamicColors(true).SetWrap(false)

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(table, 0, 1, true).
		AddItem(status, 1, 0, false)

	v := &View{
		cfg:       cfg,
		logger:    logger.Named("tui"),
		refresher: refresher,
		steps:     steps,

		app:    tview.NewApplication().SetRoot(layout, true).EnableMouse(false),
		table:  table,
		status: status,
		dark:   true,

		isRefreshing: atomic.NewBool(false),
	}
	v.queueUpdate = func(f func()) { v.app.QueueUpdateDraw(f) }
	fillTable(v.table, nil, v.theme())
	v.setStatus("[yellow]waiting for first refresh[-]")

	return v
}

// Run blocks until the user quits or ctx is cancelled.
func (v *View) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			v.app.Stop()
			return nil
		}
		switch event.Rune() {
		case 'q':
			v.app.Stop()
			return nil
		case 'r':
			go v.refresh(ctx)
			return nil
		case 'd':
			v.toggleDark()
			return nil
		}
		return event
	})

	go v.refreshLoop(ctx)
	go func() {
		<-ctx.Done()
		v.app.Stop()
	}()

	if err := v.app.Run(); err != nil {
		return fmt.Errorf("failed to run live view: %w", err)
	}
	return nil
}

func (v *View) refreshLoop(ctx context.Context) {
	v.refresh(ctx)
	if v.cfg.RefreshInterval == 0 {
		return
	}

	ticker := time.NewTicker(v.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.refresh(ctx)
		}
	}
}

// refresh runs off the event loop and hands its result to the event loop once it is done. A refresh requested while
// another one is running is dropped without touching the status line.
func (v *View) refresh(ctx context.Context) {
	if !v.isRefreshing.CompareAndSwap(false, true) {
		v.logger.Debug("skipping refresh, another refresh is still running")
		return
	}
	defer v.isRefreshing.Store(false)

	done := 0
	sink := progress.SinkFunc(func() {
		done++
		text := v.progressText(done)
		v.queueUpdate(func() { v.setStatus(text) })
	})
	v.queueUpdate(func() { v.setStatus(v.progressText(0)) })

	rows, err := v.refresher.Refresh(ctx, sink)
	if errors.Is(err, minion.ErrRefreshInProgress) {
		return
	}
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		v.logger.Warn("failed to refresh consumer group lags", zap.Error(err))
	}

	finishedAt := time.Now()
	v.queueUpdate(func() { v.applyResult(rows, err, finishedAt) })
}

func (v *View) progressText(done int) string {
	if v.steps > 0 {
		return fmt.Sprintf("[yellow]refreshing %d/%d[-]", done, v.steps)
	}
	return "[yellow]refreshing[-]"
}

// applyResult must be called on the event loop. A failed refresh keeps the previous rows on screen.
func (v *View) applyResult(rows []minion.Row, err error, at time.Time) {
	if err != nil {
		v.setStatus(fmt.Sprintf("[red]refresh failed: %v[-]", tview.Escape(err.Error())))
		return
	}

	v.rows = rows
	v.lastRefresh = at
	fillTable(v.table, v.rows, v.theme())
	v.setStatus(fmt.Sprintf("[green]%d rows, last refresh %v[-]", len(rows), at.Format(time.TimeOnly)))
}

func (v *View) toggleDark() {
	v.dark = !v.dark
	fillTable(v.table, v.rows, v.theme())
}

func (v *View) theme() theme {
	if v.dark {
		return darkTheme
	}
	return lightTheme
}

func (v *View) setStatus(text string) {
	v.status.SetText(text + "  " + keyHelp)
}
