package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/logging"
	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/cloudhut/kafka-lag-monitor/prometheus"
	"github.com/cloudhut/kafka-lag-monitor/remote"
	"github.com/cloudhut/kafka-lag-monitor/render"
	"github.com/cloudhut/kafka-lag-monitor/tui"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const name = "kafka-lag-monitor"

// overridden during build with ldflags
var version = "dev"

type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdin io.Reader, stdout io.Writer, stderr io.Writer) *cli.Command {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	return &cli.Command{
		Name:      name,
		Usage:     "Aggregate Kafka consumer group lag per group and topic",
		Version:   version,
		Reader:    stdin,
		Writer:    stdout,
		ErrWriter: stderr,
		Commands: []*cli.Command{
			a.remoteModeCmd(),
			a.stdinModeCmd(),
		},
	}
}

// Flags shared by both modes. Every command gets its own instances, flags keep state once parsed.
func sharedFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "Report progress and log at info level",
		},
		&cli.StringFlag{
			Name:  "tablefmt",
			Usage: fmt.Sprintf("Table format, one of: %v", strings.Join(render.SupportedFormats(), ", ")),
			Value: string(render.FormatPlain),
		},
		&cli.StringFlag{
			Name:    "config",
			Usage:   "Path to a YAML config file",
			Sources: cli.EnvVars(configFilepathEnvKey),
		},
	}
}

func (a *app) remoteModeCmd() *cli.Command {
	return &cli.Command{
		Name:    "remote-mode",
		Aliases: []string{"remote"},
		Usage:   "Describe consumer groups on a remote host over SSH",
		Description: `Connects to the remote host once, runs kafka-consumer-groups --describe for every group in order
and prints the lag aggregated per group and topic, worst mean lag first.

# Examples

One-shot table:
  kafka-lag-monitor remote-mode --remote ubuntu@10.0.0.5 -i ~/.ssh/id_ed25519 \
    --bootstrap-server localhost:9092 --group orders --group billing

Live view with Prometheus metrics:
  kafka-lag-monitor remote-mode --remote ubuntu@10.0.0.5 -i ~/.ssh/id_ed25519 \
    --bootstrap-server localhost:9092 --group orders,billing --watch --metrics-port 9308`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:  "remote",
				Usage: "SSH destination in the format username@host",
			},
			&cli.StringFlag{
				Name:    "key-filename",
				Aliases: []string{"i"},
				Usage:   "Private key used to authenticate against the remote host",
			},
			&cli.StringSliceFlag{
				Name:  "group",
				Usage: "Consumer group to describe (can be repeated or comma separated)",
			},
			&cli.StringFlag{
				Name:  "bootstrap-server",
				Usage: "Bootstrap server passed to kafka-consumer-groups on the remote host",
			},
			&cli.BoolFlag{
				Name:  "watch",
				Usage: "Keep refreshing in a live view",
			},
			&cli.DurationFlag{
				Name:  "refresh-interval",
				Usage: "Pause between automatic refreshes while watching (0 disables them)",
			},
			&cli.BoolFlag{
				Name:  "headless",
				Usage: "Print a table after every refresh instead of starting the live view",
			},
			&cli.IntFlag{
				Name:  "metrics-port",
				Usage: "Serve Prometheus metrics on this port while watching",
			},
		}, sharedFlags()...),
		Action: a.runRemoteMode,
	}
}

func (a *app) stdinModeCmd() *cli.Command {
	return &cli.Command{
		Name:    "stdin-mode",
		Aliases: []string{"stdin"},
		Usage:   "Aggregate describe output piped into stdin",
		Description: `Reads the output of one or more kafka-consumer-groups --describe runs from stdin.

# Examples

  ssh ubuntu@10.0.0.5 'kafka-consumer-groups --bootstrap-server localhost:9092 --describe --group orders' \
    | kafka-lag-monitor stdin-mode`,
		Flags:  sharedFlags(),
		Action: a.runStdinMode,
	}
}

// flagOverrides maps the explicitly set flags onto their config keys.
func flagOverrides(cmd *cli.Command) map[string]interface{} {
	overrides := make(map[string]interface{})
	setString := func(flag string, key string) {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}

	setString("remote", "remote.target")
	setString("key-filename", "remote.keyFile")
	setString("bootstrap-server", "kafka.bootstrapServer")
	setString("tablefmt", "output.tablefmt")

	if cmd.IsSet("group") {
		overrides["kafka.groups"] = splitGroups(cmd.StringSlice("group"))
	}
	if cmd.IsSet("refresh-interval") {
		overrides["watch.refreshInterval"] = cmd.Duration("refresh-interval")
	}
	if cmd.IsSet("headless") {
		overrides["watch.headless"] = cmd.Bool("headless")
	}
	if cmd.IsSet("metrics-port") {
		overrides["exporter.enabled"] = true
		overrides["exporter.port"] = int(cmd.Int("metrics-port"))
	}

	return overrides
}

func splitGroups(values []string) []string {
	groups := make([]string, 0, len(values))
	for _, value := range values {
		for _, group := range strings.Split(value, ",") {
			group = strings.TrimSpace(group)
			if group != "" {
				groups = append(groups, group)
			}
		}
	}
	return groups
}

func (a *app) loadConfig(cmd *cli.Command) (Config, error) {
	cfg, err := loadConfig(cmd.String("config"), flagOverrides(cmd))
	if err != nil {
		return Config{}, err
	}
	if cmd.Bool("verbose") {
		cfg.Logger.EnableVerbose()
	}
	return cfg, nil
}

func (a *app) newLogger(cfg Config, reg promclient.Registerer, out io.Writer) (*zap.Logger, func() error, error) {
	logger, closeFn, err := logging.NewLogger(cfg.Logger, cfg.Exporter.Namespace, reg, out)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return logger, closeFn, nil
}

func (a *app) runRemoteMode(ctx context.Context, cmd *cli.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	err = cfg.ValidateRemote()
	if err != nil {
		return err
	}

	watching := cmd.Bool("watch")
	liveView := watching && !cfg.Watch.Headless

	// The live view owns the terminal, logs are discarded unless a log file is configured
	logOut := a.stderr
	if liveView {
		logOut = nil
	}
	reg := promclient.NewRegistry()
	logger, closeLog, err := a.newLogger(cfg, reg, logOut)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	defer func() { _ = logger.Sync() }()

	// Validated by ValidateRemote
	target, _ := remote.ParseTarget(cfg.Remote.Target, cfg.Remote.KeyFile)
	policy, err := remote.NewBatchPolicy(cfg.Remote.FailurePolicy, logger)
	if err != nil {
		return err
	}
	executor := remote.NewExecutor(remote.NewSSHDialer(cfg.Remote, logger), policy, logger)
	commands := kafka.DescribeGroupCommands(cfg.Kafka.CommandBinary, cfg.Kafka.BootstrapServer, cfg.Kafka.Groups)
	logger.Info("created describe commands",
		zap.String("target", target.String()),
		zap.Strings("commands", commands))

	svc, err := newService(cfg, logger, minion.NewRemoteSource(executor, target, commands))
	if err != nil {
		return err
	}

	if watching {
		return a.watch(ctx, cfg, logger, reg, svc, target.String(), len(commands))
	}

	var sink progress.Sink = progress.Nop{}
	if cmd.Bool("verbose") {
		sink = progress.NewCounter(a.stderr, "describing consumer groups", cfg.Kafka.Groups)
	}
	rows, err := svc.Collect(ctx, sink)
	if err != nil {
		return err
	}
	return render.Write(a.stdout, rows, render.Format(cfg.Output.Format))
}

func (a *app) runStdinMode(ctx context.Context, cmd *cli.Command) error {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	err = cfg.Validate()
	if err != nil {
		return err
	}

	logger, closeLog, err := a.newLogger(cfg, promclient.NewRegistry(), a.stderr)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()
	defer func() { _ = logger.Sync() }()

	svc, err := newService(cfg, logger, minion.NewReaderSource("stdin", a.stdin))
	if err != nil {
		return err
	}

	rows, err := svc.Collect(ctx, progress.Nop{})
	if err != nil {
		return err
	}
	return render.Write(a.stdout, rows, render.Format(cfg.Output.Format))
}

func newService(cfg Config, logger *zap.Logger, source minion.Source) (*minion.Service, error) {
	parser, err := kafka.NewParser(cfg.Kafka.Parser)
	if err != nil {
		return nil, err
	}
	svc, err := minion.NewService(cfg.Minion, logger, source, parser)
	if err != nil {
		return nil, fmt.Errorf("failed to setup minion service: %w", err)
	}
	return svc, nil
}

// watch runs the live view (or the headless loop) and the metrics server until the user quits or ctx is cancelled.
func (a *app) watch(ctx context.Context, cfg Config, logger *zap.Logger, reg *promclient.Registry, svc *minion.Service, title string, steps int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	if cfg.Exporter.Enabled {
		reg.MustRegister(prometheus.NewExporter(cfg.Exporter, logger, svc.Storage()))
		g.Go(func() error {
			return prometheus.Serve(ctx, cfg.Exporter, reg, logger)
		})
	}

	g.Go(func() error {
		// Quitting the live view stops the metrics server as well
		defer cancel()
		if cfg.Watch.Headless {
			return tui.RunHeadless(ctx, cfg.Watch, logger, svc, a.stdout, render.Format(cfg.Output.Format))
		}
		return tui.NewView(cfg.Watch, logger, svc, title, steps).Run(ctx)
	})

	logger.Info("watching consumer group lags",
		zap.Duration("refresh_interval", cfg.Watch.RefreshInterval),
		zap.Bool("headless", cfg.Watch.Headless),
		zap.Bool("exporter_enabled", cfg.Exporter.Enabled),
		zap.Time("started_at", time.Now()))

	return g.Wait()
}
