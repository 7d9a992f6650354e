package prometheus

import (
	"os"

	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Exporter is the Prometheus exporter that implements the prometheus.Collector interface. It reports the rows of the
// latest successful refresh and never triggers a refresh on its own.
type Exporter struct {
	cfg     Config
	logger  *zap.Logger
	storage *minion.Storage

	// Exporter metrics
	exporterUp    *prometheus.Desc
	lastRefresh   *prometheus.Desc
	refreshesDesc *prometheus.Desc

	// Lag metrics
	topicLagMean        *prometheus.Desc
	topicLagMax         *prometheus.Desc
	topicLagSum         *prometheus.Desc
	topicPartitionCount *prometheus.Desc
}

func NewExporter(cfg Config, logger *zap.Logger, storage *minion.Storage) *Exporter {
	e := &Exporter{cfg: cfg, logger: logger.Named("prometheus"), storage: storage}
	e.InitializeMetrics()
	return e
}

func (e *Exporter) InitializeMetrics() {
	e.exporterUp = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "exporter", "up"),
		"Build info about this Prometheus Exporter. Gauge value is 0 if the latest refresh has failed.",
		nil,
		map[string]string{"version": os.Getenv("EXPORTER_VERSION")},
	)
	e.lastRefresh = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "exporter", "last_refresh_timestamp_seconds"),
		"Unix timestamp of the latest successful refresh",
		nil,
		nil,
	)
	e.refreshesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "exporter", "refreshes_total"),
		"Number of refreshes by result",
		[]string{"result"},
		nil,
	)

	// Lag metrics
	e.topicLagMean = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_topic_lag_mean"),
		"Mean lag of a consumer group across all partitions of a topic",
		[]string{"group_id", "topic_name"},
		nil,
	)
	e.topicLagMax = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_topic_lag_max"),
		"Highest partition lag of a consumer group on a topic",
		[]string{"group_id", "topic_name"},
		nil,
	)
	e.topicLagSum = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_topic_lag_sum"),
		"Summed lag of a consumer group across all partitions of a topic",
		[]string{"group_id", "topic_name"},
		nil,
	)
	e.topicPartitionCount = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "kafka", "consumer_group_topic_partition_count"),
		"Number of partitions of a topic reported for a consumer group",
		[]string{"group_id", "topic_name"},
		nil,
	)
}

// Describe implements the prometheus.Collector interface. It sends the
// super-set of all possible descriptors of metrics collected by this
// Collector to the provided channel and returns once the last descriptor
// has been sent.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.exporterUp
	ch <- e.lastRefresh
	ch <- e.refreshesDesc
	ch <- e.topicLagMean
	ch <- e.topicLagMax
	ch <- e.topicLagSum
	ch <- e.topicPartitionCount
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.collectConsumerGroupLags(ch)
	e.collectExporterMetrics(ch)
}

func (e *Exporter) collectConsumerGroupLags(ch chan<- prometheus.Metric) {
	for _, row := range e.storage.Rows() {
		ch <- prometheus.MustNewConstMetric(e.topicLagMean, prometheus.GaugeValue, row.LagMean, row.Group, row.Topic)
		ch <- prometheus.MustNewConstMetric(e.topicLagMax, prometheus.GaugeValue, float64(row.LagMax), row.Group, row.Topic)
		ch <- prometheus.MustNewConstMetric(e.topicLagSum, prometheus.GaugeValue, float64(row.LagSum), row.Group, row.Topic)
		ch <- prometheus.MustNewConstMetric(
			e.topicPartitionCount,
			prometheus.GaugeValue,
			float64(row.PartitionCount),
			row.Group,
			row.Topic,
		)
	}
}

func (e *Exporter) collectExporterMetrics(ch chan<- prometheus.Metric) {
	lastSuccess := e.storage.LastSuccess()
	ok := !lastSuccess.IsZero() && e.storage.LastError() == nil
	if ok {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 1.0)
	} else {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 0.0)
	}

	lastRefresh := float64(0)
	if !lastSuccess.IsZero() {
		lastRefresh = float64(lastSuccess.UnixNano()) / 1e9
	}
	ch <- prometheus.MustNewConstMetric(e.lastRefresh, prometheus.GaugeValue, lastRefresh)

	succeeded, failed := e.storage.RefreshCounts()
	ch <- prometheus.MustNewConstMetric(e.refreshesDesc, prometheus.CounterValue, float64(succeeded), "success")
	ch <- prometheus.MustNewConstMetric(e.refreshesDesc, prometheus.CounterValue, float64(failed), "failure")

	if err := e.storage.LastError(); err != nil {
		e.logger.Debug("reporting exporter as down because the latest refresh failed",
			zap.Time("last_failure", e.storage.LastFailure()),
			zap.Error(err))
	}
}
