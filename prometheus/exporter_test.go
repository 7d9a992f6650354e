package prometheus

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
	"github.com/cloudhut/kafka-lag-monitor/minion"
	"github.com/cloudhut/kafka-lag-monitor/progress"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	outputs []minion.Output
	err     error
}

func (s *fakeSource) Fetch(context.Context, progress.Sink) ([]minion.Output, error) {
	return s.outputs, s.err
}

func newTestExporter(t *testing.T, source *fakeSource) (*Exporter, *minion.Service) {
	t.Helper()

	minionCfg := minion.Config{}
	minionCfg.SetDefaults()
	svc, err := minion.NewService(minionCfg, zap.NewNop(), source, kafka.NewFixedColumnParser())
	require.NoError(t, err)

	cfg := Config{}
	cfg.SetDefaults()
	cfg.Namespace = "test"
	t.Setenv("EXPORTER_VERSION", "dev")
	return NewExporter(cfg, zap.NewNop(), svc.Storage()), svc
}

func TestExporterCollect(t *testing.T) {
	source := &fakeSource{outputs: []minion.Output{{Source: "g1", Lines: []string{
		"",
		"GROUP TOPIC PARTITION CURRENT-OFFSET LOG-END-OFFSET LAG CONSUMER-ID HOST CLIENT-ID",
		"g1 t1 0 10 15 5 - - -",
		"g1 t1 1 10 17 7 - - -",
	}}}}
	exporter, svc := newTestExporter(t, source)

	// Nothing has been refreshed yet
	expected := `
# HELP test_exporter_up Build info about this Prometheus Exporter. Gauge value is 0 if the latest refresh has failed.
# TYPE test_exporter_up gauge
test_exporter_up{version="dev"} 0
`
	require.NoError(t, testutil.CollectAndCompare(exporter, strings.NewReader(expected), "test_exporter_up"))

	_, err := svc.Collect(context.Background(), progress.Nop{})
	require.NoError(t, err)

	expected = `
# HELP test_exporter_up Build info about this Prometheus Exporter. Gauge value is 0 if the latest refresh has failed.
# TYPE test_exporter_up gauge
test_exporter_up{version="dev"} 1
# HELP test_kafka_consumer_group_topic_lag_max Highest partition lag of a consumer group on a topic
# TYPE test_kafka_consumer_group_topic_lag_max gauge
test_kafka_consumer_group_topic_lag_max{group_id="g1",topic_name="t1"} 7
# HELP test_kafka_consumer_group_topic_lag_mean Mean lag of a consumer group across all partitions of a topic
# TYPE test_kafka_consumer_group_topic_lag_mean gauge
test_kafka_consumer_group_topic_lag_mean{group_id="g1",topic_name="t1"} 6
# HELP test_kafka_consumer_group_topic_lag_sum Summed lag of a consumer group across all partitions of a topic
# TYPE test_kafka_consumer_group_topic_lag_sum gauge
test_kafka_consumer_group_topic_lag_sum{group_id="g1",topic_name="t1"} 12
# HELP test_kafka_consumer_group_topic_partition_count Number of partitions of a topic reported for a consumer group
# TYPE test_kafka_consumer_group_topic_partition_count gauge
test_kafka_consumer_group_topic_partition_count{group_id="g1",topic_name="t1"} 2
`
	require.NoError(t, testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"test_exporter_up",
		"test_kafka_consumer_group_topic_lag_max",
		"test_kafka_consumer_group_topic_lag_mean",
		"test_kafka_consumer_group_topic_lag_sum",
		"test_kafka_consumer_group_topic_partition_count",
	))
}

func TestExporterReportsFailedRefresh(t *testing.T) {
	source := &fakeSource{outputs: []minion.Output{{Source: "g1", Lines: []string{"h1", "h2", "g1 t1 0 1 2 1"}}}}
	exporter, svc := newTestExporter(t, source)

	_, err := svc.Collect(context.Background(), progress.Nop{})
	require.NoError(t, err)

	source.outputs = nil
	source.err = errors.New("ssh: handshake failed")
	_, err = svc.Collect(context.Background(), progress.Nop{})
	require.Error(t, err)

	expected := `
# HELP test_exporter_refreshes_total Number of refreshes by result
# TYPE test_exporter_refreshes_total counter
test_exporter_refreshes_total{result="failure"} 1
test_exporter_refreshes_total{result="success"} 1
# HELP test_exporter_up Build info about this Prometheus Exporter. Gauge value is 0 if the latest refresh has failed.
# TYPE test_exporter_up gauge
test_exporter_up{version="dev"} 0
`
	require.NoError(t, testutil.CollectAndCompare(exporter, strings.NewReader(expected),
		"test_exporter_refreshes_total",
		"test_exporter_up",
	))

	// The rows of the last good refresh are still exported
	assert.Equal(t, 1, testutil.CollectAndCount(exporter, "test_kafka_consumer_group_topic_lag_mean"))
}

func TestHandlerServesMetrics(t *testing.T) {
	exporter, _ := newTestExporter(t, &fakeSource{})
	reg := prometheus.NewRegistry()
	reg.MustRegister(exporter)

	srv := httptest.NewServer(NewHandler(reg))
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "test_exporter_up")

	health, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	assert.Equal(t, 200, health.StatusCode)
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	assert.NoError(t, cfg.Validate())

	cfg.Port = 0
	assert.Error(t, cfg.Validate())

	cfg.SetDefaults()
	cfg.TLSCertFile = "cert.pem"
	assert.Error(t, cfg.Validate())
}
