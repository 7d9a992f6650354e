package minion

import (
	"sort"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
)

// Row is the aggregated lag of one consumer group on one topic.
type Row struct {
	Group          string  `json:"group" yaml:"group"`
	Topic          string  `json:"topic" yaml:"topic"`
	PartitionCount int     `json:"partition_count" yaml:"partition_count"`
	LagMean        float64 `json:"lag_mean" yaml:"lag_mean"`
	LagMax         int64   `json:"lag_max" yaml:"lag_max"`
	LagSum         int64   `json:"lag_sum" yaml:"lag_sum"`
}

type groupTopic struct {
	group string
	topic string
}

// Aggregate merges the records of all batches by (group, topic) and sorts the rows by mean lag, worst first. Rows
// with an equal mean keep the order in which their key was first seen.
func Aggregate(batches [][]kafka.LagRecord) []Row {
	index := make(map[groupTopic]int)
	rows := make([]Row, 0)
	lagTotals := make([]float64, 0)

	for _, records := range batches {
		for _, record := range records {
			key := groupTopic{group: record.Group, topic: record.Topic}
			i, exists := index[key]
			if !exists {
				i = len(rows)
				index[key] = i
				rows = append(rows, Row{Group: record.Group, Topic: record.Topic, LagMax: record.Lag})
				lagTotals = append(lagTotals, 0)
			}

			row := &rows[i]
			row.PartitionCount++
			row.LagSum += record.Lag
			if record.Lag > row.LagMax {
				row.LagMax = record.Lag
			}
			lagTotals[i] += float64(record.Lag)
		}
	}

	for i := range rows {
		rows[i].LagMean = lagTotals[i] / float64(rows[i].PartitionCount)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].LagMean > rows[j].LagMean
	})

	return rows
}
