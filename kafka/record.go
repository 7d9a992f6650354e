package kafka

// LagRecord is a single partition line of the describe output.
type LagRecord struct {
	Group     string
	Topic     string
	Partition int32
	Lag       int64
}
