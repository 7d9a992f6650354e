package minion

import "fmt"

type TopicConfig struct {
	// AllowedTopics are regex strings of topic names whose lag shall be shown.
	AllowedTopics []string `koanf:"allowedTopics"`

	// IgnoredTopics are regex strings of topic names that shall be skipped. Ignored topics take precedence over
	// allowed topics.
	IgnoredTopics []string `koanf:"ignoredTopics"`
}

func (c *TopicConfig) Validate() error {
	for _, topic := range c.AllowedTopics {
		_, err := compileRegex(topic)
		if err != nil {
			return fmt.Errorf("allowed topic string '%v' is not valid regex", topic)
		}
	}

	for _, topic := range c.IgnoredTopics {
		_, err := compileRegex(topic)
		if err != nil {
			return fmt.Errorf("ignored topic string '%v' is not valid regex", topic)
		}
	}

	return nil
}

func (c *TopicConfig) SetDefaults() {
	c.AllowedTopics = []string{"/.*/"}
}
