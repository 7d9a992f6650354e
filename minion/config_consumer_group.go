package minion

import (
	"fmt"
)

type ConsumerGroupConfig struct {
	// AllowedGroups are regex strings of group ids whose rows shall be shown. Describing a group that is not allowed
	// still runs the remote command, its rows are dropped before aggregation.
	AllowedGroupIDs []string `koanf:"allowedGroups"`

	// IgnoredGroups are regex strings of group ids that shall be skipped. Ignored groups take precedence over
	// allowed groups.
	IgnoredGroupIDs []string `koanf:"ignoredGroups"`
}

func (c *ConsumerGroupConfig) SetDefaults() {
	c.AllowedGroupIDs = []string{"/.*/"}
}

func (c *ConsumerGroupConfig) Validate() error {
	// Check if all group strings are valid regex or literals
	for _, groupID := range c.AllowedGroupIDs {
		_, err := compileRegex(groupID)
		if err != nil {
			return fmt.Errorf("allowed group string '%v' is not valid regex", groupID)
		}
	}

	for _, groupID := range c.IgnoredGroupIDs {
		_, err := compileRegex(groupID)
		if err != nil {
			return fmt.Errorf("ignored group string '%v' is not valid regex", groupID)
		}
	}

	return nil
}
