package minion

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudhut/kafka-lag-monitor/kafka"
)

// recordFilter drops records of groups or topics that are not allowed. Ignore lists take precedence.
type recordFilter struct {
	allowedGroups []*regexp.Regexp
	ignoredGroups []*regexp.Regexp
	allowedTopics []*regexp.Regexp
	ignoredTopics []*regexp.Regexp
}

func newRecordFilter(cfg Config) (*recordFilter, error) {
	var f recordFilter
	var err error
	if f.allowedGroups, err = compileRegexes(cfg.ConsumerGroups.AllowedGroupIDs); err != nil {
		return nil, err
	}
	if f.ignoredGroups, err = compileRegexes(cfg.ConsumerGroups.IgnoredGroupIDs); err != nil {
		return nil, err
	}
	if f.allowedTopics, err = compileRegexes(cfg.Topics.AllowedTopics); err != nil {
		return nil, err
	}
	if f.ignoredTopics, err = compileRegexes(cfg.Topics.IgnoredTopics); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *recordFilter) IsGroupAllowed(groupName string) bool {
	return isAllowed(groupName, f.allowedGroups, f.ignoredGroups)
}

func (f *recordFilter) IsTopicAllowed(topicName string) bool {
	return isAllowed(topicName, f.allowedTopics, f.ignoredTopics)
}

// Apply returns the allowed records in a new slice, the input is left untouched.
func (f *recordFilter) Apply(records []kafka.LagRecord) []kafka.LagRecord {
	filtered := make([]kafka.LagRecord, 0, len(records))
	for _, record := range records {
		if f.IsGroupAllowed(record.Group) && f.IsTopicAllowed(record.Topic) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

func isAllowed(name string, allowed []*regexp.Regexp, ignored []*regexp.Regexp) bool {
	isAllowed := false
	for _, regex := range allowed {
		if regex.MatchString(name) {
			isAllowed = true
			break
		}
	}

	for _, regex := range ignored {
		if regex.MatchString(name) {
			isAllowed = false
			break
		}
	}
	return isAllowed
}

// compileRegex treats "/expr/" as a regular expression and anything else as a literal name.
func compileRegex(expr string) (*regexp.Regexp, error) {
	if len(expr) >= 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		return regexp.Compile(expr[1 : len(expr)-1])
	}

	return regexp.Compile("^" + regexp.QuoteMeta(expr) + "$")
}

func compileRegexes(expr []string) ([]*regexp.Regexp, error) {
	compiledExpressions := make([]*regexp.Regexp, len(expr))
	for i, exprStr := range expr {
		expr, err := compileRegex(exprStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression string '%v': %w", exprStr, err)
		}
		compiledExpressions[i] = expr
	}

	return compiledExpressions, nil
}
