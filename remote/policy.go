package remote

import (
	"fmt"

	"go.uber.org/zap"
)

// BatchPolicy decides whether a batch keeps going after a command and which results survive once it is done.
type BatchPolicy interface {
	// Abort is consulted after every command. Returning true stops the batch before the next command.
	Abort(result Result) bool
	// Resolve turns the collected results into the batch outcome.
	Resolve(results []Result) ([]Result, error)
}

func NewBatchPolicy(name string, logger *zap.Logger) (BatchPolicy, error) {
	switch name {
	case FailurePolicyAllOrNothing, "":
		return AllOrNothing{}, nil
	case FailurePolicyBestEffort:
		return BestEffort{logger: logger.Named("policy")}, nil
	default:
		return nil, fmt.Errorf("unknown failure policy '%v'", name)
	}
}

// AllOrNothing stops at the first failed command and discards every result of the batch.
type AllOrNothing struct{}

func (AllOrNothing) Abort(result Result) bool {
	return result.Failed()
}

func (AllOrNothing) Resolve(results []Result) ([]Result, error) {
	for _, result := range results {
		if err := result.Err(); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// BestEffort runs every command and drops the failed ones. It only fails if no command succeeded.
type BestEffort struct {
	logger *zap.Logger
}

func (BestEffort) Abort(Result) bool {
	return false
}

func (p BestEffort) Resolve(results []Result) ([]Result, error) {
	succeeded := make([]Result, 0, len(results))
	var firstErr error
	for _, result := range results {
		err := result.Err()
		if err == nil {
			succeeded = append(succeeded, result)
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if p.logger != nil {
			p.logger.Warn("dropping output of failed command", zap.Error(err))
		}
	}

	if len(succeeded) == 0 && firstErr != nil {
		return nil, fmt.Errorf("all %d commands failed: %w", len(results), firstErr)
	}
	return succeeded, nil
}
