package screening

import "errors"

// Run-level fatal errors. Anything else that happens while processing a
// single instrument is recoverable: logged and skipped.
var (
	// ErrEmptyUniverse means the universe provider returned no instruments;
	// there is nothing to screen and the run fails fast
	ErrEmptyUniverse = errors.New("screening universe is empty")

	// ErrStrategyNotFound means the requested strategy id is not registered
	ErrStrategyNotFound = errors.New("strategy not found")

	// ErrRunInProgress means a run for the same strategy is already active
	ErrRunInProgress = errors.New("screening run already in progress")
)
