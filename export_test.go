package apicall

// Exported for tests in apicall_test.
var DecideAttempt = decideAttempt

type AttemptOutcome = attemptOutcome

const (
	OutcomeDone      = outcomeDone
	OutcomeRetry     = outcomeRetry
	OutcomeExhausted = outcomeExhausted
	OutcomeFatal     = outcomeFatal
)
