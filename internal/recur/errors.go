package recur

import "errors"

var (
	// ErrMalformedRule reports a rule string whose frequency is missing
	// or not one of the recognized values.
	ErrMalformedRule = errors.New("malformed recurrence rule")

	// ErrGenerationOverflow reports that expansion would exceed the hard
	// occurrence cap, protecting callers against runaway unbounded rules.
	ErrGenerationOverflow = errors.New("occurrence generation exceeded safety cap")
)
