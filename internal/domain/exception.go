package domain

import "time"

// Exception records how one occurrence of a series deviates from rule
// generation. Keyed by (MasterTaskID, Date); the store enforces at most
// one exception per date per master.
type Exception struct {
	MasterTaskID string
	Date         time.Time
	Type         ExceptionType
	// NewTaskID points at the concrete task carrying the modified or
	// moved data, when one exists.
	NewTaskID *string
	Notes     string
	CreatedAt time.Time
}
