package domain

type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
	TaskCancelled  TaskStatus = "cancelled"
)

type TaskKind string

const (
	KindMaster     TaskKind = "master"
	KindInstance   TaskKind = "instance"
	KindStandalone TaskKind = "standalone"
)

type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
	FreqYearly  Frequency = "yearly"
	FreqCustom  Frequency = "custom"
)

// ValidFrequencies is the canonical set of accepted frequency strings.
var ValidFrequencies = map[string]bool{
	"daily": true, "weekly": true, "monthly": true,
	"yearly": true, "custom": true,
}

type ExceptionType string

const (
	ExceptionModified  ExceptionType = "modified"
	ExceptionCancelled ExceptionType = "cancelled"
	ExceptionMoved     ExceptionType = "moved"
)

type EditScope string

const (
	ScopeThis          EditScope = "this"
	ScopeThisAndFuture EditScope = "this_and_future"
	ScopeAll           EditScope = "all"
)

// ValidEditScopes is the canonical set of accepted edit scope strings.
var ValidEditScopes = map[string]bool{
	"this": true, "this_and_future": true, "all": true,
}
