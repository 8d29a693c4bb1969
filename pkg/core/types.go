package core

// StoreRequest describes a memory to persist.
//
// ProjectID, Type, and Summary are required; everything else is optional.
// Derived searchable fields are computed at write time, and an embedding is
// attached when an embedding provider is configured.
type StoreRequest struct {
	// ProjectID partitions memories into logical projects.
	ProjectID string

	// SessionID optionally groups memories created in one working session.
	SessionID string

	// Type classifies the memory (decision, solution, config, code,
	// error, session).
	Type string

	// Summary is a short, always-searchable description.
	Summary string

	// Data is a curated structured subset of the context.
	Data map[string]interface{}

	// RawContext is the unabridged structured payload, archived verbatim.
	RawContext map[string]interface{}

	// Artifacts holds named text blobs such as code snippets.
	Artifacts map[string]string

	// Tags is an unordered set of free-form labels.
	Tags []string

	// Replaces, RelatedTo, Impacts, and DerivedFrom are relation edges to
	// other memory ids.
	Replaces    []string
	RelatedTo   []string
	Impacts     []string
	DerivedFrom string
}

// StoreResult reports the outcome of a write.
type StoreResult struct {
	// ID is the id of the created memory.
	ID string

	Success bool
}

// DecisionOption is one considered alternative in a decision record.
type DecisionOption struct {
	Name string
	Pros []string
	Cons []string
}

// DecisionContext captures a recorded technical decision: the question,
// the options considered, and what was chosen and why.
type DecisionContext struct {
	Question string
	Analysis string
	Options  []DecisionOption
	Chosen   string
	Reason   string
}

// SolutionContext captures a solved problem: what went wrong, why, how it
// was fixed, and how to avoid it next time.
type SolutionContext struct {
	Problem       string
	RootCause     string
	Solution      string
	Prevention    string
	RelatedIssues []string
}

// SessionContext captures a working session handoff: what happened, what
// was decided, and what remains.
type SessionContext struct {
	Summary         string
	Decisions       []string
	UnfinishedTasks []string
	NextSteps       []string
}
