package models

// TaskState is the per-task provisioning state machine.
type TaskState int

const (
	Pending TaskState = iota
	Cloned
	Started
	Configuring
	Ready
	Failed
)

func (s TaskState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Cloned:
		return "cloned"
	case Started:
		return "started"
	case Configuring:
		return "configuring"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// FailureKind names why a task ended in Failed.
type FailureKind int

const (
	NoFailure FailureKind = iota
	CloneFailure
	StartFailure
	ReadinessTimeout
	NetworkConfigMismatch
)

func (k FailureKind) String() string {
	switch k {
	case NoFailure:
		return ""
	case CloneFailure:
		return "clone failure"
	case StartFailure:
		return "start failure"
	case ReadinessTimeout:
		return "readiness timeout"
	case NetworkConfigMismatch:
		return "network config mismatch"
	}
	return "unknown"
}

func (k FailureKind) MarshalYAML() (any, error) {
	return k.String(), nil
}

// Outcome records how one task ended. Never mutated after the task
// completes.
type Outcome struct {
	Task    CloneTask   `yaml:"task"`
	State   TaskState   `yaml:"-"`
	Failure FailureKind `yaml:"failure,omitempty"`
	Detail  string      `yaml:"detail,omitempty"`
}

// Report is the result of one provisioning run.
type Report struct {
	Ready  []Outcome `yaml:"ready"`
	Failed []Outcome `yaml:"failed"`
}

func (r *Report) Add(outcome Outcome) {
	if outcome.State == Ready {
		r.Ready = append(r.Ready, outcome)
		return
	}
	r.Failed = append(r.Failed, outcome)
}

func (r *Report) AllReady() bool {
	return len(r.Failed) == 0
}
