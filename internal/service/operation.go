package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/gondar-software/domain-manager/internal/models"
)

// State is a provisioning operation's position in its state machine:
//
//	idle -> dns_done -> cert_done -> config_done -> committed
//	any non-terminal state -> rolling_back -> rolled_back | failed
type State string

const (
	StateIdle        State = "idle"
	StateDNSDone     State = "dns_done"
	StateCertDone    State = "cert_done"
	StateConfigDone  State = "config_done"
	StateCommitted   State = "committed"
	StateRollingBack State = "rolling_back"
	StateRolledBack  State = "rolled_back"
	StateFailed      State = "failed"
)

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool {
	return s == StateCommitted || s == StateRolledBack || s == StateFailed
}

type OperationKind string

const (
	OperationAdd    OperationKind = "add"
	OperationRemove OperationKind = "remove"
	OperationUpdate OperationKind = "update"
)

type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}

// StepResult records one external side effect attempted by an operation.
type StepResult struct {
	Name     string        `json:"name"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Operation is the report of one Add, Remove or Update.
type Operation struct {
	ID         string        `json:"id"`
	Kind       OperationKind `json:"kind"`
	Domain     string        `json:"domain"`
	Hosts      []models.Host `json:"hosts,omitempty"`
	State      State         `json:"state"`
	History    []Transition  `json:"history"`
	Steps      []StepResult  `json:"steps"`
	Error      string        `json:"error,omitempty"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`

	Err error `json:"-"`
}

func newOperation(kind OperationKind, domain string, hosts []models.Host) *Operation {
	return &Operation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Domain:    domain,
		Hosts:     hosts,
		State:     StateIdle,
		StartedAt: time.Now().UTC(),
	}
}

func (o *Operation) transition(to State, note string) {
	o.History = append(o.History, Transition{From: o.State, To: to, At: time.Now().UTC(), Note: note})
	o.State = to
}

func (o *Operation) recordStep(name string, started time.Time, err error) {
	r := StepResult{Name: name, Duration: time.Since(started)}
	if err != nil {
		r.Error = err.Error()
	}
	o.Steps = append(o.Steps, r)
}

func (o *Operation) finish(err error) {
	o.Err = err
	if err != nil {
		o.Error = err.Error()
	}
	o.FinishedAt = time.Now().UTC()
}

// Duration is how long the operation ran, or has been running.
func (o *Operation) Duration() time.Duration {
	if o.FinishedAt.IsZero() {
		return time.Since(o.StartedAt)
	}
	return o.FinishedAt.Sub(o.StartedAt)
}

// Visited reports whether the operation ever entered s.
func (o *Operation) Visited(s State) bool {
	for _, t := range o.History {
		if t.To == s {
			return true
		}
	}
	return false
}
