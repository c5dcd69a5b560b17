package trace

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ExecutionTrace is the canonical record of what an invocation (or a watch
// session) did to each task.
//
// A trace captures logical decisions only: no timestamps, durations, error
// text or other values that change between identical runs. GraphHash ties
// the trace to the task graph it was recorded against.
type ExecutionTrace struct {
	GraphHash string
	Events    []TraceEvent
}

// TraceEventKind is the stable discriminator for TraceEvent. The string
// values are part of the trace's canonical bytes.
type TraceEventKind string

const (
	EventTaskTriggered TraceEventKind = "TaskTriggered"
	EventTaskExecuted  TraceEventKind = "TaskExecuted"
	EventTaskFailed    TraceEventKind = "TaskFailed"
	EventTaskSkipped   TraceEventKind = "TaskSkipped"
)

// Stable reason codes.
const (
	ReasonUpstreamFailed = "UpstreamFailed"
	ReasonCancelled      = "Cancelled"
	ReasonFileChanged    = "FileChanged"
	ReasonTaskFailed     = "TaskFailed"
)

// TraceEvent is a single logical transition or decision.
type TraceEvent struct {
	Kind TraceEventKind

	// TaskID names the task the event refers to. Required.
	TaskID string

	// Seq orders repeated events of the same task; the Recorder assigns it
	// starting at 1. Zero means unordered.
	Seq int

	// Reason is a stable reason code such as "UpstreamFailed" or
	// "StageFailed:compile".
	Reason string

	// CauseTaskID records the prerequisite that caused a skip.
	CauseTaskID string

	// Path is the project-relative file that triggered a run.
	Path string

	// Artifacts lists the paths a task wrote.
	Artifacts []string
}

// FailureReason derives a stable reason code from a task failure. Errors
// that name a failed stage produce "StageFailed:<stage>".
func FailureReason(err error) string {
	var staged interface{ FailedStage() string }
	if errors.As(err, &staged) && staged.FailedStage() != "" {
		return "StageFailed:" + staged.FailedStage()
	}
	return ReasonTaskFailed
}

// Validate checks basic invariants and returns a descriptive error.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i := range t.Events {
		e := t.Events[i]
		if e.Kind == "" {
			return fmt.Errorf("events[%d].kind is required", i)
		}
		if e.TaskID == "" {
			return fmt.Errorf("events[%d].taskId is required for kind %q", i, e.Kind)
		}
		if e.Seq < 0 {
			return fmt.Errorf("events[%d].seq is negative", i)
		}
		if e.Kind == EventTaskTriggered && e.Path == "" {
			return fmt.Errorf("events[%d].path is required for kind %q", i, e.Kind)
		}
		for j, a := range e.Artifacts {
			if a == "" {
				return fmt.Errorf("events[%d].artifacts[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize normalizes and sorts the trace into its canonical form.
//
// Canonicalization rules:
//   - Artifacts are copied and sorted; empty slices become nil.
//   - Events are stably sorted by (taskId, seq, kindOrder, reason,
//     causeTaskId, path, artifacts).
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		if len(t.Events[i].Artifacts) == 0 {
			t.Events[i].Artifacts = nil
			continue
		}
		art := make([]string, len(t.Events[i].Artifacts))
		copy(art, t.Events[i].Artifacts)
		sort.Strings(art)
		t.Events[i].Artifacts = art
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a := t.Events[i]
		b := t.Events[j]

		if a.TaskID != b.TaskID {
			return a.TaskID < b.TaskID
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.CauseTaskID != b.CauseTaskID {
			return a.CauseTaskID < b.CauseTaskID
		}
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return compareStringSlices(a.Artifacts, b.Artifacts)
	})
}

func kindOrder(k TraceEventKind) int {
	switch k {
	case EventTaskTriggered:
		return 10
	case EventTaskExecuted:
		return 20
	case EventTaskFailed:
		return 30
	case EventTaskSkipped:
		return 40
	default:
		return 1000
	}
}

func compareStringSlices(a, b []string) bool {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// CanonicalJSON returns the canonical JSON encoding of the trace without
// mutating the caller's slices.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	copyTrace := ExecutionTrace{GraphHash: t.GraphHash}
	copyTrace.Events = make([]TraceEvent, len(t.Events))
	copy(copyTrace.Events, t.Events)
	copyTrace.Canonicalize()
	if err := copyTrace.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(&copyTrace)
}

// Hash returns the sha256 hex of the canonical JSON bytes.
func (t ExecutionTrace) Hash() (string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return "", err
	}
	return ComputeTraceHash(b), nil
}

// MarshalJSON fixes field order. It does not sort; use CanonicalJSON for
// canonical bytes.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.GraphHash == "" {
		return nil, errors.New("graphHash is required")
	}
	var buf bytes.Buffer
	buf.WriteString("{\"graphHash\":")
	gh, _ := json.Marshal(t.GraphHash)
	buf.Write(gh)

	buf.WriteString(",\"events\":[")
	for i := range t.Events {
		if i > 0 {
			buf.WriteByte(',')
		}
		eb, err := json.Marshal(t.Events[i])
		if err != nil {
			return nil, err
		}
		buf.Write(eb)
	}
	buf.WriteString("]}")
	return buf.Bytes(), nil
}

// MarshalJSON fixes field order and omits empty optional fields.
func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	var artifacts []string
	if len(e.Artifacts) > 0 {
		artifacts = make([]string, len(e.Artifacts))
		copy(artifacts, e.Artifacts)
		sort.Strings(artifacts)
	}

	var buf bytes.Buffer
	writeString := func(key, value string) {
		if value == "" {
			return
		}
		buf.WriteString(",\"" + key + "\":")
		vb, _ := json.Marshal(value)
		buf.Write(vb)
	}

	buf.WriteString("{\"kind\":")
	kb, _ := json.Marshal(string(e.Kind))
	buf.Write(kb)

	writeString("taskId", e.TaskID)
	if e.Seq > 0 {
		buf.WriteString(",\"seq\":")
		buf.WriteString(strconv.Itoa(e.Seq))
	}
	writeString("reason", e.Reason)
	writeString("causeTaskId", e.CauseTaskID)
	writeString("path", e.Path)

	if len(artifacts) > 0 {
		buf.WriteString(",\"artifacts\":[")
		for i := range artifacts {
			if i > 0 {
				buf.WriteByte(',')
			}
			ab, _ := json.Marshal(artifacts[i])
			buf.Write(ab)
		}
		buf.WriteByte(']')
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}
