package harness

import (
	"bytes"

	"github.com/roach88/sheetbridge/internal/ir"
)

// Trace event types.
const (
	EventStep        = "step"
	EventRender      = "render"
	EventMount       = "mount"
	EventUnmount     = "unmount"
	EventRenderError = "render_error"
	EventNotify      = "notify"
	EventCommit      = "commit"
	EventChange      = "change"
	EventError       = "error"
)

// TraceEvent is one thing that happened during a run.
type TraceEvent struct {
	Seq        int64  `json:"seq"`
	Type       string `json:"type"`
	Op         string `json:"op,omitempty"`
	Window     string `json:"window,omitempty"`
	Subscriber string `json:"subscriber,omitempty"`
	Branch     string `json:"branch,omitempty"`
	Name       string `json:"name,omitempty"`
	Accepted   *bool  `json:"accepted,omitempty"`
	External   *bool  `json:"external,omitempty"`
	Revision   *int64 `json:"revision,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Message    string `json:"message,omitempty"`
}

// toCanonical converts the event to an IRObject, omitting empty fields.
func (e TraceEvent) toCanonical() ir.IRObject {
	obj := ir.IRObject{
		"seq":  ir.IRInt(e.Seq),
		"type": ir.IRString(e.Type),
	}
	for key, val := range map[string]string{
		"op":         e.Op,
		"window":     e.Window,
		"subscriber": e.Subscriber,
		"branch":     e.Branch,
		"name":       e.Name,
		"reason":     e.Reason,
		"message":    e.Message,
	} {
		if val != "" {
			obj[key] = ir.IRString(val)
		}
	}
	if e.Accepted != nil {
		obj["accepted"] = ir.IRBool(*e.Accepted)
	}
	if e.External != nil {
		obj["external"] = ir.IRBool(*e.External)
	}
	if e.Revision != nil {
		obj["revision"] = ir.IRInt(*e.Revision)
	}
	return obj
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step ran as expected and every expectation held.
	Pass bool `json:"pass"`

	// Trace lists events in the order they happened.
	Trace []TraceEvent `json:"trace"`

	// Errors holds one message per failed step or expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// record appends ev with the next seq.
func (r *Result) record(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}

// MarshalTrace renders a trace as canonical JSON lines: a header naming the
// scenario, then one line per event.
func MarshalTrace(scenarioName string, trace []TraceEvent) ([]byte, error) {
	var buf bytes.Buffer
	header, err := ir.MarshalCanonical(ir.IRObject{"scenario": ir.IRString(scenarioName)})
	if err != nil {
		return nil, err
	}
	buf.Write(header)
	buf.WriteByte('\n')

	for _, ev := range trace {
		line, err := ir.MarshalCanonical(ev.toCanonical())
		if err != nil {
			return nil, err
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func boolPtr(b bool) *bool    { return &b }
func int64Ptr(n int64) *int64 { return &n }
