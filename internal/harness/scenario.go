package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sheetbridge/internal/bridge"
	"github.com/roach88/sheetbridge/internal/sheet"
)

// Scenario is one scripted sheet session.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what the scenario demonstrates.
	Description string `yaml:"description"`

	// Entity seeds the actor document.
	Entity EntitySeed `yaml:"entity"`

	// Policy is the store notify policy: forced_only (default) or on_commit.
	Policy string `yaml:"policy,omitempty"`

	// HostRefresh re-renders every open sheet after an accepted commit, as
	// the host does on document updates. External changes always re-render.
	HostRefresh bool `yaml:"host_refresh,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`
}

// EntitySeed is the initial document content.
type EntitySeed struct {
	ID    string         `yaml:"id"`
	Type  string         `yaml:"type,omitempty"`
	Name  string         `yaml:"name"`
	Img   string         `yaml:"img,omitempty"`
	Data  map[string]any `yaml:"data,omitempty"`
	Owner *bool          `yaml:"owner,omitempty"` // default true
}

// Step is one operation plus the expectations checked after it.
type Step struct {
	// Op is one of the Op* constants.
	Op string `yaml:"op"`

	// Window labels the sheet window the step targets. Default "main".
	Window string `yaml:"window,omitempty"`

	// Subscriber names the handler for subscribe and unsubscribe.
	Subscriber string `yaml:"subscriber,omitempty"`

	// Name and Data build the value for set, update_name and
	// external_change. Unset fields keep the current value.
	Name *string        `yaml:"name,omitempty"`
	Data map[string]any `yaml:"data,omitempty"`

	// Force is the set force flag. Render steps ignore it.
	Force bool `yaml:"force,omitempty"`

	// Editable overrides the editable flag on render.
	Editable *bool `yaml:"editable,omitempty"`

	// Error, when set, is the expected error message substring. A step
	// error that is not expected fails the scenario.
	Error string `yaml:"error,omitempty"`

	// Message is the preparation error injected by fail_prepare.
	Message string `yaml:"message,omitempty"`

	Expect []Expectation `yaml:"expect,omitempty"`
}

// Expectation is one check. Exactly one field must be set.
type Expectation struct {
	// Notified checks what a subscriber received so far.
	Notified *NotifiedExpect `yaml:"notified,omitempty"`

	// State is the window's controller state (unmounted, mounting, mounted, errored).
	State string `yaml:"state,omitempty"`

	// Stores is how many stores the window has built.
	Stores *int `yaml:"stores,omitempty"`

	// CurrentName is the Name of the window store's current value.
	CurrentName *string `yaml:"current_name,omitempty"`

	// Registered is how many renderers are registered for the entity.
	Registered *int `yaml:"registered,omitempty"`

	// Editable is the window's editable flag.
	Editable *bool `yaml:"editable,omitempty"`

	// Revision is the document's accepted revision.
	Revision *int64 `yaml:"revision,omitempty"`
}

// NotifiedExpect checks a subscriber's notifications. Subscribers named
// "view:<window>" are the mounted views.
type NotifiedExpect struct {
	Subscriber string  `yaml:"subscriber"`
	Count      int     `yaml:"count"`
	Name       *string `yaml:"name,omitempty"` // name of the last value
}

// Step operations.
const (
	OpRender         = "render"
	OpRenderOverlap  = "render_overlap"
	OpClose          = "close"
	OpSubscribe      = "subscribe"
	OpUnsubscribe    = "unsubscribe"
	OpSet            = "set"
	OpUpdateName     = "update_name"
	OpRejectNext     = "reject_next"
	OpExternalChange = "external_change"
	OpDestroy        = "destroy"
	OpFailPrepare    = "fail_prepare"
)

var knownOps = map[string]bool{
	OpRender: true, OpRenderOverlap: true, OpClose: true,
	OpSubscribe: true, OpUnsubscribe: true, OpSet: true,
	OpUpdateName: true, OpRejectNext: true, OpExternalChange: true,
	OpDestroy: true, OpFailPrepare: true,
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.Entity.ID == "" {
		return fmt.Errorf("entity.id is required")
	}
	if _, err := bridge.ParseNotifyPolicy(s.Policy); err != nil {
		return err
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, st *Step) error {
	if st.Op == "" {
		return fmt.Errorf("steps[%d]: op is required", index)
	}
	if !knownOps[st.Op] {
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	switch st.Op {
	case OpSubscribe, OpUnsubscribe:
		if st.Subscriber == "" {
			return fmt.Errorf("steps[%d]: subscriber is required for %s", index, st.Op)
		}
	case OpUpdateName:
		if st.Name == nil {
			return fmt.Errorf("steps[%d]: name is required for update_name", index)
		}
	}

	for j, e := range st.Expect {
		if err := validateExpectation(e); err != nil {
			return fmt.Errorf("steps[%d].expect[%d]: %w", index, j, err)
		}
	}
	return nil
}

func validateExpectation(e Expectation) error {
	set := 0
	if e.Notified != nil {
		set++
		if e.Notified.Subscriber == "" {
			return fmt.Errorf("notified.subscriber is required")
		}
		if e.Notified.Count < 0 {
			return fmt.Errorf("notified.count must be non-negative")
		}
	}
	if e.State != "" {
		set++
		if _, err := sheet.ParseState(e.State); err != nil {
			return err
		}
	}
	for _, present := range []bool{
		e.Stores != nil, e.CurrentName != nil, e.Registered != nil,
		e.Editable != nil, e.Revision != nil,
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one check per expectation, got %d", set)
	}
	return nil
}
