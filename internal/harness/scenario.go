package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a set of documents, a sequence of query and update steps,
// and assertions on the final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Documents are created, in order, before the first step.
	Documents []Document `yaml:"documents"`

	// Steps run in order. Each step is exactly one of query, insert,
	// insert_attribute or delete.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Document is a document created during setup.
type Document struct {
	Name string `yaml:"name"`
	// URI is the document URI; defaults to Name.
	URI string `yaml:"uri,omitempty"`
	// XML is the inline document text.
	XML string `yaml:"xml,omitempty"`
	// File is a path to the document text, relative to the scenario.
	File string `yaml:"file,omitempty"`
}

// Step is one query or update.
type Step struct {
	Query string         `yaml:"query,omitempty"`
	Vars  map[string]any `yaml:"vars,omitempty"`

	Insert          *InsertStep    `yaml:"insert,omitempty"`
	InsertAttribute *AttributeStep `yaml:"insert_attribute,omitempty"`
	Delete          *DeleteStep    `yaml:"delete,omitempty"`

	// Expect is checked against the step outcome. If nil, the step must
	// succeed and its items are only recorded.
	Expect *Expect `yaml:"expect,omitempty"`
}

// InsertStep appends a fragment to the node at Parent.
type InsertStep struct {
	Doc    string `yaml:"doc"`
	Parent int    `yaml:"parent"`
	XML    string `yaml:"xml"`
}

// AttributeStep adds an attribute to the element at Pre.
type AttributeStep struct {
	Doc   string `yaml:"doc"`
	Pre   int    `yaml:"pre"`
	Name  string `yaml:"name"`
	Value string `yaml:"value"`
}

// DeleteStep removes the node at Pre.
type DeleteStep struct {
	Doc string `yaml:"doc"`
	Pre int    `yaml:"pre"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Items is the exact expected output, nodes serialized as XML.
	Items []string `yaml:"items,omitempty"`
	// Count is the expected number of items.
	Count *int `yaml:"count,omitempty"`
	// Error is the expected error code: a query error code such as
	// XPTY0004, or a session code such as INVALID_TARGET.
	Error string `yaml:"error,omitempty"`
	// Empty expects no items. It distinguishes an empty result from an
	// omitted items list.
	Empty bool `yaml:"empty,omitempty"`
}

// Assertion validates the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Doc names the document (node_count).
	Doc string `yaml:"doc,omitempty"`

	// Count is the expected number (document_count, node_count,
	// trace_count).
	Count int `yaml:"count,omitempty"`

	// Query is run after all steps (query_result).
	Query string `yaml:"query,omitempty"`

	// Items is the expected output of Query (query_result).
	Items []string `yaml:"items,omitempty"`

	// Event is the trace event type counted (trace_count).
	Event string `yaml:"event,omitempty"`
}

// Assertion type constants.
const (
	AssertDocumentCount = "document_count"
	AssertNodeCount     = "node_count"
	AssertQueryResult   = "query_result"
	AssertTraceCount    = "trace_count"
)

// Kind returns the trace event type of the step, or "" if the step names
// no operation or more than one.
func (s *Step) Kind() string {
	kind, n := "", 0
	if s.Query != "" {
		kind, n = EventQuery, n+1
	}
	if s.Insert != nil {
		kind, n = EventInsert, n+1
	}
	if s.InsertAttribute != nil {
		kind, n = EventInsertAttribute, n+1
	}
	if s.Delete != nil {
		kind, n = EventDelete, n+1
	}
	if n != 1 {
		return ""
	}
	return kind
}

// LoadScenario reads and parses a scenario YAML file. Document files are
// resolved relative to the scenario's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	s, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	base := filepath.Dir(path)
	for i := range s.Documents {
		d := &s.Documents[i]
		if d.File == "" {
			continue
		}
		p := d.File
		if !filepath.IsAbs(p) {
			p = filepath.Join(base, p)
		}
		text, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("%s: documents[%d]: %w", path, i, err)
		}
		d.XML = string(text)
	}
	return s, nil
}

// ParseScenario parses scenario YAML. Documents given by file are left
// unread.
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
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	seen := make(map[string]bool)
	for i, d := range s.Documents {
		if d.Name == "" {
			return fmt.Errorf("documents[%d]: name is required", i)
		}
		if seen[d.Name] {
			return fmt.Errorf("documents[%d]: duplicate name %q", i, d.Name)
		}
		seen[d.Name] = true
		if (d.XML == "") == (d.File == "") {
			return fmt.Errorf("documents[%d]: exactly one of xml or file is required", i)
		}
	}

	for i := range s.Steps {
		step := &s.Steps[i]
		if step.Kind() == "" {
			return fmt.Errorf("steps[%d]: exactly one of query, insert, insert_attribute or delete is required", i)
		}
		if len(step.Vars) > 0 && step.Query == "" {
			return fmt.Errorf("steps[%d]: vars require a query", i)
		}
		if e := step.Expect; e != nil && e.Error != "" && (len(e.Items) > 0 || e.Count != nil || e.Empty) {
			return fmt.Errorf("steps[%d].expect: error excludes items, count and empty", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertDocumentCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for document_count", index)
		}
	case AssertNodeCount:
		if a.Doc == "" {
			return fmt.Errorf("assertions[%d]: doc is required for node_count", index)
		}
	case AssertQueryResult:
		if a.Query == "" {
			return fmt.Errorf("assertions[%d]: query is required for query_result", index)
		}
	case AssertTraceCount:
		switch a.Event {
		case EventQuery, EventInsert, EventInsertAttribute, EventDelete:
		default:
			return fmt.Errorf("assertions[%d]: unknown event %q for trace_count", index, a.Event)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
