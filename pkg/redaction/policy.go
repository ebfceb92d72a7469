// Package redaction implements the policy-driven PII/secret detector and
// masker that gates everything persisted or logged by the engine.
//
// A policy is an ordered, versioned set of rules loaded from a JSON (or
// YAML) document. Rules are applied sequentially: later rules match against
// text already transformed by earlier rules. Note that the "drop" action is
// deliberately identical to "mask" (placeholder substitution, not removal);
// policies in the wild depend on that behavior.
package redaction

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action is one of the four redaction actions a rule can take.
type Action string

const (
	ActionMask    Action = "mask"
	ActionPartial Action = "partial"
	ActionHash    Action = "hash"
	ActionDrop    Action = "drop"
)

// validAction reports whether a is one of the enumerated action kinds.
func validAction(a Action) bool {
	switch a {
	case ActionMask, ActionPartial, ActionHash, ActionDrop:
		return true
	}
	return false
}

// Rule is a single compiled redaction rule.
type Rule struct {
	Name        string
	Category    string
	Action      Action
	Replacement string // empty means the default category placeholder
	Enabled     bool

	// Regex is the compiled matcher. Go's regexp is stateless, so unlike
	// engines with a global match cursor the same compiled expression
	// safely serves both the guard's boolean test and the replace pass.
	Regex *regexp.Regexp
}

// Policy is a compiled, immutable redaction policy.
type Policy struct {
	Version     string
	Description string
	Rules       []Rule
}

// PolicyLoadError reports a malformed or invalid policy document. It is
// fatal at startup: a process must not serve traffic without a valid policy.
type PolicyLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *PolicyLoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("redaction policy %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("redaction policy %s: %s", e.Path, e.Reason)
}

func (e *PolicyLoadError) Unwrap() error { return e.Err }

// rawRule mirrors the on-disk rule shape. Pointer fields distinguish
// "absent" from zero values during validation.
type rawRule struct {
	Name        string  `json:"name" yaml:"name"`
	Category    string  `json:"category" yaml:"category"`
	Action      string  `json:"action" yaml:"action"`
	Pattern     string  `json:"pattern" yaml:"pattern"`
	Replacement *string `json:"replacement" yaml:"replacement"`
	Enabled     *bool   `json:"enabled" yaml:"enabled"`
	Notes       *string `json:"notes" yaml:"notes"`
}

type rawPolicy struct {
	Version     string    `json:"version" yaml:"version"`
	Description *string   `json:"description" yaml:"description"`
	Rules       []rawRule `json:"rules" yaml:"rules"`
}

// LoadPolicy reads, validates, and compiles a policy document. The format
// is chosen by file extension: .yaml/.yml parse as YAML, everything else
// as JSON. Any validation failure returns a *PolicyLoadError.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PolicyLoadError{Path: path, Reason: "unreadable", Err: err}
	}

	var raw rawPolicy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, &PolicyLoadError{Path: path, Reason: "not a valid policy document", Err: err}
		}
	default:
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, &PolicyLoadError{Path: path, Reason: "not a valid policy document", Err: err}
		}
	}

	return compilePolicy(path, &raw)
}

func compilePolicy(path string, raw *rawPolicy) (*Policy, error) {
	fail := func(reason string) (*Policy, error) {
		return nil, &PolicyLoadError{Path: path, Reason: reason}
	}

	if raw.Version == "" {
		return fail("missing required field: 'version'")
	}
	if len(raw.Rules) == 0 {
		return fail("missing required field: non-empty 'rules' array")
	}

	policy := &Policy{Version: raw.Version}
	if raw.Description != nil {
		policy.Description = *raw.Description
	}

	seen := make(map[string]struct{}, len(raw.Rules))
	for _, r := range raw.Rules {
		if r.Name == "" {
			return fail("rule requires non-empty string name")
		}
		if _, dup := seen[r.Name]; dup {
			return fail(fmt.Sprintf("duplicate rule name %q", r.Name))
		}
		seen[r.Name] = struct{}{}

		if r.Category == "" {
			return fail(fmt.Sprintf("rule %q requires non-empty string category", r.Name))
		}
		if !validAction(Action(r.Action)) {
			return fail(fmt.Sprintf("rule %q has invalid action: %q", r.Name, r.Action))
		}
		if r.Pattern == "" {
			return fail(fmt.Sprintf("rule %q requires non-empty string pattern", r.Name))
		}

		// A leading (?i) marker requests case-insensitive matching; Go's
		// regexp honors it natively, so the pattern compiles as written.
		regex, err := regexp.Compile(r.Pattern)
		if err != nil {
			return nil, &PolicyLoadError{
				Path:   path,
				Reason: fmt.Sprintf("rule %q has invalid regex pattern", r.Name),
				Err:    err,
			}
		}

		rule := Rule{
			Name:     r.Name,
			Category: r.Category,
			Action:   Action(r.Action),
			Enabled:  true,
			Regex:    regex,
		}
		if r.Replacement != nil {
			rule.Replacement = *r.Replacement
		}
		if r.Enabled != nil {
			rule.Enabled = *r.Enabled
		}
		policy.Rules = append(policy.Rules, rule)
	}

	return policy, nil
}
