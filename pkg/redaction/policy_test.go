package redaction

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const defaultPolicyPath = "../../redaction-policy.default.json"

func writePolicyFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write policy file: %v", err)
	}
	return path
}

func TestLoadPolicy_Default(t *testing.T) {
	policy, err := LoadPolicy(defaultPolicyPath)
	if err != nil {
		t.Fatalf("failed to load default policy: %v", err)
	}

	if policy.Version != "2025-08-01" {
		t.Errorf("expected version 2025-08-01, got %q", policy.Version)
	}

	wantOrder := []string{
		"openai_api_key_like",
		"github_token_like",
		"bearer_token",
		"private_key_block",
		"email",
		"phone_like",
	}
	if len(policy.Rules) != len(wantOrder) {
		t.Fatalf("expected %d rules, got %d", len(wantOrder), len(policy.Rules))
	}
	for i, name := range wantOrder {
		if policy.Rules[i].Name != name {
			t.Errorf("rule %d: expected %q, got %q", i, name, policy.Rules[i].Name)
		}
		if !policy.Rules[i].Enabled {
			t.Errorf("rule %q should default to enabled", name)
		}
	}
}

func TestLoadPolicy_YAML(t *testing.T) {
	path := writePolicyFile(t, "policy.yaml", `
version: "2025-01-01"
rules:
  - name: email
    category: pii
    action: mask
    pattern: "[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\\.[A-Za-z]{2,}"
`)

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("failed to load YAML policy: %v", err)
	}
	if policy.Version != "2025-01-01" {
		t.Errorf("expected version 2025-01-01, got %q", policy.Version)
	}
	if len(policy.Rules) != 1 || policy.Rules[0].Name != "email" {
		t.Fatalf("unexpected rules: %+v", policy.Rules)
	}
}

func TestLoadPolicy_MissingFile(t *testing.T) {
	_, err := LoadPolicy(filepath.Join(t.TempDir(), "nope.json"))

	var loadErr *PolicyLoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *PolicyLoadError, got %T: %v", err, err)
	}
	if loadErr.Reason != "unreadable" {
		t.Errorf("expected reason 'unreadable', got %q", loadErr.Reason)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoadPolicy_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		reason  string
	}{
		{
			name:    "not json",
			content: `{not valid`,
			reason:  "not a valid policy document",
		},
		{
			name:    "missing version",
			content: `{"rules": [{"name": "a", "category": "pii", "action": "mask", "pattern": "x"}]}`,
			reason:  "missing required field: 'version'",
		},
		{
			name:    "empty rules",
			content: `{"version": "1", "rules": []}`,
			reason:  "missing required field: non-empty 'rules' array",
		},
		{
			name:    "rule without name",
			content: `{"version": "1", "rules": [{"category": "pii", "action": "mask", "pattern": "x"}]}`,
			reason:  "rule requires non-empty string name",
		},
		{
			name: "duplicate rule name",
			content: `{"version": "1", "rules": [
				{"name": "a", "category": "pii", "action": "mask", "pattern": "x"},
				{"name": "a", "category": "pii", "action": "mask", "pattern": "y"}]}`,
			reason: `duplicate rule name "a"`,
		},
		{
			name:    "rule without category",
			content: `{"version": "1", "rules": [{"name": "a", "action": "mask", "pattern": "x"}]}`,
			reason:  `rule "a" requires non-empty string category`,
		},
		{
			name:    "invalid action",
			content: `{"version": "1", "rules": [{"name": "a", "category": "pii", "action": "shred", "pattern": "x"}]}`,
			reason:  `rule "a" has invalid action: "shred"`,
		},
		{
			name:    "empty pattern",
			content: `{"version": "1", "rules": [{"name": "a", "category": "pii", "action": "mask", "pattern": ""}]}`,
			reason:  `rule "a" requires non-empty string pattern`,
		},
		{
			name:    "invalid regex",
			content: `{"version": "1", "rules": [{"name": "a", "category": "pii", "action": "mask", "pattern": "("}]}`,
			reason:  `rule "a" has invalid regex pattern`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writePolicyFile(t, "policy.json", tt.content)

			_, err := LoadPolicy(path)

			var loadErr *PolicyLoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *PolicyLoadError, got %T: %v", err, err)
			}
			if loadErr.Reason != tt.reason {
				t.Errorf("expected reason %q, got %q", tt.reason, loadErr.Reason)
			}
			if loadErr.Path != path {
				t.Errorf("expected path %q, got %q", path, loadErr.Path)
			}
		})
	}
}

func TestLoadPolicy_DisabledRule(t *testing.T) {
	path := writePolicyFile(t, "policy.json",
		`{"version": "1", "rules": [{"name": "a", "category": "pii", "action": "mask", "pattern": "x", "enabled": false}]}`)

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("failed to load policy: %v", err)
	}
	if policy.Rules[0].Enabled {
		t.Error("expected rule to be disabled")
	}
}

func TestPolicyCache_ReusesSamePath(t *testing.T) {
	cache := NewPolicyCache()

	first, err := cache.Load(defaultPolicyPath)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	second, err := cache.Load(defaultPolicyPath)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	if first != second {
		t.Error("expected cache to return the same *Policy for the same path")
	}
}

func TestPolicyCache_ReloadsOnNewPath(t *testing.T) {
	cache := NewPolicyCache()

	first, err := cache.Load(defaultPolicyPath)
	if err != nil {
		t.Fatalf("first load failed: %v", err)
	}

	other := writePolicyFile(t, "other.json",
		`{"version": "2", "rules": [{"name": "a", "category": "pii", "action": "mask", "pattern": "x"}]}`)

	second, err := cache.Load(other)
	if err != nil {
		t.Fatalf("second load failed: %v", err)
	}

	if first == second {
		t.Error("expected a different *Policy after switching paths")
	}
	if second.Version != "2" {
		t.Errorf("expected version 2, got %q", second.Version)
	}
}
