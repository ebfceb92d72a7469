package redaction

import (
	"path/filepath"
	"sync"
)

// PolicyCache loads a policy once and reuses it for as long as the resolved
// path stays the same. It replaces the cached policy only when asked to
// load a different path; the policy itself is immutable after load.
//
// The cache is an explicit object owned by the composition root, not a
// package-level singleton, so tests and embedders can hold independent
// caches.
type PolicyCache struct {
	mu     sync.Mutex
	path   string
	policy *Policy
}

// NewPolicyCache returns an empty cache.
func NewPolicyCache() *PolicyCache {
	return &PolicyCache{}
}

// Load returns the policy for path, loading and compiling it on first use
// or when path resolves differently from the cached entry.
func (c *PolicyCache) Load(path string) (*Policy, error) {
	resolved, err := filepath.Abs(path)
	if err != nil {
		return nil, &PolicyLoadError{Path: path, Reason: "unresolvable path", Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.policy != nil && c.path == resolved {
		return c.policy, nil
	}

	policy, err := LoadPolicy(resolved)
	if err != nil {
		return nil, err
	}

	c.path = resolved
	c.policy = policy
	return policy, nil
}
