package redaction

import (
	"fmt"
	"sort"
)

// UnredactedDataError reports a sensitive-data match found by the guard.
// It carries the offending rule's name and the JSON path of the string
// leaf, but never the matched text itself.
type UnredactedDataError struct {
	RuleName string
	JSONPath string
}

func (e *UnredactedDataError) Error() string {
	return fmt.Sprintf("unredacted data detected (rule=%s, path=%s)", e.RuleName, e.JSONPath)
}

// AssertNoSensitiveData walks value depth-first and tests every string leaf
// against every enabled rule in document order. It returns nil when nothing
// matches, or an *UnredactedDataError for the first match found. The walk
// is deterministic: array elements in index order, object keys in sorted
// order, path encoded as $.key[index].key.
//
// This is a boolean gate, not a scan report: callers use it as a
// pre-condition before persisting or logging any value derived from human
// or model input.
func AssertNoSensitiveData(value any, policy *Policy) error {
	err := walkStrings(value, "$", func(path, text string) error {
		for i := range policy.Rules {
			rule := &policy.Rules[i]
			if !rule.Enabled {
				continue
			}
			if rule.Regex.MatchString(text) {
				metrics.guardRejections.WithLabelValues(rule.Name).Inc()
				return &UnredactedDataError{RuleName: rule.Name, JSONPath: path}
			}
		}
		return nil
	})
	return err
}

// walkStrings visits every string leaf of a nested JSON value in
// depth-first, left-to-right order, invoking visit with the leaf's JSON
// path. A non-nil return from visit stops the walk immediately.
func walkStrings(value any, path string, visit func(path, text string) error) error {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return visit(path, v)
	case []any:
		for i, item := range v {
			if err := walkStrings(item, fmt.Sprintf("%s[%d]", path, i), visit); err != nil {
				return err
			}
		}
		return nil
	case map[string]any:
		keys := make([]string, 0, len(v))
		for key := range v {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			if err := walkStrings(v[key], path+"."+key, visit); err != nil {
				return err
			}
		}
		return nil
	default:
		return nil
	}
}
