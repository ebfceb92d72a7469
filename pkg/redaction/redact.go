package redaction

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultKeepStart is how many leading characters a partial rule keeps.
	DefaultKeepStart = 4
	// DefaultKeepEnd is how many trailing characters a partial rule keeps.
	DefaultKeepEnd = 4

	// hashDigestLen is the hex length of the hash-action digest. Long enough
	// to correlate repeated secrets across logs, short enough to be
	// obviously not the secret itself.
	hashDigestLen = 12
)

// Options tunes the partial action's retained edges. The zero value uses
// the defaults.
type Options struct {
	KeepStart int
	KeepEnd   int
}

func (o *Options) keepBounds() (int, int) {
	if o == nil {
		return DefaultKeepStart, DefaultKeepEnd
	}
	start, end := o.KeepStart, o.KeepEnd
	if start <= 0 {
		start = DefaultKeepStart
	}
	if end <= 0 {
		end = DefaultKeepEnd
	}
	return start, end
}

func placeholder(rule *Rule) string {
	if rule.Replacement != "" {
		return rule.Replacement
	}
	return fmt.Sprintf("***REDACTED:%s***", rule.Category)
}

func hashPlaceholder(rule *Rule, token string) string {
	if rule.Replacement != "" {
		return rule.Replacement
	}
	sum := sha256.Sum256([]byte(token))
	digest := hex.EncodeToString(sum[:])[:hashDigestLen]
	return fmt.Sprintf("***REDACTED:%s:HASH:%s***", rule.Category, digest)
}

// RedactText applies every enabled rule of the policy to text, in document
// order. Each rule matches against the output of the previous one, so a
// later rule never sees content an earlier rule already neutralized.
func RedactText(text string, policy *Policy, opts *Options) string {
	keepStart, keepEnd := opts.keepBounds()

	out := text
	for i := range policy.Rules {
		rule := &policy.Rules[i]
		if !rule.Enabled {
			continue
		}

		matched := 0
		switch rule.Action {
		case ActionMask, ActionDrop:
			out = rule.Regex.ReplaceAllStringFunc(out, func(string) string {
				matched++
				return placeholder(rule)
			})

		case ActionPartial:
			out = rule.Regex.ReplaceAllStringFunc(out, func(match string) string {
				matched++
				middle := placeholder(rule)
				if len(match) <= keepStart+keepEnd {
					return middle
				}
				return match[:keepStart] + middle + match[len(match)-keepEnd:]
			})

		case ActionHash:
			out = rule.Regex.ReplaceAllStringFunc(out, func(match string) string {
				matched++
				return hashPlaceholder(rule, match)
			})

		default:
			// Actions are validated at load time; reaching this branch is a
			// programming defect, not a runtime condition.
			panic(fmt.Sprintf("unhandled redaction action: %q", rule.Action))
		}

		if matched > 0 {
			metrics.ruleMatches.WithLabelValues(rule.Name, string(rule.Action)).Add(float64(matched))
		}
	}

	return out
}

// RedactJSON rebuilds an arbitrarily nested JSON value (maps, slices,
// scalars as produced by encoding/json) with every string leaf passed
// through RedactText. Non-string scalars pass through unchanged.
func RedactJSON(value any, policy *Policy, opts *Options) any {
	switch v := value.(type) {
	case string:
		return RedactText(v, policy, opts)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RedactJSON(item, policy, opts)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, child := range v {
			out[key] = RedactJSON(child, policy, opts)
		}
		return out
	default:
		return value
	}
}
