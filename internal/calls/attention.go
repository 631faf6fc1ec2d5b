package calls

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"vetvoice-platform/pkg/logger"
)

// DeriveAttention builds an AttentionClassification from the provider's
// structured analysis payload. The provider's model emits fields with
// inconsistent encodings between assistant versions, so every accessor here
// is defensive.
func DeriveAttention(structured map[string]any) AttentionClassification {
	if structured == nil {
		return AttentionClassification{}
	}

	cls := AttentionClassification{
		NeedsAttention: boolField(structured, "needs_attention"),
		Severity:       severityField(structured, "attention_severity"),
		Summary:        stringField(structured, "attention_summary"),
	}
	if raw, ok := structured["attention_types"]; ok {
		cls.Types = parseAttentionTypes(raw)
	}
	return cls
}

// parseAttentionTypes normalizes the attention_types field, which arrives as
// a native array, a JSON-encoded array string, or a comma-separated string.
// Anything else degrades to a single-element slice of the raw string form.
func parseAttentionTypes(raw any) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil
		}
		if strings.HasPrefix(s, "[") {
			var arr []string
			if err := json.Unmarshal([]byte(s), &arr); err == nil {
				return arr
			}
		}
		if strings.Contains(s, ",") {
			parts := strings.Split(s, ",")
			out := make([]string, 0, len(parts))
			for _, p := range parts {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
			return out
		}
		return []string{s}
	default:
		if v == nil {
			return nil
		}
		// Unknown scalar (number, bool): keep its string form rather
		// than dropping the classification.
		return []string{fmt.Sprintf("%v", v)}
	}
}

// CaseStore escalates the parent case when a call is classified critical.
type CaseStore interface {
	MarkUrgent(ctx context.Context, caseID, summary string) error
}

// ApplyAttention merges a classification into a pending update set.
//
// When the call does not need attention the update set is left untouched:
// absence of attention fields means "not applicable", not "false". When it
// does, and severity is critical for a call with an associated case, the
// parent case gets an urgency flag. That escalation is a non-critical side
// effect with its own error boundary: a failure is logged and never fails
// the call update.
func ApplyAttention(ctx context.Context, rec CallRecord, cls AttentionClassification, updates map[string]any, cases CaseStore) {
	if !cls.NeedsAttention {
		return
	}

	updates["attention_types"] = cls.Types
	updates["attention_severity"] = string(cls.Severity)
	if cls.Summary != "" {
		updates["attention_summary"] = cls.Summary
	}

	if cls.Severity == SeverityCritical && rec.CaseID != "" && cases != nil {
		if err := cases.MarkUrgent(ctx, rec.CaseID, cls.Summary); err != nil {
			logger.From(ctx).Error("case urgency escalation failed",
				"case_id", rec.CaseID, "call_id", rec.ID, "err", err)
		}
	}
}

func boolField(m map[string]any, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func severityField(m map[string]any, key string) Severity {
	switch Severity(stringField(m, key)) {
	case SeverityCritical:
		return SeverityCritical
	case SeverityUrgent:
		return SeverityUrgent
	default:
		return SeverityRoutine
	}
}
