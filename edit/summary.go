package edit

import "strings"

// Intent is a semantic label for one control edit during a session
// ("color → red", "made text bold"). Intents are recorded as the user works
// and concatenated into the committed Record's Summary on apply.
type Intent struct {
	Property string `json:"property"`
	Value    string `json:"value"`
	Label    string `json:"label"`
}

// Summarize folds a chronological intent list into a human-readable summary.
// Later intents for the same property supersede earlier ones, so "color →
// red" followed by "color → blue" yields a single "color → blue" fragment,
// in first-touch order.
func Summarize(intents []Intent) string {
	if len(intents) == 0 {
		return ""
	}

	order := make([]string, 0, len(intents))
	last := make(map[string]Intent, len(intents))
	for _, it := range intents {
		key := it.Property
		if key == "" {
			key = it.Label
		}
		if _, seen := last[key]; !seen {
			order = append(order, key)
		}
		last[key] = it
	}

	parts := make([]string, 0, len(order))
	for _, key := range order {
		it := last[key]
		switch {
		case it.Label != "" && it.Value != "":
			parts = append(parts, it.Label+": "+it.Value)
		case it.Label != "":
			parts = append(parts, it.Label)
		case it.Value != "":
			parts = append(parts, it.Property+" → "+it.Value)
		default:
			parts = append(parts, it.Property)
		}
	}
	return strings.Join(parts, "; ")
}
