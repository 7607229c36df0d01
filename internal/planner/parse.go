package planner

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/mira/planbot/internal/goal"
)

// Draft is one proposed activity from the model, before validation.
type Draft struct {
	Name        string
	Description string
	Type        goal.ActivityType
	Priority    goal.Priority
	Window      goal.Window
}

func (d Draft) DedupKey() string {
	return d.Name + "@" + d.Window.String()
}

// Models sometimes drift back to the longer type names; map them instead of
// failing the round.
var typeAliases = map[string]goal.ActivityType{
	"daily_routine":      goal.TypeRoutine,
	"social_maintenance": goal.TypeSocial,
	"learn_topic":        goal.TypeLearning,
}

// ParseSchedule turns a raw model reply into drafts. maxActivities bounds how
// large a payload is accepted: anything past double the configured maximum is
// rejected as runaway output.
func ParseSchedule(raw string, maxActivities int) ([]Draft, error) {
	cleaned := stripFences(raw)
	cleaned = escapeControlChars(cleaned)

	if !gjson.Valid(cleaned) {
		return nil, &MalformedResponseError{Reason: "reply is not valid JSON", Raw: raw}
	}
	root := gjson.Parse(cleaned)

	items := fieldOf(root, "schedule_items")
	if !items.Exists() || !items.IsArray() {
		return nil, &MalformedResponseError{Reason: "missing schedule_items array", Raw: raw}
	}
	arr := items.Array()
	if len(arr) == 0 {
		return nil, &MalformedResponseError{Reason: "schedule_items is empty", Raw: raw}
	}
	if len(arr) > 2*maxActivities {
		return nil, &MalformedResponseError{
			Reason: fmt.Sprintf("%d items is far beyond the %d maximum", len(arr), maxActivities),
			Raw:    raw,
		}
	}

	drafts := make([]Draft, 0, len(arr))
	for i, item := range arr {
		d, err := parseItem(item, i)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func parseItem(item gjson.Result, idx int) (Draft, error) {
	bad := func(reason string) (Draft, error) {
		return Draft{}, &MalformedResponseError{Reason: fmt.Sprintf("item %d: %s", idx, reason), Raw: item.Raw}
	}

	name := strings.TrimSpace(fieldOf(item, "name").String())
	if name == "" {
		return bad("missing name")
	}
	desc := strings.TrimSpace(fieldOf(item, "description").String())
	if desc == "" {
		return bad("missing description")
	}

	rawType := strings.ToLower(strings.TrimSpace(fieldOf(item, "activity_type").String()))
	typ := goal.ActivityType(rawType)
	if alias, ok := typeAliases[rawType]; ok {
		typ = alias
	}
	if rawType == "" {
		return bad("missing activity_type")
	}

	prio := goal.Priority(strings.ToLower(strings.TrimSpace(fieldOf(item, "priority").String())))
	if prio == "" {
		prio = goal.PriorityMedium
	}

	startStr := fieldOf(item, "start_time").String()
	start, err := goal.ParseClock(startStr)
	if err != nil {
		return bad(fmt.Sprintf("unparseable start_time %q", startStr))
	}
	dur := fieldOf(item, "duration_minutes")
	if !dur.Exists() || dur.Int() <= 0 {
		return bad(fmt.Sprintf("invalid duration_minutes %q", dur.Raw))
	}

	return Draft{
		Name:        name,
		Description: desc,
		Type:        typ,
		Priority:    prio,
		Window:      goal.Window{Start: start, End: start + int(dur.Int())},
	}, nil
}

// fieldOf looks a key up case-insensitively; models occasionally capitalize
// field names.
func fieldOf(r gjson.Result, key string) gjson.Result {
	if v := r.Get(key); v.Exists() {
		return v
	}
	var out gjson.Result
	r.ForEach(func(k, v gjson.Result) bool {
		if strings.EqualFold(k.String(), key) {
			out = v
			return false
		}
		return true
	})
	return out
}

// stripFences removes a surrounding markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// drop the language tag line
		if tag := strings.TrimSpace(s[:nl]); tag == "" || !strings.ContainsAny(tag, "{}[]") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// escapeControlChars escapes raw newlines and tabs that appear inside JSON
// string values, a frequent model formatting slip.
func escapeControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	inString := false
	escaped := false
	for _, r := range s {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case inString && r == '\\':
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r == '\n':
			b.WriteString(`\n`)
		case inString && r == '\t':
			b.WriteString(`\t`)
		case inString && r == '\r':
			b.WriteString(`\r`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
