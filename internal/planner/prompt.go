package planner

import (
	"fmt"
	"strings"

	"github.com/mira/planbot/internal/goal"
)

// maxFeedbackItems caps how many prior-round problems are echoed back to the
// model on a retry.
const maxFeedbackItems = 5

const systemPromptTemplate = `You are %s, %s.
You are planning your own day. Produce a realistic daily schedule that fits your
personality and commitments. Output a single JSON object and nothing else: no
markdown, no commentary.`

// BuildSystemPrompt renders the persona header sent with every generation.
func BuildSystemPrompt(gc *GenContext) string {
	out := fmt.Sprintf(systemPromptTemplate, gc.BotName, gc.Persona)
	if gc.ReplyStyle != "" {
		out += "\nStyle: " + gc.ReplyStyle
	}
	if gc.Interests != "" {
		out += "\nInterests: " + gc.Interests
	}
	return out
}

// BuildPrompt renders the user prompt for one generation round. The same
// context and feedback always produce the same prompt.
func BuildPrompt(gc *GenContext, minActivities, maxActivities, minDesc, maxDesc int, feedback []string) string {
	var b strings.Builder

	dayKind := "a weekday"
	if gc.IsWeekend {
		dayKind = "a weekend day"
	}
	fmt.Fprintf(&b, "Plan your schedule for %s (%s, %s).\n", gc.Day, gc.Weekday, dayKind)
	fmt.Fprintf(&b, "Today you are feeling %s with %s energy.\n\n", gc.Mood, gc.Energy)

	b.WriteString("Rules:\n")
	fmt.Fprintf(&b, "- Produce between %d and %d activities covering the whole waking day.\n", minActivities, maxActivities)
	b.WriteString("- Activities must not overlap and must leave no long idle gaps between them.\n")
	fmt.Fprintf(&b, "- Each description must be %d to %d characters, concrete and in character.\n", minDesc, maxDesc)
	b.WriteString("- activity_type must be one of: routine, meal, study, entertainment, social, exercise, learning, rest, free_time, custom.\n")
	b.WriteString("- priority must be one of: high, medium, low.\n")
	b.WriteString("- Times are 24-hour HH:MM; duration_minutes is a positive integer; every activity ends the same day.\n")

	var anchors []string
	if gc.Wake >= 0 {
		anchors = append(anchors, "wake around "+goal.FormatClock(gc.Wake))
	}
	if gc.Breakfast >= 0 {
		anchors = append(anchors, "breakfast around "+goal.FormatClock(gc.Breakfast))
	}
	if gc.Lunch >= 0 {
		anchors = append(anchors, "lunch around "+goal.FormatClock(gc.Lunch))
	}
	if gc.Dinner >= 0 {
		anchors = append(anchors, "dinner around "+goal.FormatClock(gc.Dinner))
	}
	if gc.Sleep >= 0 {
		anchors = append(anchors, "wind down by "+goal.FormatClock(gc.Sleep))
	}
	if len(anchors) > 0 {
		b.WriteString("- Respect these fixed points: " + strings.Join(anchors, "; ") + ".\n")
	}

	if gc.CustomDirective != "" {
		b.WriteString("\nSpecial instruction for today: " + gc.CustomDirective + "\n")
	}

	if len(gc.Existing) > 0 {
		b.WriteString("\nAlready scheduled today (do not duplicate these):\n")
		for _, g := range gc.Existing {
			fmt.Fprintf(&b, "- %s %s\n", g.Window.String(), g.Name)
		}
	}

	if gc.YesterdaySummary != "" {
		b.WriteString("\nYesterday: " + gc.YesterdaySummary + "\n")
	}

	b.WriteString(`
Example of correct back-to-back timing (no gaps):
{"schedule_items": [
  {"name": "Wake up and stretch", "description": "Slow start with stretching and a big glass of water", "activity_type": "routine", "priority": "high", "start_time": "07:30", "duration_minutes": 30},
  {"name": "Breakfast", "description": "Oatmeal with fruit while reading the news", "activity_type": "meal", "priority": "high", "start_time": "08:00", "duration_minutes": 30}
]}
Note the second activity starts exactly when the first ends.
`)

	if len(feedback) > 0 {
		if len(feedback) > maxFeedbackItems {
			feedback = feedback[:maxFeedbackItems]
		}
		b.WriteString("\nYour previous attempt had problems. Fix all of these:\n")
		for _, f := range feedback {
			b.WriteString("- " + f + "\n")
		}
	}

	return b.String()
}
