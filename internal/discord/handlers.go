package discord

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mira/planbot/internal/goal"
	"github.com/mira/planbot/internal/llm"
	"github.com/mira/planbot/internal/planner"
)

const helpText = `Schedule commands:
/plan status - today's schedule at a glance
/plan list - the full day, one activity per line
/plan generate [force] - build today's schedule (admin; force replaces)
/plan done <n|name> - mark an activity completed
/plan clear - wipe today's schedule (admin)
/plan delete <n|name> - remove one activity (admin)
/plan help - this message`

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore own messages
	if m.Author.ID == s.State.User.ID {
		return
	}

	isDM := m.GuildID == ""
	isMentioned := false
	for _, u := range m.Mentions {
		if u.ID == s.State.User.ID {
			isMentioned = true
			break
		}
	}

	content := strings.TrimSpace(stripMention(m.Content, s.State.User.ID))
	isCommand := strings.HasPrefix(content, "/plan")

	if !isDM && !isMentioned && !isCommand {
		return
	}
	if content == "" {
		return
	}

	s.ChannelTyping(m.ChannelID)

	var reply string
	if isCommand {
		reply = b.handleCommand(m.Author.ID, strings.Fields(content)[1:])
	} else {
		reply = b.mentionReply()
	}
	if reply == "" {
		return
	}

	// Discord has a 2000 char limit; split if needed
	for _, chunk := range splitMessage(reply, 2000) {
		if _, err := s.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			log.Printf("discord: sending reply: %v", err)
		}
	}
}

// handleCommand dispatches one /plan invocation and returns the reply text.
func (b *Bot) handleCommand(userID string, args []string) string {
	sub := "status"
	if len(args) > 0 {
		sub = strings.ToLower(args[0])
	}
	day := b.today()

	switch sub {
	case "status":
		out, err := b.queries.StatusText(day, b.nowMinute())
		if err != nil {
			log.Printf("discord: status: %v", err)
			return "Couldn't read the schedule. Try again?"
		}
		return out

	case "list":
		out, err := b.queries.ListText(day)
		if err != nil {
			log.Printf("discord: list: %v", err)
			return "Couldn't read the schedule. Try again?"
		}
		return out

	case "generate":
		if !b.admins[userID] {
			return "Only admins can generate schedules."
		}
		force := len(args) > 1 && strings.EqualFold(args[1], "force")
		return b.generate(day, force)

	case "done":
		if len(args) < 2 {
			return "Which one? Use /plan done <number or name>."
		}
		g, err := b.queries.MarkStatus(day, strings.Join(args[1:], " "), goal.StatusCompleted)
		if err != nil {
			return "Couldn't mark that: " + err.Error()
		}
		return fmt.Sprintf("Done: %s %s", g.Window.String(), g.Name)

	case "clear":
		if !b.admins[userID] {
			return "Only admins can clear the schedule."
		}
		n, err := b.queries.ClearDay(day)
		if err != nil {
			log.Printf("discord: clear: %v", err)
			return "Couldn't clear the schedule. Try again?"
		}
		return fmt.Sprintf("Cleared %d activities for %s.", n, day)

	case "delete":
		if !b.admins[userID] {
			return "Only admins can delete activities."
		}
		if len(args) < 2 {
			return "Which one? Use /plan delete <number or name>."
		}
		g, err := b.queries.DeleteByRef(day, strings.Join(args[1:], " "))
		if err != nil {
			return "Couldn't delete that: " + err.Error()
		}
		return fmt.Sprintf("Deleted %s %s.", g.Window.String(), g.Name)

	case "help":
		return helpText

	default:
		return "Unknown subcommand. " + helpText
	}
}

func (b *Bot) generate(day string, force bool) string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := b.gen.Generate(ctx, day, force)
	switch {
	case errors.Is(err, planner.ErrGenerationInProgress):
		return "Already working on today's schedule, hang on."
	case llm.IsQuota(err):
		return "The model provider is out of quota, try again later."
	case err != nil:
		log.Printf("discord: generate: %v", err)
		return "Schedule generation failed. Try again?"
	}
	if res.Skipped {
		return fmt.Sprintf("%s already has a schedule. Use /plan generate force to replace it.", day)
	}
	if res.Warning != "" {
		return fmt.Sprintf("Couldn't get a schedule for %s past the quality checks (%s). Nothing was saved, try again.", day, res.Warning)
	}
	return fmt.Sprintf("Planned %d activities for %s.", len(res.Goals), day)
}

// mentionReply is the conversational injection hook: a mention gets answered
// with whatever the schedule says is happening right now.
func (b *Bot) mentionReply() string {
	if !b.cfg.InjectSchedule {
		return ""
	}
	g, ok, err := b.queries.ActiveGoal(b.today(), b.nowMinute())
	if err != nil {
		log.Printf("discord: active goal lookup: %v", err)
		return ""
	}
	if !ok {
		return fmt.Sprintf("Nothing on my schedule right now. Ask me with /plan list to see %s's plan.", b.today())
	}
	return fmt.Sprintf("Right now I'm on %q until %s: %s", g.Name, goal.FormatClock(g.Window.End), g.Description)
}

func (b *Bot) today() string {
	return b.now().In(b.loc).Format("2006-01-02")
}

func (b *Bot) nowMinute() int {
	t := b.now().In(b.loc)
	return t.Hour()*60 + t.Minute()
}

func stripMention(s, userID string) string {
	s = strings.ReplaceAll(s, "<@"+userID+">", "")
	s = strings.ReplaceAll(s, "<@!"+userID+">", "")
	return s
}

func splitMessage(s string, maxLen int) []string {
	if len(s) <= maxLen {
		return []string{s}
	}
	var chunks []string
	for len(s) > 0 {
		end := maxLen
		if end > len(s) {
			end = len(s)
		}
		// Try to split at a newline
		if idx := strings.LastIndex(s[:end], "\n"); idx > 0 {
			end = idx + 1
		}
		chunks = append(chunks, s[:end])
		s = s[end:]
	}
	return chunks
}
