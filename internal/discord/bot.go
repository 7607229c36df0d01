package discord

import (
	"fmt"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/planner"
)

type Bot struct {
	session *discordgo.Session
	cfg     *config.Config
	gen     *planner.Generator
	queries *planner.Queries
	loc     *time.Location
	admins  map[string]bool

	now func() time.Time // swapped in tests
}

func NewBot(cfg *config.Config, gen *planner.Generator, queries *planner.Queries) (*Bot, error) {
	s, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return nil, fmt.Errorf("creating Discord session: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	admins := make(map[string]bool, len(cfg.AdminUsers))
	for _, id := range cfg.AdminUsers {
		admins[id] = true
	}

	bot := &Bot{
		session: s,
		cfg:     cfg,
		gen:     gen,
		queries: queries,
		loc:     loc,
		admins:  admins,
		now:     time.Now,
	}
	s.AddHandler(bot.onMessage)
	s.Identify.Intents = discordgo.IntentsDirectMessages | discordgo.IntentsGuildMessages

	if err := s.Open(); err != nil {
		return nil, fmt.Errorf("opening Discord connection: %w", err)
	}

	log.Printf("Discord bot connected as %s", s.State.User.Username)
	return bot, nil
}

func (b *Bot) Close() {
	b.session.Close()
}
