package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mira/planbot/config"
	"github.com/mira/planbot/internal/cache"
	"github.com/mira/planbot/internal/discord"
	"github.com/mira/planbot/internal/llm"
	"github.com/mira/planbot/internal/planner"
	"github.com/mira/planbot/internal/scheduler"
	"github.com/mira/planbot/internal/store"
)

func main() {
	day := flag.String("day", "", "day to plan (YYYY-MM-DD, default today)")
	force := flag.Bool("force", false, "replace an existing schedule")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	st, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	apiKey := cfg.AnthropicKey
	if cfg.LLMProvider == "openai" {
		apiKey = cfg.OpenAIKey
	}
	client, err := llm.NewClient(llm.ProviderConfig{
		Provider:  cfg.LLMProvider,
		APIKey:    apiKey,
		AuthToken: cfg.AnthropicToken,
		Model:     cfg.LLMModel,
		BaseURL:   cfg.OllamaBaseURL,
	})
	if err != nil {
		log.Fatalf("failed to create LLM client: %v", err)
	}

	c := cache.New(cfg.CacheMaxSize, time.Duration(cfg.CacheTTLSec)*time.Second)
	gen := planner.NewGenerator(cfg, st, c, client)
	queries := planner.NewQueries(st, c)

	// If Discord token is set, run as bot
	if cfg.DiscordToken != "" {
		runBot(cfg, gen, queries)
		return
	}

	// Otherwise, one-shot CLI mode
	runOnce(cfg, gen, queries, *day, *force)
}

// runOnce generates (or shows) one day's schedule and exits.
func runOnce(cfg *config.Config, gen *planner.Generator, queries *planner.Queries, day string, force bool) {
	if day == "" {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("loading timezone: %v", err)
		}
		day = time.Now().In(loc).Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	res, err := gen.Generate(ctx, day, force)
	if err != nil {
		log.Fatalf("generation failed: %v", err)
	}
	if res.Warning != "" {
		fmt.Printf("nothing stored for %s: %s\n\nbest attempt was:\n", day, res.Warning)
		for _, g := range res.Goals {
			fmt.Printf("  %s %s (%s) %s\n", g.Window.String(), g.Name, g.Type, g.Description)
		}
		return
	}
	if res.Skipped {
		fmt.Printf("%s already has a schedule:\n\n", day)
	} else {
		fmt.Printf("planned %d activities for %s in %d round(s), score %.2f\n\n", len(res.Goals), day, res.Rounds, res.Score)
	}

	list, err := queries.ListText(day)
	if err != nil {
		log.Fatalf("listing schedule: %v", err)
	}
	fmt.Println(list)
}

func runBot(cfg *config.Config, gen *planner.Generator, queries *planner.Queries) {
	bot, err := discord.NewBot(cfg, gen, queries)
	if err != nil {
		log.Fatalf("failed to start Discord bot: %v", err)
	}
	defer bot.Close()

	sched, err := scheduler.New(cfg, gen, queries)
	if err != nil {
		log.Fatalf("failed to create scheduler: %v", err)
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	log.Println("planbot is running. Press Ctrl+C to exit.")
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down.")
}
