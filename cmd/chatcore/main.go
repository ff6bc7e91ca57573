// Package main is a minimal composition root for the AI gateway client
// and conversation state subsystem: it constructs explicitly injected
// instances of the three components and drives a stdin chat loop over the
// streaming API. Nothing here is a singleton; process-wide lifetime is
// owned by this main, not by the packages.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/term"

	"chatcore/config"
	"chatcore/internal/cache"
	"chatcore/internal/conversation"
	"chatcore/internal/core"
	"chatcore/internal/gateway"
	"chatcore/internal/observability"
	"chatcore/internal/prompt"
)

func main() {
	logger := newLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Gateway.APIKey == "" {
		slog.Warn("CHATCORE_API_KEY is not set; the gateway will reject requests")
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.New(prometheus.NewRegistry())
		slog.Info("prometheus metrics enabled")
	}

	var completionCache cache.Cache
	if cfg.Cache.Enabled {
		completionCache = cache.NewLocal(cfg.Cache.MaxEntries, cfg.Cache.TTL)
		slog.Info("completion cache enabled",
			"max_entries", cfg.Cache.MaxEntries,
			"ttl", cfg.Cache.TTL,
		)
	}

	client := gateway.New(gateway.Config{
		APIURL:       cfg.Gateway.APIURL,
		APIKey:       cfg.Gateway.APIKey,
		DefaultModel: cfg.Gateway.DefaultModel,
		Cache:        completionCache,
		Logger:       logger,
		Metrics:      metrics,
	})
	prompts := prompt.NewManager(logger)
	conversations := conversation.New(conversation.Config{
		MaxConversations: cfg.Conversations.MaxConversations,
		MaxMessages:      cfg.Conversations.MaxMessages,
	}, logger, metrics)

	if packPath := os.Getenv("CHATCORE_TEMPLATE_PACK"); packPath != "" {
		n, err := prompts.LoadFile(packPath)
		if err != nil {
			slog.Error("failed to load template pack", "path", packPath, "error", err)
			os.Exit(1)
		}
		slog.Info("loaded template pack", "path", packPath, "templates", n)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runChatLoop(ctx, client, conversations, cfg.Gateway.DefaultModel); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("chat loop failed", "error", err)
		os.Exit(1)
	}
}

// runChatLoop reads prompts from stdin, streams the model's reply to
// stdout, and records both sides in the conversation store.
func runChatLoop(ctx context.Context, client *gateway.Client, store *conversation.Store, model string) error {
	conv := store.Create(model, "", "")
	slog.Info("conversation started", "id", conv.ID, "model", model)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/quit" {
			return nil
		}

		if _, ok := store.AddMessage(conv.ID, core.Message{Role: core.RoleUser, Content: input}); !ok {
			return fmt.Errorf("conversation %s disappeared", conv.ID)
		}
		messages, _ := store.GetMessages(conv.ID)

		reply, err := streamReply(ctx, client, model, messages)
		if err != nil {
			return err
		}
		store.AddMessage(conv.ID, core.Message{Role: core.RoleAssistant, Content: reply})
	}
}

// streamReply submits the conversation history and prints fragments as
// they arrive, returning the concatenated reply.
func streamReply(ctx context.Context, client *gateway.Client, model string, messages []core.Message) (string, error) {
	stream, err := client.ChatStream(ctx, &core.ChatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", err
	}
	defer func() {
		_ = stream.Close()
	}()

	var reply strings.Builder
	for {
		fragment, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		fmt.Print(fragment)
		reply.WriteString(fragment)
	}
	fmt.Println()

	if skipped := stream.SkippedFrames(); skipped > 0 {
		slog.Debug("stream finished with skipped frames", "skipped", skipped)
	}
	return reply.String(), nil
}

// newLogger picks a human-readable handler on a terminal and JSON otherwise.
func newLogger() *slog.Logger {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
