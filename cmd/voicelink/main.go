// Package main is the voicelink CLI: a push-to-talk voice client for live
// speech-model conversations.
//
// Usage:
//
//	go run ./cmd/voicelink
//
// Environment variables:
//
//	GEMINI_API_KEY          - Gemini Live API key (direct mode)
//	VOICELINK_RELAY_URL     - relay websocket URL (relay mode, overrides direct)
//	VOICELINK_RELAY_TOKEN   - optional bearer token for the relay
//	VOICELINK_MODEL         - model name
//	VOICELINK_VOICE         - prebuilt voice name
//	VOICELINK_SYSTEM_PROMPT - persona prompt
//
// Controls:
//
//	Enter - toggle the session (start talking / hang up)
//	r     - reset the conversation history
//	q     - quit
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/voicelink-go/voicelink-lite/pkg/audio/capture"
	"github.com/voicelink-go/voicelink-lite/pkg/audio/speaker"
	"github.com/voicelink-go/voicelink-lite/pkg/config"
	"github.com/voicelink-go/voicelink-lite/pkg/remote/gemini"
	"github.com/voicelink-go/voicelink-lite/pkg/remote/relay"
	"github.com/voicelink-go/voicelink-lite/pkg/session"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "voicelink: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("voicelink exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	out, err := speaker.NewSpeaker()
	if err != nil {
		return err
	}

	var connector session.Connector
	if cfg.UseRelay() {
		opts := []relay.ConnectorOption{relay.WithConnectTimeout(cfg.ConnectTimeout)}
		if cfg.RelayToken != "" {
			opts = append(opts, relay.WithHeader("Authorization", "Bearer "+cfg.RelayToken))
		}
		connector = relay.NewConnector(cfg.RelayURL, opts...)
		logger.Info("using relay transport", "url", cfg.RelayURL)
	} else {
		connector = gemini.NewConnector(cfg.APIKey)
		logger.Info("using gemini live transport", "model", cfg.Model)
	}

	render := newRenderer(os.Stdout)
	controller := session.NewController(logger, connector, capture.NewMicrophone(), out, session.Config{
		Model:        cfg.Model,
		Voice:        cfg.Voice,
		SystemPrompt: cfg.SystemPrompt,
		HistoryLimit: cfg.HistoryLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	fmt.Println("voicelink - press Enter to start talking, Enter again to hang up.")
	fmt.Println("Commands: r = reset conversation, q = quit")

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		return nil
	})

	// Stdin is read on its own goroutine so a signal can end the run while
	// Scan is blocked.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	group.Go(func() error {
		defer cancel()
		for {
			var line string
			var ok bool
			select {
			case <-ctx.Done():
				return nil
			case line, ok = <-lines:
				if !ok {
					return nil
				}
			}

			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				if err := controller.Toggle(ctx); err != nil {
					fmt.Printf("[error] %v\n", err)
					continue
				}
				if controller.Snapshot().Active {
					fmt.Println("[session] listening...")
				} else {
					fmt.Println("[session] ended")
					render.renderHistory(controller.Snapshot())
				}
			case "r":
				controller.ResetConversation()
				fmt.Println("[session] conversation reset")
			case "q":
				return nil
			default:
				fmt.Println("Commands: Enter = toggle session, r = reset, q = quit")
			}
		}
	})

	group.Go(func() error {
		<-ctx.Done()
		controller.Stop()
		return nil
	})

	// Live subtitle updates while a session runs.
	group.Go(func() error {
		return render.follow(ctx, controller)
	})

	return group.Wait()
}
