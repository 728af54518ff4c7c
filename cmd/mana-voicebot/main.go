package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/user/mana-voicebot/internal/bot"
	"github.com/user/mana-voicebot/internal/config"
	"github.com/user/mana-voicebot/internal/metrics"
	"github.com/user/mana-voicebot/internal/reasoner"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mana-voicebot",
		Short:         "Persian voice assistant for bookings, sales and small talk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newTextCmd(), newVoiceCmd(), newPromptCmd())
	return root
}

func newTextCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "text",
		Short: "Chat with the bot on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return run(cfg, bot.ModeText, func(ctx context.Context, b *bot.Bot) error {
				return b.RunText(ctx, os.Stdin, os.Stdout)
			})
		},
	}
}

type voiceFlags struct {
	realtime        bool
	recordSeconds   float64
	chunkSeconds    float64
	silenceTimeout  float64
	energyThreshold float64
}

func newVoiceCmd() *cobra.Command {
	var f voiceFlags
	cmd := &cobra.Command{
		Use:   "voice",
		Short: "Talk to the bot through the microphone",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			f.apply(cmd, cfg)
			return run(cfg, bot.ModeVoice, func(ctx context.Context, b *bot.Bot) error {
				return b.RunVoice(ctx, os.Stdin, os.Stdout, f.realtime)
			})
		},
	}

	cmd.Flags().BoolVar(&f.realtime, "realtime", false, "listen continuously instead of push-to-talk")
	cmd.Flags().Float64Var(&f.recordSeconds, "record-seconds", 0, "maximum push-to-talk capture length in seconds")
	cmd.Flags().Float64Var(&f.chunkSeconds, "chunk-seconds", 0, "frame length in seconds for the selected mode")
	cmd.Flags().Float64Var(&f.silenceTimeout, "silence-timeout", 0, "silence in seconds that ends an utterance")
	cmd.Flags().Float64Var(&f.energyThreshold, "energy-threshold", 0, "mean absolute amplitude treated as speech")
	return cmd
}

// apply overrides the mode's capture parameters with flags given explicitly.
func (f voiceFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("record-seconds") {
		cfg.RecordSeconds = seconds(f.recordSeconds)
	}
	if f.realtime {
		if changed("chunk-seconds") {
			cfg.RealtimeChunk = seconds(f.chunkSeconds)
		}
		if changed("silence-timeout") {
			cfg.RealtimeSilenceTimeout = seconds(f.silenceTimeout)
		}
		if changed("energy-threshold") {
			cfg.RealtimeEnergyThreshold = f.energyThreshold
		}
		return
	}
	if changed("chunk-seconds") {
		cfg.PushChunk = seconds(f.chunkSeconds)
	}
	if changed("silence-timeout") {
		cfg.PushSilenceTimeout = seconds(f.silenceTimeout)
	}
	if changed("energy-threshold") {
		cfg.PushEnergyThreshold = f.energyThreshold
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Replace the system prompt with text read from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only the data directory matters here; backend validation is skipped.
			cfg, _ := config.Load()
			setupLogging(cfg.LogLevel)

			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read prompt: %w", err)
			}
			path, err := reasoner.SaveSystemPrompt(cfg.PromptsDir(), string(data))
			if err != nil {
				return err
			}
			log.Info().Str("path", path).Msg("System prompt updated")
			return nil
		},
	}
}

func loadConfig() (*config.Config, error) {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load configuration")
		return nil, err
	}

	// Setup logging
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func run(cfg *config.Config, mode bot.Mode, loop func(context.Context, *bot.Bot) error) error {
	log.Info().Msg("Starting Mana voice bot")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	// Create bot
	voiceBot, err := bot.NewBot(cfg, mode)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create bot")
		return err
	}
	defer voiceBot.Close()

	// Start bot
	if err := voiceBot.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start bot")
		return err
	}

	if err := loop(ctx, voiceBot); err != nil {
		log.Error().Err(err).Msg("Bot loop failed")
		return err
	}

	log.Info().Msg("Shutting down bot...")
	return nil
}

func setupLogging(level string) {
	// Setup zerolog
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})

	// Set log level
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Debug().Str("level", level).Msg("Logging configured")
}
