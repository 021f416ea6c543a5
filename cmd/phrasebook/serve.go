package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/smith3v/tg-phrasebook/pkg/bot/capture"
	"github.com/smith3v/tg-phrasebook/pkg/bot/handlers"
	"github.com/smith3v/tg-phrasebook/pkg/config"
	"github.com/smith3v/tg-phrasebook/pkg/db"
	"github.com/smith3v/tg-phrasebook/pkg/learning"
	"github.com/smith3v/tg-phrasebook/pkg/logger"
	"github.com/smith3v/tg-phrasebook/pkg/speech"
	"github.com/smith3v/tg-phrasebook/pkg/translation"
	"github.com/smith3v/tg-phrasebook/pkg/ui"
	"github.com/spf13/cobra"
)

var errMissingToken = errors.New("telegram token is not configured")

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	token := strings.TrimSpace(config.AppConfig.Telegram.Token)
	if token == "" {
		return errMissingToken
	}

	services := buildServices(ctx, config.AppConfig)
	defer func() {
		if err := services.Speaker.Close(); err != nil {
			logger.Error("failed to close speaker", "error", err)
		}
	}()
	handlers.Configure(services)
	defer handlers.Shutdown()

	b, err := bot.New(token,
		bot.WithDefaultHandler(handlers.DefaultHandler),
		bot.WithMiddlewares(handlers.AccessMiddleware()),
	)
	if err != nil {
		return err
	}

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.DrillPrefix, bot.MatchTypePrefix, handlers.HandleDrillCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.CategoryPrefix, bot.MatchTypePrefix, handlers.HandleCategoryCallback)
	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, ui.SavePrefix, bot.MatchTypePrefix, handlers.HandleSaveCallback)

	go learning.StartLearningSweeper(ctx)
	go capture.DefaultManager.StartSweeper(ctx)
	go db.StartSessionCleanup(ctx, db.SessionCleanupInterval)
	go waitForTranslator(ctx, services.Translator)

	logger.Info("Starting bot...")
	b.Start(ctx)
	return nil
}

func buildServices(ctx context.Context, cfg config.Config) handlers.Services {
	services := handlers.Services{
		Translator: translation.NewServiceFromConfig(cfg.Translation),
		Speaker:    speech.Disabled{},
		Recognizer: speech.Disabled{},
	}
	if cfg.TTS.Enabled {
		services.Speaker = speech.NewGoogleSpeaker(ctx, cfg.TTS, nil)
	}
	return services
}

func waitForTranslator(ctx context.Context, svc *translation.Service) {
	if !svc.HasFallback() {
		return
	}
	if _, err := svc.Ready(ctx).Wait(ctx); err != nil {
		logger.Warn("machine translation unreachable, using the dictionary only", "error", err)
		return
	}
	source, target := svc.Languages()
	logger.Info("machine translation ready", "source", source, "target", target)
}
