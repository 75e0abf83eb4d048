package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	router "github.com/dkeye/meetassist/internal/adapters/http"
	"github.com/dkeye/meetassist/internal/adapters/ws"
	"github.com/dkeye/meetassist/internal/ai"
	"github.com/dkeye/meetassist/internal/ai/gemini"
	"github.com/dkeye/meetassist/internal/app"
	"github.com/dkeye/meetassist/internal/app/chat"
	"github.com/dkeye/meetassist/internal/app/collab"
	"github.com/dkeye/meetassist/internal/config"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}

	var backend ai.Backend = ai.Unconfigured{}
	if cfg.Gemini.APIKey != "" {
		b, err := gemini.New(ctx, cfg.Gemini.APIKey)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create gemini backend")
		}
		backend = b
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, AI features disabled")
	}
	assistant := ai.NewAssistant(backend, ai.NewExecutor(cfg.Gemini.Models, cfg.Gemini.MaxRetries), cfg.Gemini.SystemInstruction)

	chatConns := app.NewRegistry("chat")
	collabConns := app.NewRegistry("collab")
	manager := chat.NewManager(chatConns, assistant)
	relay := collab.NewRelay(collab.WithRetainSnapshots(cfg.Collab.RetainSnapshots))

	opts := ws.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	}
	r := router.SetupRouter(ctx, cfg, router.Services{
		Chat:   ws.NewChatController(manager, ws.NewClientRateLimiter(cfg.Chat.RatePerSecond, cfg.Chat.Burst), opts),
		Collab: ws.NewCollabController(relay, collabConns, opts),
		API:    &router.API{AI: assistant, RoomList: relay},
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", addr).Msg("MeetAssist server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		// Hijacked WebSockets are not tracked by Shutdown.
		chatConns.CloseAll()
		collabConns.CloseAll()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited gracefully")
}
