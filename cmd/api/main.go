package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"tryon-backend/internal/adapter/repo"
	"tryon-backend/internal/auth"
	"tryon-backend/internal/generation"
	"tryon-backend/internal/http/handlers"
	httpapi "tryon-backend/internal/http/httpapi"
	"tryon-backend/internal/infra"
	"tryon-backend/internal/mailer"
	"tryon-backend/internal/providers/catvton"
	"tryon-backend/internal/providers/fal"
	"tryon-backend/internal/providers/kling"
	"tryon-backend/internal/providers/replicate"
	"tryon-backend/internal/providers/vision"
	"tryon-backend/internal/storage"
	"tryon-backend/internal/tryon"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	store, err := storage.NewFileStore(cfg.OutputDir, cfg.StorageBaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to prepare output directory")
	}

	var visionClient *vision.Client
	if cfg.OpenAIAPIKey != "" {
		visionClient, err = vision.NewClient(vision.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIBaseURL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build vision client")
		}
	} else {
		logger.Warn().Msg("OPENAI_API_KEY not set, vision enrichment and campaigns disabled")
	}

	genOpts := generation.Options{
		Kling: kling.NewClient(kling.Options{
			AccessToken: cfg.KlingAPIKey,
			BaseURL:     cfg.KlingBaseURL,
			Logger:      &logger,
		}),
		Replicate: replicate.NewClient(replicate.Options{
			APIToken: cfg.ReplicateAPIToken,
			BaseURL:  cfg.ReplicateBaseURL,
		}),
		Fal: fal.NewClient(fal.Options{
			APIKey:  cfg.FalAPIKey,
			BaseURL: cfg.FalBaseURL,
			Logger:  &logger,
		}),
		CatVTON: catvton.NewClient(catvton.Options{
			Endpoint: cfg.CatVTONURL,
			Store:    store,
			Steps:    cfg.TryOnSteps,
			Guidance: cfg.TryOnGuidance,
			Logger:   &logger,
		}),
		Logger: &logger,
	}
	if visionClient != nil {
		genOpts.Vision = visionClient
	}
	genService := generation.NewService(genOpts)

	runtime := tryon.NewRuntime(tryon.RuntimeOptions{BaseURL: cfg.InferenceBaseURL})
	pipelineOpts := tryon.Options{
		Runtime:  runtime,
		Store:    store,
		Slots:    int64(cfg.AcceleratorSlots),
		Width:    cfg.ImgWidth,
		Height:   cfg.ImgHeight,
		Steps:    cfg.TryOnSteps,
		Guidance: cfg.TryOnGuidance,
		Logger:   &logger,
	}
	if visionClient != nil {
		pipelineOpts.Vision = visionClient
	}
	pipeline := tryon.NewPipeline(pipelineOpts)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret)

	app := &handlers.App{
		Config: cfg,
		Logger: &logger,
		Users:  repo.NewUserRepository(dbpool),
		Tokens: tokens,
		Google: auth.NewGoogleVerifier("", nil),
		Mailer: mailer.New(mailer.Options{
			APIKey: cfg.SendgridAPIKey,
			From:   cfg.MailFrom,
			Logger: &logger,
		}),
		Generation: genService,
		Pipeline:   pipeline,
		Store:      store,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}

	router := httpapi.NewRouter(app, cfg, &logger, tokens)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
