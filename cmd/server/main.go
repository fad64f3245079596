package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignatzorin/username-extractor/internal/ai"
	"github.com/ignatzorin/username-extractor/internal/card"
	"github.com/ignatzorin/username-extractor/internal/config"
	httpHandlers "github.com/ignatzorin/username-extractor/internal/http/handlers"
	"github.com/ignatzorin/username-extractor/internal/http/middleware"
	httpRouter "github.com/ignatzorin/username-extractor/internal/http/router"
	"github.com/ignatzorin/username-extractor/internal/intake"
	"github.com/ignatzorin/username-extractor/internal/logger"
	"github.com/ignatzorin/username-extractor/internal/preview"
	"github.com/ignatzorin/username-extractor/internal/storage"
	"github.com/ignatzorin/username-extractor/internal/store"
	"github.com/ignatzorin/username-extractor/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	if cfg.Env == "development" {
		logger.Init("debug")
		logger.SetTextFormatter()
	} else {
		logger.Init("info")
	}

	spool, err := storage.NewSpool(cfg.SpoolPath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: ошибка инициализации временного хранилища: %v", err)
	}
	// Остатки от прошлого запуска не нужны: между запусками ничего не сохраняется.
	if err := spool.Purge(); err != nil {
		logger.Log.WithError(err).Warn("main: не удалось очистить временное хранилище")
	}

	hub := ws.NewHub(ctx)
	go hub.Run()

	previews := preview.NewRegistry("/previews")
	st := store.New(previews, hub)
	extractor := ai.NewFromConfig(cfg)
	board := card.NewBoard(st, extractor,
		card.WithClipboard(hub),
		card.WithNotifier(hub),
	)
	surface := intake.New(st, spool, cfg.ClearSecret, cfg.ClearConfirmTTL)

	engine := httpRouter.SetupRouter(cfg, httpRouter.Handlers{
		Files:     httpHandlers.NewFileHandler(ctx, st, board, surface),
		Workspace: httpHandlers.NewWorkspaceHandler(st, board, surface),
		Previews:  httpHandlers.NewPreviewHandler(previews),
		Health:    httpHandlers.NewHealthHandler(st, hub, extractor.Configured()),
		WS:        httpHandlers.NewWSHandler(hub, middleware.OriginAllowed(cfg.AllowedOrigins)),
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	logger.Log.WithField("port", cfg.HTTPPort).
		WithField("ai_provider", cfg.AIProvider).
		WithField("ai_configured", extractor.Configured()).
		Info("main: HTTP сервер запущен")

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}

	removed := st.ClearAll()
	if err := spool.Purge(); err != nil {
		log.Printf("main: ошибка очистки временного хранилища: %v", err)
	}
	logger.Log.WithField("files", removed).Info("main: сервер остановлен")
}
