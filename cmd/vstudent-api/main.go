package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpadapter "github.com/vstudent/schedule-agent/internal/adapters/http"
	"github.com/vstudent/schedule-agent/internal/adapters/llm"
	memstore "github.com/vstudent/schedule-agent/internal/adapters/storage/memory"
	mongostore "github.com/vstudent/schedule-agent/internal/adapters/storage/mongo"
	"github.com/vstudent/schedule-agent/internal/app/conversation"
	"github.com/vstudent/schedule-agent/internal/app/dispatch"
	"github.com/vstudent/schedule-agent/internal/app/schedule"
	"github.com/vstudent/schedule-agent/internal/app/tools"
	"github.com/vstudent/schedule-agent/internal/config"
	"github.com/vstudent/schedule-agent/internal/domain"
	"github.com/vstudent/schedule-agent/internal/observability"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := observability.Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Storage: Mongo or in-memory.
	var (
		courseStore       domain.CourseStore
		tagStore          domain.TagStore
		timeTableStore    domain.TimeTableStore
		scheduleStore     domain.ScheduleStore
		conversationStore domain.ConversationStore
		rawExecutor       domain.RawQueryExecutor
	)

	switch cfg.StorageBackend {
	case "mongo":
		logger.Info("using mongo storage", "db", cfg.MongoDB)
		store, err := mongostore.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			logger.Error("mongo connection failed", "error", err)
			os.Exit(1)
		}
		defer func() {
			if err := store.Close(context.Background()); err != nil {
				logger.Error("mongo disconnect failed", "error", err)
			}
		}()

		// One store, implements every persistence interface.
		courseStore = store
		tagStore = store
		timeTableStore = store
		scheduleStore = store
		conversationStore = store
		rawExecutor = store

	case "memory":
		logger.Info("using in-memory storage")
		courses := memstore.NewCourseStore()
		tags := memstore.NewTagStore()
		courseStore = courses
		tagStore = tags
		timeTableStore = memstore.NewTimeTableStore(courses)
		scheduleStore = memstore.NewScheduleStore(courses, tags)
		conversationStore = memstore.NewConversationStore()
		rawExecutor = memstore.NewRawQueryStore()

	default:
		logger.Error("unknown storage backend", "backend", cfg.StorageBackend)
		os.Exit(1)
	}

	// Model: Gemini or scripted mock.
	var model domain.ModelClient
	if cfg.UseMockModel {
		logger.Info("using scripted mock model")
		model = llm.NewScriptedModel()
	} else {
		logger.Info("using gemini model", "model", cfg.ModelName)
		model, err = llm.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.ModelName)
		if err != nil {
			logger.Error("gemini client init failed", "error", err)
			os.Exit(1)
		}
	}

	scheduleSvc := schedule.NewService(courseStore, tagStore, timeTableStore, scheduleStore, rawExecutor, cfg.TagMode)
	conversationSvc := conversation.NewService(conversationStore)

	catalog, err := tools.BuildCatalog(scheduleSvc, conversationSvc, time.Now)
	if err != nil {
		logger.Error("building function catalog failed", "error", err)
		os.Exit(1)
	}

	instruction := func(ctx context.Context) (string, error) {
		courses, tags, schedules, err := scheduleSvc.Snapshot(ctx)
		if err != nil {
			return "", err
		}
		return llm.BuildSystemInstruction(time.Now(), courses, tags, schedules), nil
	}

	dispatcher := dispatch.NewService(model, conversationSvc, catalog, instruction, cfg.MaxFunctionHops, cfg.MemoryWindow)

	handler := httpadapter.NewServer(scheduleSvc, conversationSvc, dispatcher)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "port", cfg.Port)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}
}
