package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"cloneops/adapters/chatbot"
	"cloneops/adapters/corpus"
	"cloneops/adapters/llm"
	"cloneops/adapters/profile"
	"cloneops/app"
	"cloneops/domain/board"
	"cloneops/domain/run"
	"cloneops/internal"
	"cloneops/internal/api"
	"cloneops/internal/boards"
	"cloneops/internal/bus"
	"cloneops/internal/config"
	"cloneops/internal/detect"
	"cloneops/internal/eval"
	"cloneops/internal/insight"
	"cloneops/ui"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Configuration error: ", err)
	}
	gin.SetMode(cfg.Server.GinMode)
	logger := internal.DefaultLogger

	client, err := llm.NewOpenAIClient(llm.Config{
		APIKey:      cfg.AI.OpenAIKey,
		BaseURL:     cfg.AI.BaseURL,
		Model:       cfg.AI.ChatModel,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		log.Fatal("LLM client error: ", err)
	}

	corpusStore := corpus.NewStore(cfg.Data.CorpusFile, cfg.Data.ResultsFile, cfg.Data.SearchRoots)
	profileStore := profile.NewStore(cfg.Data.ProfilesDir, cfg.Data.FacepackDir, cfg.Data.SearchRoots)
	chatbotClient := chatbot.NewClient(chatbot.Config{
		BaseURL:   cfg.Chatbot.BaseURL,
		PartnerID: cfg.Chatbot.PartnerID,
		ChatbotID: cfg.Chatbot.ChatbotID,
		ShopID:    cfg.Chatbot.ShopID,
	}, logger)

	eventBus := bus.New()
	pool := eval.NewClassifierPool(client, cfg.AI.ClassifyModel, cfg.Eval.Concurrency, logger)
	coordinator := eval.NewCoordinator(pool, corpusStore, eventBus, logger)
	aggregator := boards.NewAggregator(logger)
	insights := insight.NewGenerator(client, cfg.AI.InsightModel, cfg.AI.FallbackModel, logger)
	planner := insight.NewPlanner(client, cfg.AI.ActionModel, logger)
	detector := detect.NewDetector(client, cfg.AI.DetectModel, logger)
	simulation := app.NewSimulationService(corpusStore, corpusStore, logger)
	hub := api.NewSSEHub(logger)

	ctx := context.Background()
	if panel, err := corpusStore.LoadPersonas(ctx); err != nil {
		logger.Warn("persona corpus unavailable at startup: %v", err)
	} else {
		aggregator.SetCorpus(panel)
		logger.Info("loaded %d personas", len(panel))
	}

	// Fold run events into boards and drop stale caches as runs restart or
	// complete.
	events, unsubscribe := eventBus.Subscribe(256)
	defer unsubscribe()
	go func() {
		for e := range events {
			aggregator.Apply(e)
			if e.Kind == run.EventStart || e.Kind == run.EventDone {
				insights.Invalidate(e.Title)
				insights.Invalidate(board.AllBoardName)
				planner.Invalidate(e.Title)
				planner.Invalidate(board.AllBoardName)
			}
		}
	}()

	server := ui.NewServer(ui.Deps{
		Config:      cfg,
		Logger:      logger,
		Coordinator: coordinator,
		Aggregator:  aggregator,
		Insights:    insights,
		Planner:     planner,
		Detector:    detector,
		ChatLLM:     client,
		Simulation:  simulation,
		Corpus:      corpusStore,
		Profiles:    profileStore,
		Chatbot:     chatbotClient,
		Bus:         eventBus,
		Hub:         hub,
	})

	shell, err := ui.NewApp(server, logger)
	if err != nil {
		log.Fatal("Failed to create dashboard app: ", err)
	}
	log.Fatal(shell.Start(":" + cfg.Server.Port))
}
