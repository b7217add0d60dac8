package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"eapgraph/internal/api"
	"eapgraph/internal/config"
	"eapgraph/internal/logging"
	"eapgraph/internal/pipeline"
)

func main() {
	// 1. Конфиг: defaults -> config.json -> ENV -> флаги
	cfg, err := config.Load("config.json", os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	log := logging.New(os.Stderr, "human", logging.ParseLevel("info"))
	if err != nil {
		log.Error("Ошибка конфигурации", "err", err)
		os.Exit(2)
	}
	log = logging.New(os.Stderr, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Режим выгрузки в PostgreSQL: копируем и выходим
	if cfg.StageDB != "" {
		if err := pipeline.Stage(ctx, cfg, log); err != nil {
			log.Error("Ошибка выгрузки в PostgreSQL", "err", err)
			os.Exit(1)
		}
		log.Info("Выгрузка в PostgreSQL завершена")
		return
	}

	// 3. Загружаем модель, терминологию и codelist'ы
	storage := api.NewStorage(func(ctx context.Context) (*pipeline.Result, error) {
		return pipeline.Run(ctx, cfg, log)
	}, log)
	snap, err := storage.Reload(ctx)
	if err != nil {
		log.Error("Ошибка загрузки модели", "extract", cfg.Extract, "err", err)
		os.Exit(1)
	}
	doc := snap.Doc()
	log.Info("Модель загружена",
		"load_id", snap.LoadID,
		"classes", len(doc.Classes()),
		"codelists", len(doc.CodeLists()),
		"issues", len(api.Lint(snap.Result)),
	)

	// 4. Запускаем REST API (только чтение)
	gin.SetMode(gin.ReleaseMode)
	log.Info("Стартуем сервер", "port", cfg.Port)
	if err := api.RunServer(":"+cfg.Port, storage); err != nil {
		log.Error("Сервер остановлен", "err", err)
		os.Exit(1)
	}
}
