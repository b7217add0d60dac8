// Package pipeline прогоняет стадии загрузки по порядку:
// выгрузка -> граф -> терминология -> codelist'ы.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"eapgraph/internal/config"
	"eapgraph/internal/extract"
	"eapgraph/internal/graph"
	"eapgraph/internal/library"
	"eapgraph/internal/logging"
	"eapgraph/internal/pg"
	"eapgraph/internal/reference"
	"eapgraph/internal/terminology"
)

// Result: готовый документ и статистика стадий
type Result struct {
	Document *graph.Document
	Skipped  int
	Match    terminology.MatchStats
	Bind     reference.BindStats
	Elapsed  time.Duration
}

func documentName(path string) string {
	if strings.Contains(path, "://") {
		return "postgres"
	}
	return filepath.Base(filepath.Clean(path))
}

// Run выполняет полную загрузку. Ошибки структуры модели фатальны,
// промахи обогащения только логируются. log может быть nil.
func Run(ctx context.Context, cfg config.Config, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = logging.Nop()
	}
	start := time.Now()

	src, err := extract.Open(ctx, cfg.Extract)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	recs, err := extract.Load(ctx, src, log.With("stage", "extract"))
	if err != nil {
		return nil, fmt.Errorf("load extract: %w", err)
	}

	doc, err := graph.Build(documentName(cfg.Extract), recs, log.With("stage", "graph"))
	if err != nil {
		return nil, fmt.Errorf("build graph: %w", err)
	}

	var cat *terminology.Catalog
	if cfg.Terminology != "" {
		cat, err = terminology.LoadWorkbook(cfg.Terminology, log.With("stage", "terminology"))
		if err != nil {
			return nil, fmt.Errorf("load terminology: %w", err)
		}
	}
	match := terminology.NewMatcher(cat, log.With("stage", "terminology")).Enrich(doc)

	provider, err := newProvider(cfg, cat, log.With("stage", "codelists"))
	if err != nil {
		return nil, err
	}
	bind := reference.BindCodeLists(ctx, doc, provider, log.With("stage", "codelists"))

	return &Result{
		Document: doc,
		Skipped:  recs.Skipped,
		Match:    match,
		Bind:     bind,
		Elapsed:  time.Since(start),
	}, nil
}

func newProvider(cfg config.Config, cat *terminology.Catalog, log *slog.Logger) (*reference.Provider, error) {
	var remote reference.Remote
	if cfg.LibraryAPIKey != "" {
		retries := cfg.LibraryRetries
		if retries == 0 {
			retries = -1
		}
		remote = library.NewClient(library.Config{
			BaseURL:    cfg.LibraryURL,
			APIKey:     cfg.LibraryAPIKey,
			Domains:    cfg.LibraryDomains,
			Timeout:    time.Duration(cfg.LibraryTimeout),
			MaxRetries: retries,
			RateLimit:  cfg.LibraryRate,
		}, log)
	} else {
		log.Info("terminology service API key not set, remote codelist lookup disabled")
	}

	p := reference.NewProvider(remote, log)
	if cat != nil {
		p.AddLocal(cat.CodeLists())
	}
	if cfg.CodelistDir != "" {
		lists, err := reference.LoadCatalog(cfg.CodelistDir)
		if err != nil {
			return nil, fmt.Errorf("load codelist catalog: %w", err)
		}
		p.AddLocal(lists)
		log.Info("codelist catalog loaded", "dir", cfg.CodelistDir, "codelists", len(lists))
	}
	return p, nil
}

// Stage копирует таблицы выгрузки в PostgreSQL (cfg.StageDB), создавая
// таблицы при необходимости. Отсутствующие в выгрузке таблицы пропускаются.
func Stage(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	src, err := extract.Open(ctx, cfg.Extract)
	if err != nil {
		return err
	}
	defer src.Close()

	db, err := pg.Open(ctx, cfg.StageDB)
	if err != nil {
		return fmt.Errorf("open stage db: %w", err)
	}
	defer db.Close()
	log.Info("staging extract", "extract", cfg.Extract, "db", pg.Redact(cfg.StageDB))

	if err := pg.ApplyDDL(ctx, db, pg.ExtractDDL(), log); err != nil {
		return err
	}
	for _, table := range extract.Tables {
		rows, err := src.Scan(ctx, table)
		if errors.Is(err, extract.ErrTableMissing) {
			log.Info("table not present, skipped", "table", table)
			continue
		}
		if err != nil {
			return err
		}
		plain := make([]map[string]any, len(rows))
		for i, r := range rows {
			plain[i] = r
		}
		n, err := pg.StageRows(ctx, db, table, plain)
		if err != nil {
			return err
		}
		log.Info("table staged", "table", table, "rows", n)
	}
	return nil
}
