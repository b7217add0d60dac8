package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Duration читается из JSON строкой вида "30s"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) String() string { return time.Duration(d).String() }

type Config struct {
	Port string `json:"port"`

	// Выгрузка модели: каталог JSON lines, файл SQLite или postgres URL
	Extract string `json:"extract"`
	// Терминология (.xlsx); пусто: без обогащения
	Terminology string `json:"terminology"`
	// Локальные codelist'ы в YAML
	CodelistDir string `json:"codelistDir"`

	// Удалённый сервис терминологии; без ключа удалённый поиск выключен
	LibraryURL     string   `json:"libraryUrl"`
	LibraryAPIKey  string   `json:"libraryApiKey"`
	LibraryDomains []string `json:"libraryDomains"`
	LibraryTimeout Duration `json:"libraryTimeout"`
	LibraryRetries int      `json:"libraryRetries"`
	LibraryRate    float64  `json:"libraryRate"`

	// Куда выгрузить extract в PostgreSQL (режим -stage-db)
	StageDB string `json:"stageDb"`

	LogFormat string `json:"logFormat"` // human | json
	LogLevel  string `json:"logLevel"`
}

func def() Config {
	return Config{
		Port:           "8080",
		Extract:        "extract",
		Terminology:    "",
		CodelistDir:    "",
		LibraryURL:     "https://api.library.cdisc.org/api",
		LibraryDomains: []string{"sdtmct", "ddfct", "protocolct", "cdashct"},
		LibraryTimeout: Duration(30 * time.Second),
		LibraryRetries: 3,
		LibraryRate:    5,
		LogFormat:      "human",
		LogLevel:       "info",
	}
}

func loadJSON(path string, c Config) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := json.Unmarshal(b, &c); err != nil {
		return c, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

func getenv(k, fallback string) string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func getenvInt(k string, fallback int) int {
	if v, ok := os.LookupEnv(k); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getenvFloat(k string, fallback float64) float64 {
	if v, ok := os.LookupEnv(k); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func getenvDuration(k string, fallback Duration) Duration {
	if v, ok := os.LookupEnv(k); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return Duration(d)
		}
	}
	return fallback
}

func getenvList(k string, fallback []string) []string {
	if v, ok := os.LookupEnv(k); ok && strings.TrimSpace(v) != "" {
		return splitList(v)
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load: defaults -> JSON (если файл есть) -> ENV -> флаги из args.
// Флаг -config меняет путь к JSON.
func Load(jsonPath string, args []string) (Config, error) {
	fs := flag.NewFlagSet("eapgraph", flag.ContinueOnError)
	configPath := fs.String("config", jsonPath, "Path to config JSON")
	port := fs.String("port", "", "HTTP port")
	extract := fs.String("extract", "", "Extract: JSON lines dir, SQLite file or postgres URL")
	terminology := fs.String("terminology", "", "Terminology workbook (.xlsx)")
	codelists := fs.String("codelists", "", "Directory with local YAML codelists")
	libURL := fs.String("library-url", "", "Terminology service base URL")
	libKey := fs.String("library-api-key", "", "Terminology service API key")
	libDomains := fs.String("library-domains", "", "Comma separated terminology domains, by priority")
	libTimeout := fs.Duration("library-timeout", 0, "Per-request timeout")
	libRetries := fs.Int("library-retries", -1, "Retries on 429/5xx")
	libRate := fs.Float64("library-rate", 0, "Requests per second")
	stage := fs.String("stage-db", "", "Copy the extract into this PostgreSQL database and exit")
	logFormat := fs.String("log-format", "", "Log format (human/json)")
	logLevel := fs.String("log-level", "", "Log level (debug/info/warn/error)")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := def()

	// JSON (если файл существует)
	if st, err := os.Stat(*configPath); err == nil && !st.IsDir() {
		c2, err := loadJSON(*configPath, cfg)
		if err != nil {
			return Config{}, err
		}
		cfg = c2
	}

	// ENV overrides
	cfg.Port = getenv("EAPGRAPH_PORT", cfg.Port)
	cfg.Extract = getenv("EAPGRAPH_EXTRACT", cfg.Extract)
	cfg.Terminology = getenv("EAPGRAPH_TERMINOLOGY", cfg.Terminology)
	cfg.CodelistDir = getenv("EAPGRAPH_CODELIST_DIR", cfg.CodelistDir)
	cfg.LibraryURL = getenv("EAPGRAPH_LIBRARY_URL", cfg.LibraryURL)
	cfg.LibraryAPIKey = getenv("EAPGRAPH_LIBRARY_API_KEY", cfg.LibraryAPIKey)
	cfg.LibraryDomains = getenvList("EAPGRAPH_LIBRARY_DOMAINS", cfg.LibraryDomains)
	cfg.LibraryTimeout = getenvDuration("EAPGRAPH_LIBRARY_TIMEOUT", cfg.LibraryTimeout)
	cfg.LibraryRetries = getenvInt("EAPGRAPH_LIBRARY_RETRIES", cfg.LibraryRetries)
	cfg.LibraryRate = getenvFloat("EAPGRAPH_LIBRARY_RATE", cfg.LibraryRate)
	cfg.StageDB = getenv("EAPGRAPH_STAGE_DB", cfg.StageDB)
	cfg.LogFormat = getenv("EAPGRAPH_LOG_FORMAT", cfg.LogFormat)
	cfg.LogLevel = getenv("EAPGRAPH_LOG_LEVEL", cfg.LogLevel)

	// Flags overrides: только явно заданные
	set := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	set(&cfg.Port, *port)
	set(&cfg.Extract, *extract)
	set(&cfg.Terminology, *terminology)
	set(&cfg.CodelistDir, *codelists)
	set(&cfg.LibraryURL, *libURL)
	set(&cfg.LibraryAPIKey, *libKey)
	set(&cfg.StageDB, *stage)
	set(&cfg.LogFormat, *logFormat)
	set(&cfg.LogLevel, *logLevel)
	if d := splitList(*libDomains); len(d) > 0 {
		cfg.LibraryDomains = d
	}
	if *libTimeout > 0 {
		cfg.LibraryTimeout = Duration(*libTimeout)
	}
	if *libRetries >= 0 {
		cfg.LibraryRetries = *libRetries
	}
	if *libRate > 0 {
		cfg.LibraryRate = *libRate
	}

	if strings.TrimSpace(cfg.Extract) == "" {
		return Config{}, fmt.Errorf("extract path is required")
	}
	return cfg, nil
}
