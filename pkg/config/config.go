package config

import (
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config representa a estrutura completa do config.yaml
type Config struct {
	App struct {
		Env string `yaml:"env"`
	} `yaml:"app"`

	Search struct {
		Keyword     string `yaml:"keyword"`
		SortBy      string `yaml:"sort_by"` // general | popularity | time
		MaxNotes    int    `yaml:"max_notes"`
		ScrollTimes int    `yaml:"scroll_times"`
	} `yaml:"search"`

	Filter struct {
		StartDate  string `yaml:"start_date"` // YYYY-MM-DD
		EndDate    string `yaml:"end_date"`
		RecentDays int    `yaml:"recent_days"` // > 0 ignora start/end
		MinLikes   int    `yaml:"min_likes"`
		NoteType   string `yaml:"note_type"` // all | normal | video
	} `yaml:"filter"`

	Behavior struct {
		DetailDelaySeconds     int `yaml:"detail_delay_seconds"`
		MinDelayMs             int `yaml:"min_delay_ms"`
		MaxDelayMs             int `yaml:"max_delay_ms"`
		MaxConsecutiveFailures int `yaml:"max_consecutive_failures"`

		Like struct {
			Enabled           bool    `yaml:"enabled"`
			Probability       float64 `yaml:"probability"`
			MaxPerRun         int     `yaml:"max_per_run"`
			DelayAfterSeconds int     `yaml:"delay_after_seconds"`
		} `yaml:"like"`
	} `yaml:"behavior"`

	Browser struct {
		DebugPort        int    `yaml:"debug_port"`
		UserDataDir      string `yaml:"user_data_dir"`
		Headless         bool   `yaml:"headless"`
		MonitorAddr      string `yaml:"monitor_addr"`
		LoginWaitSeconds int    `yaml:"login_wait_seconds"`
	} `yaml:"browser"`

	Output struct {
		Dir            string `yaml:"dir"`
		DownloadImages bool   `yaml:"download_images"`
		ImagesDir      string `yaml:"images_dir"`
	} `yaml:"output"`

	Scheduler struct {
		Interval int `yaml:"interval_seconds"` // 0 = run único
	} `yaml:"scheduler"`

	// Infraestrutura compartilhada, campo de endereço vazio desliga o componente
	Nats struct {
		URL string `yaml:"url"`
	} `yaml:"nats"`

	Redis struct {
		Address     string `yaml:"address"`
		Password    string `yaml:"password"`
		DB          int    `yaml:"db"`
		DedupTTLHrs int    `yaml:"dedup_ttl_hours"`
	} `yaml:"redis"`

	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`

	Meilisearch struct {
		Host  string `yaml:"host"`
		Key   string `yaml:"key"`
		Index string `yaml:"index"`
	} `yaml:"meilisearch"`

	Metrics struct {
		Port string `yaml:"port"` // ex: ":9102", vazio desliga
	} `yaml:"metrics"`
}

func LoadConfig() *Config {
	// 1. Tenta pegar via Variável de Ambiente (Docker/Prod)
	configPath := os.Getenv("CONFIG_PATH")

	// 2. Se não tiver, tenta achar "subindo" pastas (Local Dev)
	if configPath == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			configPath = "config.yaml"
		} else if _, err := os.Stat("config/config.yaml"); err == nil {
			configPath = "config/config.yaml"
		} else if _, err := os.Stat("../../config/config.yaml"); err == nil {
			// Útil quando rodamos 'go run' de dentro de subpastas
			configPath = "../../config/config.yaml"
		}
	}

	// Converte caminho relativo para absoluto para debug
	absPath, _ := filepath.Abs(configPath)
	log.Printf("Carregando config de: %s", absPath)

	f, err := os.Open(configPath)
	if err != nil {
		log.Fatalf("Erro fatal lendo config: %v", err)
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		log.Fatalf("Erro ao decodificar YAML: %v", err)
	}

	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Search.SortBy == "" {
		c.Search.SortBy = "general"
	}
	if c.Search.MaxNotes == 0 {
		c.Search.MaxNotes = 50
	}
	if c.Search.ScrollTimes == 0 {
		c.Search.ScrollTimes = 10
	}
	if c.Filter.NoteType == "" {
		c.Filter.NoteType = "all"
	}
	if c.Behavior.DetailDelaySeconds == 0 {
		c.Behavior.DetailDelaySeconds = 2
	}
	if c.Behavior.MinDelayMs == 0 {
		c.Behavior.MinDelayMs = 1000
	}
	if c.Behavior.MaxDelayMs == 0 {
		c.Behavior.MaxDelayMs = 3000
	}
	if c.Behavior.MaxConsecutiveFailures == 0 {
		c.Behavior.MaxConsecutiveFailures = 5
	}
	if c.Behavior.Like.Probability == 0 {
		c.Behavior.Like.Probability = 0.3
	}
	if c.Behavior.Like.MaxPerRun == 0 {
		c.Behavior.Like.MaxPerRun = 10
	}
	if c.Behavior.Like.DelayAfterSeconds == 0 {
		c.Behavior.Like.DelayAfterSeconds = 1
	}
	if c.Browser.DebugPort == 0 {
		c.Browser.DebugPort = 9515
	}
	if c.Browser.LoginWaitSeconds == 0 {
		c.Browser.LoginWaitSeconds = 20
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}
	if c.Output.ImagesDir == "" {
		c.Output.ImagesDir = filepath.Join(c.Output.Dir, "images")
	}
	if c.Redis.DedupTTLHrs == 0 {
		c.Redis.DedupTTLHrs = 72
	}
	if c.Meilisearch.Index == "" {
		c.Meilisearch.Index = "redbook_notes"
	}
}
