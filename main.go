package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"redbook/internal/browser"
	"redbook/internal/crawler"
	"redbook/internal/exporter"
	"redbook/internal/images"
	"redbook/internal/search"
	"redbook/internal/service"
	"redbook/internal/storage"
	"redbook/pkg/config"
	"redbook/pkg/metrics"
)

func main() {
	var (
		keyword      = flag.String("keyword", "", "keyword de busca (sobrepõe o config)")
		maxNotes     = flag.Int("max-notes", 0, "máximo de notas por ciclo (sobrepõe o config)")
		scrollTimes  = flag.Int("scroll-times", 0, "quantidade de scrolls na busca (sobrepõe o config)")
		sortBy       = flag.String("sort", "", "ordenação da busca: general | popularity | time")
		minLikes     = flag.Int("min-likes", -1, "mínimo de curtidas (sobrepõe o config)")
		doLogin      = flag.Bool("login", false, "abre o XHS para login via QR code e sai")
		schedule     = flag.Bool("schedule", false, "roda em loop no intervalo do config")
		closeBrowser = flag.Bool("close-browser", false, "fecha o browser ao terminar (padrão: mantém aberto para reuso da sessão)")
	)
	flag.Parse()

	cfg := config.LoadConfig()

	// Flags de linha de comando vencem o config.yaml
	if *keyword != "" {
		cfg.Search.Keyword = *keyword
	}
	if *maxNotes > 0 {
		cfg.Search.MaxNotes = *maxNotes
	}
	if *scrollTimes > 0 {
		cfg.Search.ScrollTimes = *scrollTimes
	}
	if *sortBy != "" {
		cfg.Search.SortBy = *sortBy
	}
	if *minLikes >= 0 {
		cfg.Filter.MinLikes = *minLikes
	}

	fmt.Println("Redbook Crawler iniciando...")

	mgr := browser.NewManager(browser.Options{
		DebugPort:   cfg.Browser.DebugPort,
		UserDataDir: cfg.Browser.UserDataDir,
		Headless:    cfg.Browser.Headless,
		MonitorAddr: cfg.Browser.MonitorAddr,
		LoginWait:   time.Duration(cfg.Browser.LoginWaitSeconds) * time.Second,
	})

	if *doLogin {
		if err := mgr.Login(crawler.BaseURL); err != nil {
			log.Fatalf("Erro no login: %v", err)
		}
		mgr.Disconnect()
		return
	}

	if cfg.Search.Keyword == "" {
		log.Fatal("Nenhuma keyword configurada. Use -keyword ou defina search.keyword no config.yaml.")
	}

	// --- Infraestrutura opcional ---

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Printf("⚠️  Redis indisponível (%v). Seguindo sem cache/métricas.", err)
			rdb = nil
		}
	}

	var store storage.CrawlStore
	if cfg.Database.URL != "" {
		pg, err := storage.NewPGStore(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Erro conectando no Postgres: %v", err)
		}
		defer pg.Close(context.Background())
		store = pg
	} else {
		fs, err := storage.NewFileStore(filepath.Join(cfg.Output.Dir, "crawled_notes.json"))
		if err != nil {
			log.Fatalf("Erro abrindo histórico local: %v", err)
		}
		store = fs
		log.Println("Sem database.url no config, usando histórico local em JSON.")
	}
	gate := storage.NewGate(store, rdb, cfg.Redis.DedupTTLHrs)

	var publisher *exporter.Publisher
	if cfg.Nats.URL != "" {
		p, err := exporter.NewPublisher(cfg.Nats.URL)
		if err != nil {
			log.Fatalf("Erro NATS: %v", err)
		}
		defer p.Close()
		publisher = p
	}

	var indexer *search.Indexer
	if cfg.Meilisearch.Host != "" {
		indexer = search.NewIndexer(cfg.Meilisearch.Host, cfg.Meilisearch.Key, cfg.Meilisearch.Index)
	}

	var downloader *images.Downloader
	if cfg.Output.DownloadImages {
		d, err := images.NewDownloader(cfg.Output.ImagesDir)
		if err != nil {
			log.Fatalf("Erro preparando pasta de imagens: %v", err)
		}
		downloader = d
	}

	files, err := exporter.NewFileExporter(cfg.Output.Dir)
	if err != nil {
		log.Fatalf("Erro preparando pasta de saída: %v", err)
	}

	dateFilter, err := storage.NewDateFilter(cfg.Filter.StartDate, cfg.Filter.EndDate, cfg.Filter.RecentDays)
	if err != nil {
		log.Fatalf("Erro no filtro de datas: %v", err)
	}

	if cfg.Metrics.Port != "" && rdb != nil {
		go metrics.StartMetricsServer(cfg.Metrics.Port, rdb, metrics.PipelineMetrics)
	}

	// --- Pipeline ---

	minDelay := time.Duration(cfg.Behavior.MinDelayMs) * time.Millisecond
	maxDelay := time.Duration(cfg.Behavior.MaxDelayMs) * time.Millisecond

	searcher := crawler.NewSearcher(mgr, minDelay, maxDelay)
	extractor := crawler.NewExtractor(mgr, crawler.Config{
		DetailPageDelay: time.Duration(cfg.Behavior.DetailDelaySeconds) * time.Second,
		MinDelay:        minDelay,
		MaxDelay:        maxDelay,
		Like: crawler.LikeConfig{
			Enabled:     cfg.Behavior.Like.Enabled,
			Probability: cfg.Behavior.Like.Probability,
			MaxPerRun:   cfg.Behavior.Like.MaxPerRun,
			DelayAfter:  time.Duration(cfg.Behavior.Like.DelayAfterSeconds) * time.Second,
		},
	})

	pipeline := service.NewPipeline(searcher, extractor, gate, dateFilter, files, publisher, indexer, downloader, rdb)

	opts := service.Options{
		Keyword:                cfg.Search.Keyword,
		SortBy:                 cfg.Search.SortBy,
		MaxNotes:               cfg.Search.MaxNotes,
		ScrollTimes:            cfg.Search.ScrollTimes,
		MaxConsecutiveFailures: cfg.Behavior.MaxConsecutiveFailures,
		NoteType:               cfg.Filter.NoteType,
		MinLikes:               cfg.Filter.MinLikes,
		DownloadImages:         cfg.Output.DownloadImages,
	}

	defer func() {
		if *closeBrowser {
			mgr.Close()
		} else {
			mgr.Disconnect()
		}
	}()

	cycle := func() {
		if err := pipeline.Run(context.Background(), opts); err != nil {
			log.Printf("❌ Ciclo falhou: %v", err)
		}
	}

	if !*schedule || cfg.Scheduler.Interval <= 0 {
		cycle()
		return
	}

	interval := time.Duration(cfg.Scheduler.Interval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	go cycle()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	fmt.Printf("Crawler agendado a cada %s. Ctrl+C para sair.\n", interval)

	for {
		select {
		case <-ticker.C:
			cycle()
		case <-sig:
			fmt.Println("Encerrando...")
			return
		}
	}
}
