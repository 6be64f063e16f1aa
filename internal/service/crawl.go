package service

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/redis/go-redis/v9"

	"redbook/internal/crawler"
	"redbook/internal/exporter"
	"redbook/internal/images"
	"redbook/internal/search"
	"redbook/internal/storage"
	"redbook/pkg/metrics"
)

// Options agrupa os parâmetros de um ciclo de crawl.
type Options struct {
	Keyword                string
	SortBy                 string
	MaxNotes               int
	ScrollTimes            int
	MaxConsecutiveFailures int
	NoteType               string
	MinLikes               int
	DownloadImages         bool
}

// Pipeline amarra as etapas do crawl: busca, deduplicação, extração, filtros
// e exportação. Componentes de infraestrutura opcionais (publisher, indexer,
// downloader, redis) podem ser nil, a etapa correspondente é pulada.
type Pipeline struct {
	searcher   *crawler.Searcher
	extractor  *crawler.Extractor
	gate       *storage.Gate
	dateFilter *storage.DateFilter
	files      *exporter.FileExporter
	publisher  *exporter.Publisher
	indexer    *search.Indexer
	downloader *images.Downloader
	rdb        *redis.Client
}

func NewPipeline(
	searcher *crawler.Searcher,
	extractor *crawler.Extractor,
	gate *storage.Gate,
	dateFilter *storage.DateFilter,
	files *exporter.FileExporter,
	publisher *exporter.Publisher,
	indexer *search.Indexer,
	downloader *images.Downloader,
	rdb *redis.Client,
) *Pipeline {
	return &Pipeline{
		searcher:   searcher,
		extractor:  extractor,
		gate:       gate,
		dateFilter: dateFilter,
		files:      files,
		publisher:  publisher,
		indexer:    indexer,
		downloader: downloader,
		rdb:        rdb,
	}
}

// Run executa um ciclo completo de crawl para a keyword.
//
// A marcação no histórico acontece só no FINAL, depois de todos os filtros:
// nota extraída mas reprovada (ou com extração falha) fica fora do histórico
// e será re-visitada no próximo ciclo.
func (p *Pipeline) Run(ctx context.Context, opts Options) error {
	log.Printf("=== Ciclo de crawl: keyword '%s' (max %d notas) ===", opts.Keyword, opts.MaxNotes)

	// 1. Busca e coleta dos cards
	if err := p.searcher.Search(opts.Keyword, opts.SortBy); err != nil {
		return fmt.Errorf("falha na busca: %w", err)
	}
	cards := p.searcher.CollectCards(opts.ScrollTimes, opts.MaxNotes)
	if len(cards) == 0 {
		log.Println("[Pipeline] Nenhum card coletado. Encerrando ciclo.")
		return nil
	}

	// 2. Deduplicação contra o histórico
	fresh := p.gate.FilterNew(ctx, cards)
	metrics.IncrBy(ctx, p.rdb, metrics.KeyNotesSkipped, len(cards)-len(fresh))
	if len(fresh) == 0 {
		log.Println("[Pipeline] Todas as notas já estavam no histórico. Encerrando ciclo.")
		return nil
	}

	// 3. Extração dos detalhes
	details := p.extractor.ExtractBatch(fresh, opts.MaxConsecutiveFailures, func(current, total int) {
		log.Printf("[Pipeline] Extraindo nota %d/%d...", current, total)
	})
	if len(details) < len(fresh) {
		metrics.IncrBy(ctx, p.rdb, metrics.KeyRunsAborted, 1)
	}

	extracted := make([]crawler.NoteDetail, 0, len(details))
	for _, d := range details {
		if d.IsFailure() {
			continue
		}
		extracted = append(extracted, d)
	}
	log.Printf("[Pipeline] %d/%d notas extraídas com sucesso.", len(extracted), len(details))
	metrics.IncrBy(ctx, p.rdb, metrics.KeyNotesCrawled, len(extracted))
	metrics.IncrBy(ctx, p.rdb, metrics.KeyLikesPerformed, p.extractor.LikesPerformed())

	// 4. Filtros de atributo e de data
	kept := storage.FilterAttributes(extracted, opts.NoteType, opts.MinLikes)
	kept = p.dateFilter.Filter(kept)
	metrics.IncrBy(ctx, p.rdb, metrics.KeyNotesFiltered, len(extracted)-len(kept))
	if len(kept) == 0 {
		log.Println("[Pipeline] Nenhuma nota sobrou após os filtros. Encerrando ciclo.")
		return nil
	}

	// 5. Ordena por engajamento (comentários, decrescente)
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Comments > kept[j].Comments
	})

	// 6. Imagens
	if p.downloader != nil && opts.DownloadImages {
		p.downloader.DownloadBatch(ctx, kept)
	}

	// 7. Exportação
	if _, err := p.files.ExportCSV(opts.Keyword, kept); err != nil {
		log.Printf("[Pipeline] ❌ Erro exportando CSV: %v", err)
	}
	if _, err := p.files.ExportJSON(opts.Keyword, kept); err != nil {
		log.Printf("[Pipeline] ❌ Erro exportando JSON: %v", err)
	}
	if p.publisher != nil {
		if _, err := p.publisher.PublishBatch(opts.Keyword, kept); err != nil {
			log.Printf("[Pipeline] ❌ Erro publicando no NATS: %v", err)
		}
	}
	if p.indexer != nil {
		if err := p.indexer.IndexNotes(opts.Keyword, kept); err != nil {
			log.Printf("[Pipeline] ❌ Erro indexando no Meilisearch: %v", err)
		}
	}

	// 8. Marca o histórico, só o que sobreviveu aos filtros
	if err := p.gate.MarkBatch(ctx, opts.Keyword, kept); err != nil {
		log.Printf("[Pipeline] ❌ Erro marcando histórico: %v", err)
	}

	metrics.IncrBy(ctx, p.rdb, metrics.KeyRunsCompleted, 1)
	log.Printf("=== Ciclo concluído: %d notas entregues. ===", len(kept))
	return nil
}
