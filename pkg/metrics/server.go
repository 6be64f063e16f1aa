package metrics

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/redis/go-redis/v9"
)

// Chaves Redis dos contadores do pipeline.
const (
	KeyNotesCrawled   = "redbook:metrics:notes_crawled"
	KeyNotesSkipped   = "redbook:metrics:notes_skipped"
	KeyNotesFiltered  = "redbook:metrics:notes_filtered"
	KeyLikesPerformed = "redbook:metrics:likes_performed"
	KeyRunsCompleted  = "redbook:metrics:runs_completed"
	KeyRunsAborted    = "redbook:metrics:runs_aborted"
)

// MetricDef define o mapeamento entre uma chave Redis e uma métrica Prometheus.
type MetricDef struct {
	RedisKey string
	PromName string
	Help     string
	Type     string // "counter" ou "gauge"
}

// PipelineMetrics são as métricas expostas pelo crawler.
var PipelineMetrics = []MetricDef{
	{KeyNotesCrawled, "redbook_notes_crawled_total", "Notas extraídas com sucesso", "counter"},
	{KeyNotesSkipped, "redbook_notes_skipped_total", "Notas puladas por deduplicação", "counter"},
	{KeyNotesFiltered, "redbook_notes_filtered_total", "Notas reprovadas nos filtros de data/atributo", "counter"},
	{KeyLikesPerformed, "redbook_likes_performed_total", "Curtidas realizadas pelo crawler", "counter"},
	{KeyRunsCompleted, "redbook_runs_completed_total", "Ciclos de crawl completados", "counter"},
	{KeyRunsAborted, "redbook_runs_aborted_total", "Ciclos abortados por falhas consecutivas", "counter"},
}

// IncrBy incrementa um contador no Redis. No-op com rdb nil ou n <= 0.
func IncrBy(ctx context.Context, rdb *redis.Client, key string, n int) {
	if rdb == nil || n <= 0 {
		return
	}
	if err := rdb.IncrBy(ctx, key, int64(n)).Err(); err != nil {
		log.Printf("metrics: erro incrementando %s: %v", key, err)
	}
}

// StartMetricsServer inicia um servidor HTTP que expõe métricas no formato Prometheus.
func StartMetricsServer(port string, rdb *redis.Client, metricsDefs []MetricDef) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		ctx := context.Background()
		for _, m := range metricsDefs {
			val, err := rdb.Get(ctx, m.RedisKey).Result()
			if err == redis.Nil {
				val = "0"
			} else if err != nil {
				log.Printf("metrics: erro ao ler chave %s: %v", m.RedisKey, err)
				val = "0"
			}
			fmt.Fprintf(w, "# HELP %s %s\n", m.PromName, m.Help)
			fmt.Fprintf(w, "# TYPE %s %s\n", m.PromName, m.Type)
			fmt.Fprintf(w, "%s %s\n\n", m.PromName, val)
		}
	})

	log.Printf("Metrics server ouvindo em %s/metrics", port)
	if err := http.ListenAndServe(port, mux); err != nil {
		log.Fatalf("metrics: falha ao iniciar servidor: %v", err)
	}
}
