package storage

import (
	"context"
	"path/filepath"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"redbook/internal/crawler"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(filepath.Join(t.TempDir(), "crawled_notes.json"))
	if err != nil {
		t.Fatalf("Erro criando FileStore: %v", err)
	}
	return store
}

func TestGateFilterNew(t *testing.T) {
	ctx := context.Background()
	gate := NewGate(newTestStore(t), nil, 0)

	cards := []crawler.NoteCard{
		{NoteID: "a", Title: "primeira"},
		{NoteID: "b", Title: "segunda"},
		{NoteID: "c", Title: "terceira"},
	}

	// Primeiro run: tudo novo
	fresh := gate.FilterNew(ctx, cards)
	if len(fresh) != 3 {
		t.Fatalf("primeiro run devia liberar as 3 notas, liberou %d", len(fresh))
	}

	// Marca só a e b (como se c tivesse sido reprovada nos filtros)
	notes := []crawler.NoteDetail{
		{NoteID: "a", Title: "primeira"},
		{NoteID: "b", Title: "segunda"},
	}
	if err := gate.MarkBatch(ctx, "teste", notes); err != nil {
		t.Fatalf("Erro no MarkBatch: %v", err)
	}

	// Segundo run: c volta porque nunca entrou no histórico
	fresh = gate.FilterNew(ctx, cards)
	if len(fresh) != 1 || fresh[0].NoteID != "c" {
		t.Errorf("segundo run devia liberar só a nota c: %+v", fresh)
	}
}

func TestGateMarkBatchIdempotente(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	gate := NewGate(store, nil, 0)

	notes := []crawler.NoteDetail{{NoteID: "a"}, {NoteID: "a"}, {NoteID: ""}}
	if err := gate.MarkBatch(ctx, "kw", notes); err != nil {
		t.Fatalf("Erro no MarkBatch: %v", err)
	}
	if err := gate.MarkBatch(ctx, "kw", notes); err != nil {
		t.Fatalf("Erro no MarkBatch repetido: %v", err)
	}

	count, err := gate.TotalCrawled(ctx)
	if err != nil {
		t.Fatalf("Erro no Count: %v", err)
	}
	if count != 1 {
		t.Errorf("marcar duas vezes (e note_id vazio) devia resultar em 1 registro, veio %d", count)
	}
}

func TestGateCacheRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Erro ao iniciar miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	store := newTestStore(t)
	gate := NewGate(store, rdb, 24)

	if err := gate.MarkBatch(ctx, "kw", []crawler.NoteDetail{{NoteID: "quente"}}); err != nil {
		t.Fatalf("Erro no MarkBatch: %v", err)
	}

	if !mr.Exists(crawledKeyPrefix + "quente") {
		t.Error("MarkBatch devia aquecer a chave no Redis")
	}

	fresh := gate.FilterNew(ctx, []crawler.NoteCard{{NoteID: "quente"}, {NoteID: "nova"}})
	if len(fresh) != 1 || fresh[0].NoteID != "nova" {
		t.Errorf("nota no cache devia ser filtrada: %+v", fresh)
	}
}

func TestGateBackfillDoCache(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Erro ao iniciar miniredis: %v", err)
	}
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()
	store := newTestStore(t)

	// Registro só no banco (cache frio, como depois de um flush do Redis)
	gateSemCache := NewGate(store, nil, 24)
	if err := gateSemCache.MarkBatch(ctx, "kw", []crawler.NoteDetail{{NoteID: "fria"}}); err != nil {
		t.Fatalf("Erro no MarkBatch: %v", err)
	}

	gate := NewGate(store, rdb, 24)
	fresh := gate.FilterNew(ctx, []crawler.NoteCard{{NoteID: "fria"}})
	if len(fresh) != 0 {
		t.Fatalf("hit no banco devia filtrar a nota: %+v", fresh)
	}
	if !mr.Exists(crawledKeyPrefix + "fria") {
		t.Error("hit no banco devia re-aquecer a chave no Redis")
	}
}

func TestFileStorePersistencia(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crawled_notes.json")

	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("Erro criando FileStore: %v", err)
	}
	err = store.MarkBatch(ctx, []CrawlRecord{{NoteID: "persistida", Keyword: "kw"}})
	if err != nil {
		t.Fatalf("Erro no MarkBatch: %v", err)
	}

	// Reabre como um novo processo faria
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("Erro reabrindo FileStore: %v", err)
	}
	crawled, err := reopened.IsCrawled(ctx, "persistida")
	if err != nil {
		t.Fatalf("Erro no IsCrawled: %v", err)
	}
	if !crawled {
		t.Error("o histórico devia sobreviver ao restart")
	}
}
