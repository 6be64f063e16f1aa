package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"redbook/internal/crawler"
)

const crawledKeyPrefix = "redbook:crawled:"

// CrawlRecord é o registro mínimo persistido por nota já coletada.
type CrawlRecord struct {
	NoteID    string
	Keyword   string
	Title     string
	CrawledAt time.Time
}

// CrawlStore é a fonte de verdade do histórico de notas coletadas.
type CrawlStore interface {
	IsCrawled(ctx context.Context, noteID string) (bool, error)
	MarkBatch(ctx context.Context, records []CrawlRecord) error
	Count(ctx context.Context) (int, error)
}

// PGStore implementa CrawlStore sobre Postgres.
type PGStore struct {
	db *pgx.Conn
}

func NewPGStore(databaseURL string) (*PGStore, error) {
	conn, err := pgx.Connect(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("falha ao conectar no postgres: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("banco não responde: %w", err)
	}

	store := &PGStore{db: conn}
	if err := store.initSchema(); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("falha ao criar tabela: %w", err)
	}
	return store, nil
}

func (s *PGStore) initSchema() error {
	query := `
        CREATE TABLE IF NOT EXISTS crawled_notes (
            note_id VARCHAR(64) PRIMARY KEY,
            keyword VARCHAR(255),
            title TEXT,
            crawled_at TIMESTAMP DEFAULT NOW()
        );

        CREATE INDEX IF NOT EXISTS idx_crawled_keyword ON crawled_notes(keyword);
        CREATE INDEX IF NOT EXISTS idx_crawled_at ON crawled_notes(crawled_at);
        `

	_, err := s.db.Exec(context.Background(), query)
	if err != nil {
		log.Printf("Atenção na criação da tabela (pode ser ignorado se já existir): %v", err)
	} else {
		log.Println("Schema do banco verificado/criado com sucesso.")
	}
	return nil
}

func (s *PGStore) IsCrawled(ctx context.Context, noteID string) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM crawled_notes WHERE note_id = $1)`, noteID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("falha consultando note_id %s: %w", noteID, err)
	}
	return exists, nil
}

func (s *PGStore) MarkBatch(ctx context.Context, records []CrawlRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
            INSERT INTO crawled_notes (note_id, keyword, title, crawled_at)
            VALUES ($1, $2, $3, $4)
            ON CONFLICT (note_id) DO NOTHING`,
			rec.NoteID, rec.Keyword, rec.Title, rec.CrawledAt)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("falha gravando lote de notas: %w", err)
		}
	}
	return nil
}

func (s *PGStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM crawled_notes`).Scan(&count)
	return count, err
}

func (s *PGStore) Close(ctx context.Context) {
	s.db.Close(ctx)
}

// Gate é o portão de deduplicação do pipeline: Postgres como fonte de verdade
// e Redis como cache quente na frente (mesmo split do resto do sistema).
// O Redis é opcional, com rdb nil toda consulta vai direto ao banco.
type Gate struct {
	store CrawlStore
	rdb   *redis.Client
	ttl   time.Duration
}

func NewGate(store CrawlStore, rdb *redis.Client, ttlHours int) *Gate {
	if ttlHours <= 0 {
		ttlHours = 72
	}
	return &Gate{
		store: store,
		rdb:   rdb,
		ttl:   time.Duration(ttlHours) * time.Hour,
	}
}

// FilterNew devolve só os cards ainda não coletados, preservando a ordem.
// Cache quente primeiro; miss no Redis cai para o banco, e um hit no banco
// re-aquece a chave no Redis.
//
// Erros de consulta degradam para "não coletado", pior caso é re-extrair uma
// nota, nunca perder uma.
func (g *Gate) FilterNew(ctx context.Context, cards []crawler.NoteCard) []crawler.NoteCard {
	fresh := make([]crawler.NoteCard, 0, len(cards))
	skipped := 0

	for _, card := range cards {
		if g.isCrawled(ctx, card.NoteID) {
			skipped++
			continue
		}
		fresh = append(fresh, card)
	}

	if skipped > 0 {
		log.Printf("[Gate] %d notas já coletadas antes, %d novas seguem para extração.", skipped, len(fresh))
	}
	return fresh
}

func (g *Gate) isCrawled(ctx context.Context, noteID string) bool {
	if noteID == "" {
		return false
	}

	if g.rdb != nil {
		exists, err := g.rdb.Exists(ctx, crawledKeyPrefix+noteID).Result()
		if err == nil && exists > 0 {
			return true
		}
	}

	crawled, err := g.store.IsCrawled(ctx, noteID)
	if err != nil {
		log.Printf("[Gate] Erro consultando histórico da nota %s: %v", noteID, err)
		return false
	}
	if crawled && g.rdb != nil {
		g.rdb.Set(ctx, crawledKeyPrefix+noteID, "1", g.ttl)
	}
	return crawled
}

// MarkBatch grava as notas como coletadas, no banco e no cache.
//
// A marcação é tardia de propósito: só acontece DEPOIS dos filtros de data e
// atributo, então uma nota extraída mas filtrada (ou com extração falha) NÃO
// entra no histórico e será re-visitada no próximo run. Custa extrações
// repetidas, mas garante que nota nenhuma é descartada para sempre por causa
// de um run ruim.
func (g *Gate) MarkBatch(ctx context.Context, keyword string, notes []crawler.NoteDetail) error {
	if len(notes) == 0 {
		return nil
	}

	now := time.Now()
	records := make([]CrawlRecord, 0, len(notes))
	for _, n := range notes {
		if n.NoteID == "" {
			continue
		}
		records = append(records, CrawlRecord{
			NoteID:    n.NoteID,
			Keyword:   keyword,
			Title:     n.Title,
			CrawledAt: now,
		})
	}

	if err := g.store.MarkBatch(ctx, records); err != nil {
		return err
	}

	if g.rdb != nil {
		for _, rec := range records {
			g.rdb.Set(ctx, crawledKeyPrefix+rec.NoteID, "1", g.ttl)
		}
	}

	log.Printf("[Gate] %d notas marcadas como coletadas.", len(records))
	return nil
}

// TotalCrawled retorna o tamanho do histórico persistido.
func (g *Gate) TotalCrawled(ctx context.Context) (int, error) {
	return g.store.Count(ctx)
}
