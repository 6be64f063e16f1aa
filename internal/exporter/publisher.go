package exporter

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"redbook/internal/crawler"
)

const (
	streamName     = "REDBOOK"
	notesSubject   = "data.notes_crawled"
	subjectPattern = "data.>"
)

// BatchPayload é a mensagem publicada no JetStream a cada lote de crawl.
type BatchPayload struct {
	BatchID   string               `json:"batch_id"`
	Keyword   string               `json:"keyword"`
	CrawledAt time.Time            `json:"crawled_at"`
	Notes     []crawler.NoteDetail `json:"notes"`
}

// Publisher entrega lotes de notas no NATS JetStream para consumidores
// downstream (indexação, análise, alertas).
type Publisher struct {
	nc *nats.Conn
	js nats.JetStreamContext
}

func NewPublisher(url string) (*Publisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("falha conectando no NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("falha criando contexto JetStream: %w", err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     streamName,
		Subjects: []string{subjectPattern},
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		nc.Close()
		return nil, fmt.Errorf("falha criando stream %s: %w", streamName, err)
	}

	return &Publisher{nc: nc, js: js}, nil
}

// PublishBatch publica o lote inteiro como uma única mensagem.
func (p *Publisher) PublishBatch(keyword string, notes []crawler.NoteDetail) (string, error) {
	payload := BatchPayload{
		BatchID:   uuid.NewString(),
		Keyword:   keyword,
		CrawledAt: time.Now(),
		Notes:     notes,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("falha serializando lote: %w", err)
	}

	if _, err := p.js.Publish(notesSubject, data); err != nil {
		return "", fmt.Errorf("falha publicando lote no NATS: %w", err)
	}

	log.Printf("[Publisher] Lote %s publicado em %s (%d notas).", payload.BatchID, notesSubject, len(notes))
	return payload.BatchID, nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}
