package search

import (
	"fmt"
	"log"

	"github.com/meilisearch/meilisearch-go"

	"redbook/internal/crawler"
)

// NoteDoc define a estrutura do documento de nota no Meilisearch.
type NoteDoc struct {
	NoteID      string   `json:"note_id"`
	NoteType    string   `json:"note_type"`
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Author      string   `json:"author"`
	Keyword     string   `json:"keyword"`
	Likes       int      `json:"likes"`
	Comments    int      `json:"comments"`
	Collects    int      `json:"collects"`
	Tags        []string `json:"tags,omitempty"`
	PublishedAt int64    `json:"published_at,omitempty"`
	NoteLink    string   `json:"note_link"`
}

// Indexer guarda a conexão aberta com o Meilisearch.
type Indexer struct {
	client    meilisearch.ServiceManager
	indexName string
}

// NewIndexer cria a conexão e garante que o índice de notas existe.
func NewIndexer(host, apiKey, indexName string) *Indexer {
	client := meilisearch.New(host, meilisearch.WithAPIKey(apiKey))

	_, err := client.CreateIndex(&meilisearch.IndexConfig{
		Uid:        indexName,
		PrimaryKey: "note_id", // PK por note_id garante upsert e evita duplicar notas re-coletadas
	})
	if err != nil {
		log.Printf("Aviso Meilisearch: %v", err)
	}

	client.Index(indexName).UpdateSearchableAttributes(&[]string{
		"title",
		"content",
		"author",
		"tags",
		"keyword",
	})

	client.Index(indexName).UpdateSortableAttributes(&[]string{
		"likes",
		"comments",
		"published_at",
	})

	filterableAttrs := []interface{}{"note_type", "keyword", "likes", "author"}
	client.Index(indexName).UpdateFilterableAttributes(&filterableAttrs)

	log.Println("Conectado ao Meilisearch!")

	return &Indexer{
		client:    client,
		indexName: indexName,
	}
}

// IndexNotes envia o lote inteiro de notas via upsert.
func (i *Indexer) IndexNotes(keyword string, notes []crawler.NoteDetail) error {
	if len(notes) == 0 {
		return nil
	}

	docs := make([]NoteDoc, 0, len(notes))
	for _, n := range notes {
		doc := NoteDoc{
			NoteID:   n.NoteID,
			NoteType: n.NoteType,
			Title:    n.Title,
			Content:  n.Content,
			Author:   n.Author,
			Keyword:  keyword,
			Likes:    n.Likes,
			Comments: n.Comments,
			Collects: n.Collects,
			Tags:     n.Tags,
			NoteLink: n.NoteLink,
		}
		if !n.PublishTime.IsZero() {
			doc.PublishedAt = n.PublishTime.Unix()
		}
		docs = append(docs, doc)
	}

	task, err := i.client.Index(i.indexName).UpdateDocuments(docs, nil)
	if err != nil {
		return fmt.Errorf("erro ao indexar notas: %w", err)
	}

	log.Printf("[Search] %d notas enviadas para o Meilisearch (Task UID: %d).", len(docs), task.TaskUID)
	return nil
}

// GetNote busca uma nota específica no índice.
func (i *Indexer) GetNote(noteID string) (*NoteDoc, error) {
	var doc NoteDoc
	err := i.client.Index(i.indexName).GetDocument(noteID, &meilisearch.DocumentQuery{}, &doc)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
