package exporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"redbook/internal/crawler"
)

// FileExporter grava o resultado do crawl em CSV e JSON no diretório de saída.
type FileExporter struct {
	dir string
}

func NewFileExporter(dir string) (*FileExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de saída %s: %w", dir, err)
	}
	return &FileExporter{dir: dir}, nil
}

// Colunas do CSV, na ordem de escrita.
var csvHeader = []string{
	"note_id", "note_link", "note_type", "title", "content",
	"author", "author_id", "author_link",
	"likes", "comments", "collects", "shares",
	"publish_time", "image_urls", "tags", "liked",
}

// ExportCSV grava as notas em um CSV nomeado por keyword + timestamp.
func (e *FileExporter) ExportCSV(keyword string, notes []crawler.NoteDetail) (string, error) {
	path := e.outputPath(keyword, "csv")

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("falha ao criar CSV: %w", err)
	}
	defer f.Close()

	// BOM UTF-8: sem ele o Excel abre os títulos em chinês como mojibake
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return "", err
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return "", fmt.Errorf("falha escrevendo cabeçalho: %w", err)
	}

	for _, n := range notes {
		row := []string{
			n.NoteID,
			n.NoteLink,
			n.NoteType,
			n.Title,
			n.Content,
			n.Author,
			n.AuthorID,
			n.AuthorLink,
			strconv.Itoa(n.Likes),
			strconv.Itoa(n.Comments),
			strconv.Itoa(n.Collects),
			strconv.Itoa(n.Shares),
			n.PublishTimeStr,
			strings.Join(n.ImageURLs, "\n"),
			strings.Join(n.Tags, ", "),
			strconv.FormatBool(n.Liked),
		}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("falha escrevendo linha do CSV: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	log.Printf("[Exporter] ✅ CSV salvo: %s (%d notas)", path, len(notes))
	return path, nil
}

// ExportJSON grava as notas em JSON indentado, mesmo esquema de nome do CSV.
func (e *FileExporter) ExportJSON(keyword string, notes []crawler.NoteDetail) (string, error) {
	path := e.outputPath(keyword, "json")

	data, err := json.MarshalIndent(notes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("falha serializando notas: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("falha ao gravar JSON: %w", err)
	}

	log.Printf("[Exporter] ✅ JSON salvo: %s (%d notas)", path, len(notes))
	return path, nil
}

func (e *FileExporter) outputPath(keyword, ext string) string {
	name := fmt.Sprintf("%s_%s.%s",
		crawler.SanitizeFilename(keyword, 50),
		time.Now().Format("20060102_150405"),
		ext)
	return filepath.Join(e.dir, name)
}
