package exporter

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"redbook/internal/crawler"
)

func sampleNotes() []crawler.NoteDetail {
	return []crawler.NoteDetail{
		{
			NoteID:         "n1",
			NoteLink:       "https://www.xiaohongshu.com/explore/n1",
			NoteType:       crawler.NoteTypeNormal,
			Title:          "Café em 上海",
			Content:        "texto, com vírgula e \"aspas\"",
			Author:         "ana",
			Likes:          12000,
			Comments:       34,
			PublishTime:    time.Date(2024, 3, 10, 0, 0, 0, 0, time.Local),
			PublishTimeStr: "2024-03-10",
			ImageURLs:      []string{"https://ci.xhscdn.com/a.jpg", "https://ci.xhscdn.com/b.jpg"},
			Tags:           []string{"café", "上海"},
		},
		{NoteID: "n2", Title: "Segunda nota"},
	}
}

func TestExportCSV(t *testing.T) {
	e, err := NewFileExporter(t.TempDir())
	if err != nil {
		t.Fatalf("Erro criando exporter: %v", err)
	}

	path, err := e.ExportCSV("café/manhã", sampleNotes())
	if err != nil {
		t.Fatalf("Erro exportando CSV: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Erro lendo CSV: %v", err)
	}
	if !strings.HasPrefix(string(data), "\xEF\xBB\xBF") {
		t.Error("CSV devia começar com BOM UTF-8")
	}
	if !strings.HasPrefix(filepath.Base(path), "café_manhã_") {
		t.Errorf("nome do arquivo devia usar a keyword sanitizada: %s", path)
	}

	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(string(data), "\xEF\xBB\xBF")))
	rows, err := r.ReadAll()
	if err != nil {
		t.Fatalf("CSV inválido: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("esperava cabeçalho + 2 linhas, veio %d", len(rows))
	}
	if rows[0][0] != "note_id" || rows[1][0] != "n1" || rows[1][8] != "12000" {
		t.Errorf("conteúdo do CSV errado: %v", rows[1])
	}
}

func TestExportJSON(t *testing.T) {
	e, err := NewFileExporter(t.TempDir())
	if err != nil {
		t.Fatalf("Erro criando exporter: %v", err)
	}

	path, err := e.ExportJSON("kw", sampleNotes())
	if err != nil {
		t.Fatalf("Erro exportando JSON: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Erro lendo JSON: %v", err)
	}
	var notes []crawler.NoteDetail
	if err := json.Unmarshal(data, &notes); err != nil {
		t.Fatalf("JSON inválido: %v", err)
	}
	if len(notes) != 2 || notes[0].NoteID != "n1" || notes[0].Likes != 12000 {
		t.Errorf("conteúdo do JSON errado: %+v", notes)
	}
}
