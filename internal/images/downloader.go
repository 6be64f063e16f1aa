package images

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"redbook/internal/crawler"
)

// Downloader baixa as imagens das notas para o disco, uma pasta por nota.
//
// O CDN do XHS recusa requisições sem User-Agent de browser e sem Referer do
// site, por isso os headers fixos no client.
type Downloader struct {
	client *resty.Client
	dir    string
}

func NewDownloader(dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de imagens %s: %w", dir, err)
	}

	client := resty.New().
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(1 * time.Second).
		SetHeader("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36").
		SetHeader("Referer", crawler.BaseURL+"/")

	return &Downloader{client: client, dir: dir}, nil
}

// DownloadNoteImages baixa todas as imagens de uma nota para images/{note_id}/.
// Falha em uma imagem não impede as demais; retorna quantas foram salvas.
func (d *Downloader) DownloadNoteImages(ctx context.Context, note crawler.NoteDetail) (int, error) {
	if len(note.ImageURLs) == 0 {
		return 0, nil
	}

	noteDir := filepath.Join(d.dir, crawler.SanitizeFilename(note.NoteID, 64))
	if err := os.MkdirAll(noteDir, 0o755); err != nil {
		return 0, fmt.Errorf("falha ao criar pasta da nota %s: %w", note.NoteID, err)
	}

	saved := 0
	for idx, url := range note.ImageURLs {
		path := filepath.Join(noteDir, fmt.Sprintf("%02d.jpg", idx+1))
		if _, err := os.Stat(path); err == nil {
			saved++
			continue // já baixada em run anterior
		}

		resp, err := d.client.R().
			SetContext(ctx).
			SetOutput(path).
			Get(url)
		if err != nil {
			log.Printf("[Images] Erro baixando imagem %d da nota %s: %v", idx+1, note.NoteID, err)
			continue
		}
		if resp.IsError() {
			log.Printf("[Images] CDN retornou %d para imagem %d da nota %s", resp.StatusCode(), idx+1, note.NoteID)
			os.Remove(path)
			continue
		}
		saved++
	}

	return saved, nil
}

// DownloadBatch baixa as imagens de todas as notas, sequencialmente, paralelo
// aqui chamaria atenção do anti-bot do CDN.
func (d *Downloader) DownloadBatch(ctx context.Context, notes []crawler.NoteDetail) int {
	total := 0
	for _, note := range notes {
		if ctx.Err() != nil {
			log.Println("[Images] Download de imagens interrompido.")
			break
		}
		n, err := d.DownloadNoteImages(ctx, note)
		if err != nil {
			log.Printf("[Images] Erro na nota %s: %v", note.NoteID, err)
			continue
		}
		total += n
	}
	log.Printf("[Images] %d imagens salvas em %s.", total, d.dir)
	return total
}
