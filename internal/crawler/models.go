package crawler

import "time"

// Tipos de nota do Xiaohongshu.
const (
	NoteTypeNormal = "normal" // 图文 (imagem + texto)
	NoteTypeVideo  = "video"  // 视频
)

// NoteCard contém os dados mínimos de uma nota descoberta na página de busca.
// O NoteLink carrega o xsec_token, sem ele a página de detalhe não abre.
// As tags json batem com as chaves retornadas pelo script de extração de cards.
type NoteCard struct {
	NoteID     string `json:"note_id"`
	NoteLink   string `json:"note_link"`
	Title      string `json:"title"`
	Author     string `json:"author"`
	AuthorLink string `json:"author_link"`
	Likes      string `json:"likes"` // texto bruto do card ("1.2万")
}

// NoteDetail é a representação completa de uma nota após visitar a página
// de detalhe. Criada uma por NoteCard; mutável apenas durante o merge.
type NoteDetail struct {
	NoteID         string    `json:"note_id"`
	NoteLink       string    `json:"note_link"`
	NoteType       string    `json:"note_type"` // "normal", "video" ou "" (desconhecido)
	Title          string    `json:"title"`
	Content        string    `json:"content"`
	Author         string    `json:"author"`
	AuthorID       string    `json:"author_id"`
	AuthorLink     string    `json:"author_link"`
	Likes          int       `json:"likes"`
	Comments       int       `json:"comments"`
	Collects       int       `json:"collects"`
	Shares         int       `json:"shares"`
	PublishTime    time.Time `json:"publish_time,omitempty"` // zero = desconhecido
	PublishTimeStr string    `json:"publish_time_str"`
	ImageURLs      []string  `json:"image_urls"`
	Tags           []string  `json:"tags"`
	Liked          bool      `json:"liked"` // se curtimos esta nota durante o run
}

// IsFailure diz se a extração não rendeu nada aproveitável, sem título,
// sem conteúdo e zero likes. É o sinal que alimenta o circuit breaker do
// ExtractBatch: a nota pode existir, mas o browser provavelmente não respondeu.
func (n NoteDetail) IsFailure() bool {
	return n.Title == "" && n.Content == "" && n.Likes == 0
}
