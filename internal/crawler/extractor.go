package crawler

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"redbook/internal/browser"
)

// structuredRetryCooldown cobre a corrida conhecida em que a primeira leitura
// do __INITIAL_STATE__ falha porque a SPA ainda não terminou a transição.
const structuredRetryCooldown = 2 * time.Second

// LikeConfig controla a curtida aleatória nas páginas de detalhe.
type LikeConfig struct {
	Enabled     bool
	Probability float64 // chance de curtir cada nota visitada (0-1)
	MaxPerRun   int     // teto de curtidas por execução
	DelayAfter  time.Duration
}

// Config agrupa os parâmetros de ritmo e curtida do Extractor.
type Config struct {
	DetailPageDelay time.Duration // delay base antes de ler a página de detalhe
	MinDelay        time.Duration
	MaxDelay        time.Duration
	Like            LikeConfig
}

// Extractor visita páginas de detalhe e extrai a nota completa.
// Estratégia primária: ler o __INITIAL_STATE__ (estruturado, mais confiável).
// Fallback: seletores CSS sobre o DOM renderizado.
//
// Extract nunca retorna erro, toda classe de falha degrada para um registro
// parcialmente vazio com contagens zeradas; o chamador distingue "extração
// incompleta" de "nota não existe" pelo IsFailure do registro.
type Extractor struct {
	page      browser.PageControl
	cfg       Config
	likeCount int // curtidas realizadas neste run
	sleep     func(time.Duration)
	randFloat func() float64
}

func NewExtractor(page browser.PageControl, cfg Config) *Extractor {
	return &Extractor{
		page:      page,
		cfg:       cfg,
		sleep:     time.Sleep,
		randFloat: rand.Float64,
	}
}

// LikesPerformed retorna quantas curtidas este Extractor já fez no run atual.
func (e *Extractor) LikesPerformed() int {
	return e.likeCount
}

// rawNote é o objeto reduzido que o script de extração estruturada devolve.
type rawNote struct {
	NoteID string `json:"noteId"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Desc   string `json:"desc"`
	User   struct {
		Nickname string `json:"nickname"`
		UserID   string `json:"userId"`
	} `json:"user"`
	InteractInfo struct {
		LikedCount     string `json:"likedCount"`
		CommentCount   string `json:"commentCount"`
		CollectedCount string `json:"collectedCount"`
		ShareCount     string `json:"shareCount"`
	} `json:"interactInfo"`
	Time       string `json:"time"`
	IPLocation string `json:"ipLocation"`
	ImageList  []struct {
		URLDefault string `json:"urlDefault"`
		URLPre     string `json:"urlPre"`
		URL        string `json:"url"`
		InfoList   []struct {
			URL string `json:"url"`
		} `json:"infoList"`
	} `json:"imageList"`
	TagList []struct {
		Name string `json:"name"`
		ID   string `json:"id"`
	} `json:"tagList"`
}

// Extract visita a página da nota e monta o NoteDetail.
//
// O link original do card é preservado, ele carrega o xsec_token exigido
// para abrir o detalhe. Só sintetizamos o link canônico /explore/{id}
// quando o card veio sem link nenhum.
func (e *Extractor) Extract(card NoteCard) NoteDetail {
	log.Printf("[Extractor] Extraindo detalhe da nota: %s", card.NoteID)

	detail := NoteDetail{
		NoteID:     card.NoteID,
		NoteLink:   card.NoteLink,
		Title:      card.Title,
		Author:     card.Author,
		AuthorLink: card.AuthorLink,
		ImageURLs:  []string{},
		Tags:       []string{},
	}
	if detail.NoteLink == "" && detail.NoteID != "" {
		detail.NoteLink = fmt.Sprintf("%s/explore/%s", BaseURL, detail.NoteID)
	}
	if detail.NoteLink == "" {
		log.Printf("[Extractor] ⚠️  Nota %s sem link, pulando extração.", card.NoteID)
		return detail
	}

	if err := e.page.Navigate(detail.NoteLink); err != nil {
		log.Printf("[Extractor] ❌ Erro navegando para %s: %v", card.NoteID, err)
		if isConnectionError(err) {
			e.reconnect()
			return detail
		}
		// Erro não relacionado a transporte: segue em melhor esforço, a
		// página pode ter carregado parcialmente.
	}

	// Delay aleatório: imita leitura humana e dá tempo da página carregar
	e.sleep(e.cfg.DetailPageDelay + e.randomDelay())

	e.dismissLoginModal()

	// Estratégia 1: __INITIAL_STATE__, até 2 tentativas
	raw, ok := e.extractStructured()
	if !ok {
		log.Printf("[Extractor] __INITIAL_STATE__ tentativa 1 falhou para %s, aguardando e repetindo...", card.NoteID)
		e.sleep(structuredRetryCooldown)
		raw, ok = e.extractStructured()
	}

	if ok {
		mergeStructured(&detail, raw)
	} else {
		// Estratégia 2: seletores DOM
		log.Printf("[Extractor] Extração estruturada falhou para %s, tentando seletores DOM", card.NoteID)
		e.extractFromDOM(&detail)
	}

	if e.shouldLike() {
		if e.performLike(detail.NoteID) {
			detail.Liked = true
		}
	}

	return detail
}

// ExtractBatch extrai os detalhes de uma lista de cards, na ordem de entrada.
//
// Mantém um contador de falhas consecutivas (registros sem nada aproveitável)
// e aborta o lote quando ele chega em maxConsecutiveFailures, proteção contra
// um browser morto/desconectado queimando o resto da fila nota a nota. Um
// Reconnect disparado dentro do Extract não zera o contador; só um registro
// aproveitável zera.
func (e *Extractor) ExtractBatch(cards []NoteCard, maxConsecutiveFailures int, progress func(current, total int)) []NoteDetail {
	results := make([]NoteDetail, 0, len(cards))
	total := len(cards)
	consecutiveFailures := 0

	for idx, card := range cards {
		if progress != nil {
			progress(idx+1, total)
		}

		detail := e.Extract(card)
		results = append(results, detail)

		if detail.IsFailure() {
			consecutiveFailures++
			if consecutiveFailures >= maxConsecutiveFailures {
				log.Printf("[Extractor] ❌ Abortando lote: %d falhas consecutivas, browser pode estar sem resposta. Extraídas %d/%d notas.",
					consecutiveFailures, idx+1-consecutiveFailures, total)
				break
			}
		} else {
			consecutiveFailures = 0
		}
	}

	return results
}

// ----- Estratégia 1: __INITIAL_STATE__ -----

func (e *Extractor) extractStructured() (rawNote, bool) {
	raw, err := e.page.RunScript(jsExtractInitialState)
	if err != nil {
		log.Printf("[Extractor] Erro executando script estruturado: %v", err)
		if isConnectionError(err) {
			e.reconnect()
		}
		return rawNote{}, false
	}
	if raw == "" {
		return rawNote{}, false
	}
	var note rawNote
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		log.Printf("[Extractor] Erro decodificando __INITIAL_STATE__: %v", err)
		return rawNote{}, false
	}
	return note, true
}

// mergeStructured sobrepõe os dados estruturados no registro base.
// Strings e listas só substituem quando não vazias; contagens substituem
// sempre, zero é um valor observado válido, não ausência de dado.
func mergeStructured(detail *NoteDetail, raw rawNote) {
	mergeString(&detail.NoteID, raw.NoteID)
	mergeString(&detail.NoteType, raw.Type)
	mergeString(&detail.Title, raw.Title)
	mergeString(&detail.Content, raw.Desc)
	mergeString(&detail.Author, raw.User.Nickname)
	mergeString(&detail.AuthorID, raw.User.UserID)
	if raw.User.UserID != "" {
		detail.AuthorLink = fmt.Sprintf("%s/user/profile/%s", BaseURL, raw.User.UserID)
	}

	detail.Likes = ParseCount(raw.InteractInfo.LikedCount)
	detail.Comments = ParseCount(raw.InteractInfo.CommentCount)
	detail.Collects = ParseCount(raw.InteractInfo.CollectedCount)
	detail.Shares = ParseCount(raw.InteractInfo.ShareCount)

	if raw.Time != "" {
		if t, ok := ParseTimestamp(raw.Time); ok {
			detail.PublishTime = t
			detail.PublishTimeStr = t.Format("2006-01-02 15:04:05")
		} else {
			detail.PublishTimeStr = raw.Time
		}
	}
	if raw.IPLocation != "" && detail.PublishTimeStr != "" {
		detail.PublishTimeStr += fmt.Sprintf(" (%s)", raw.IPLocation)
	}

	var urls []string
	for _, img := range raw.ImageList {
		u := img.URLDefault
		if u == "" {
			u = img.URLPre
		}
		if u == "" {
			u = img.URL
		}
		if u == "" && len(img.InfoList) > 0 {
			u = img.InfoList[0].URL
		}
		if u == "" {
			continue
		}
		u = NormalizeImageURL(u)
		// Avatares não são imagens da nota
		if strings.Contains(u, "/avatar/") {
			continue
		}
		urls = appendUnique(urls, u)
	}
	if len(urls) > 0 {
		detail.ImageURLs = urls
	}

	var tags []string
	for _, t := range raw.TagList {
		tags = appendUnique(tags, t.Name)
	}
	tags = appendUnique(tags, ExtractHashtags(detail.Content)...)
	if len(tags) > 0 {
		detail.Tags = tags
	}
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// ----- Estratégia 2: fallback por seletores DOM -----

// extractFromDOM preenche o registro por seletores CSS. Este caminho não tem
// como saber o tipo da nota, então assume "normal" (图文).
func (e *Extractor) extractFromDOM(detail *NoteDetail) {
	if title := e.domText(detailTitleSelectors, 2*time.Second); title != "" {
		detail.Title = title
	}
	if content := e.domText(detailContentSelectors, 2*time.Second); content != "" {
		detail.Content = content
	}
	if author := e.domText(detailAuthorSelectors, 2*time.Second); author != "" {
		detail.Author = author
	}
	if link := e.domAttribute(detailAuthorLinkSelectors, "href", 1*time.Second); link != "" {
		detail.AuthorLink = ResolveURL(link)
		detail.AuthorID = ExtractNoteID(link)
	}

	detail.Likes = e.domCount(detailLikeSelectors)
	detail.Comments = e.domCount(detailCommentSelectors)
	detail.Collects = e.domCount(detailCollectSelectors)

	if timeStr := e.domText(detailDateSelectors, 1*time.Second); timeStr != "" {
		detail.PublishTimeStr = timeStr
		if t, ok := ParsePublishTime(timeStr); ok {
			detail.PublishTime = t
		}
	}

	detail.ImageURLs = e.domImages()
	detail.Tags = appendUnique(e.domTags(), ExtractHashtags(detail.Content)...)
	detail.NoteType = NoteTypeNormal
}

// Escadas de seletores do detalhe: tentados em ordem, vence o primeiro com
// conteúdo não vazio. O markup do XHS muda com frequência, por isso a
// redundância.
var (
	detailTitleSelectors = []string{
		"#detail-title",
		".note-detail .title",
		`[class*="title"]`,
	}
	detailContentSelectors = []string{
		"#detail-desc",
		".note-detail .desc",
		".note-scroller .desc",
		`[class*="desc"]`,
		".note-text",
	}
	detailAuthorSelectors = []string{
		".note-detail .username",
		".author-container .username",
		`[class*="username"]`,
		".author",
	}
	detailAuthorLinkSelectors = []string{
		".note-detail .author-wrapper a",
		".author-container a",
	}
	detailLikeSelectors = []string{
		".like-wrapper .count",
		".like-wrapper span:last-child",
		`[class*="like"] .count`,
		`[class*="like"] span`,
	}
	detailCommentSelectors = []string{
		".chat-wrapper .count",
		".chat-wrapper span:last-child",
		`[class*="chat"] .count`,
		`[class*="comment"] .count`,
	}
	detailCollectSelectors = []string{
		".collect-wrapper .count",
		".collect-wrapper span:last-child",
		`[class*="collect"] .count`,
		`[class*="star"] .count`,
	}
	detailDateSelectors = []string{
		".note-detail .date",
		".bottom-container .date",
		".note-scroller .date",
		`[class*="date"]`,
	}
	detailImageContainerSelectors = []string{
		".swiper-wrapper",
		".carousel-container",
		".note-slider-img",
		".note-detail .note-image",
		".note-content",
		`div[class*="slider"]`,
		`div[class*="carousel"]`,
		`div[class*="swiper"]`,
	}
	detailTagSelectors = []string{
		`#detail-desc a[class*="tag"]`,
		`.note-detail a[class*="tag"]`,
		`a[class*="hash"]`,
		".tag",
	}
)

func (e *Extractor) domText(selectors []string, timeout time.Duration) string {
	for _, sel := range selectors {
		if el := e.page.Query(sel, timeout); el != nil {
			if text := strings.TrimSpace(el.Text()); text != "" {
				return text
			}
		}
	}
	return ""
}

func (e *Extractor) domAttribute(selectors []string, attr string, timeout time.Duration) string {
	for _, sel := range selectors {
		if el := e.page.Query(sel, timeout); el != nil {
			if v := el.Attribute(attr); v != "" {
				return v
			}
		}
	}
	return ""
}

func (e *Extractor) domCount(selectors []string) int {
	for _, sel := range selectors {
		if el := e.page.Query(sel, 1*time.Second); el != nil {
			if text := strings.TrimSpace(el.Text()); text != "" {
				return ParseCount(text)
			}
		}
	}
	return 0
}

func (e *Extractor) domImages() []string {
	var container browser.Element
	for _, sel := range detailImageContainerSelectors {
		if container = e.page.Query(sel, 2*time.Second); container != nil {
			break
		}
	}

	var images []browser.Element
	if container != nil {
		images = container.QueryAll("img")
	} else {
		images = e.page.QueryAll("img", 2*time.Second)
	}

	urls := []string{}
	for _, img := range images {
		src := img.Attribute("src")
		if src == "" {
			src = img.Attribute("data-src")
		}
		if src == "" || !strings.Contains(src, "xhscdn") {
			continue
		}
		if strings.Contains(src, "/avatar/") || strings.Contains(src, "emoji") || strings.Contains(src, "icon") {
			continue
		}
		src = strings.SplitN(src, "?", 2)[0]
		urls = appendUnique(urls, src)
	}
	return urls
}

func (e *Extractor) domTags() []string {
	tags := []string{}
	for _, sel := range detailTagSelectors {
		for _, el := range e.page.QueryAll(sel, 1*time.Second) {
			text := strings.Trim(strings.TrimSpace(el.Text()), "#")
			tags = appendUnique(tags, text)
		}
		if len(tags) > 0 {
			break
		}
	}
	return tags
}

// ----- Modal de login -----

func (e *Extractor) dismissLoginModal() {
	// Melhor esforço: o modal pode nem existir
	_, _ = e.page.RunScript(jsDismissLoginModal)
}

// ----- Curtida aleatória -----

// shouldLike decide se curte a nota atual com base na probabilidade e na
// quota restante do run.
func (e *Extractor) shouldLike() bool {
	if !e.cfg.Like.Enabled {
		return false
	}
	if e.likeCount >= e.cfg.Like.MaxPerRun {
		return false
	}
	return e.randFloat() < e.cfg.Like.Probability
}

func (e *Extractor) performLike(noteID string) bool {
	result, err := e.page.RunScript(jsPerformLike)
	if err != nil {
		log.Printf("[Extractor] Erro curtindo nota %s: %v", noteID, err)
		return false
	}

	switch result {
	case "liked":
		e.likeCount++
		log.Printf("[Extractor] ❤️  Nota %s curtida (%d/%d curtidas usadas).", noteID, e.likeCount, e.cfg.Like.MaxPerRun)
		// Delay pós-curtida para imitar comportamento humano
		e.sleep(e.cfg.Like.DelayAfter + 500*time.Millisecond + time.Duration(e.randFloat()*float64(time.Second)))
		return true
	case "already_liked":
		log.Printf("[Extractor] Nota %s já estava curtida, pulando.", noteID)
	case "no_button":
		log.Printf("[Extractor] Botão de curtir não encontrado na nota %s.", noteID)
	default:
		log.Printf("[Extractor] Resultado da curtida na nota %s: %s", noteID, result)
	}
	return false
}

// ----- Classificação de erro e reconexão -----

// isConnectionError identifica quedas de transporte (DevTools/websocket).
func isConnectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "disconnected") || strings.Contains(msg, "connection")
}

func (e *Extractor) reconnect() {
	log.Println("[Extractor] ⚠️  Conexão com o browser perdida. Tentando reconectar...")
	if err := e.page.Reconnect(); err != nil {
		log.Printf("[Extractor] ❌ Reconexão falhou: %v", err)
		return
	}
	log.Println("[Extractor] Reconectado. Seguindo para as próximas notas.")
}

func (e *Extractor) randomDelay() time.Duration {
	spread := e.cfg.MaxDelay - e.cfg.MinDelay
	if spread <= 0 {
		return e.cfg.MinDelay
	}
	return e.cfg.MinDelay + time.Duration(rand.Int63n(int64(spread)+1))
}
