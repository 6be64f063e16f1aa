package crawler

import (
	"encoding/json"
	"log"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"redbook/internal/browser"
)

// Searcher faz a busca por keyword no XHS e coleta os cards de nota da
// página de resultados, rolando a página para carregar mais.
type Searcher struct {
	page     browser.PageControl
	minDelay time.Duration
	maxDelay time.Duration
	sleep    func(time.Duration)
}

func NewSearcher(page browser.PageControl, minDelay, maxDelay time.Duration) *Searcher {
	return &Searcher{
		page:     page,
		minDelay: minDelay,
		maxDelay: maxDelay,
		sleep:    time.Sleep,
	}
}

// Search navega até a página de resultados da keyword, derruba o modal de
// login se aparecer e espera os cards ficarem visíveis.
func (s *Searcher) Search(keyword, sortBy string) error {
	url := BuildSearchURL(EncodeKeyword(keyword), sortBy)
	log.Printf("[Searcher] Buscando keyword '%s' (sort: %s)", keyword, sortBy)
	if err := s.page.Navigate(url); err != nil {
		return err
	}
	// Deixa a estrutura inicial da página renderizar
	s.sleep(3 * time.Second)
	s.waitForResults(15 * time.Second)
	return nil
}

// waitForResults espera os .note-item aparecerem, derrubando o modal de login
// em loop, o XHS costuma mostrar o modal antes de renderizar os cards.
func (s *Searcher) waitForResults(timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		s.dismissLoginModal()
		raw, err := s.page.RunScript(jsCountNoteItems)
		if err == nil {
			if count, convErr := strconv.Atoi(strings.TrimSpace(raw)); convErr == nil && count > 0 {
				log.Printf("[Searcher] Resultados carregados: %d cards visíveis.", count)
				return
			}
		}
		s.sleep(1 * time.Second)
	}
	log.Printf("[Searcher] ⚠️  Timeout (%s) esperando resultados. Seguindo mesmo assim.", timeout)
}

func (s *Searcher) dismissLoginModal() {
	result, err := s.page.RunScript(jsDismissLoginModal)
	if err != nil {
		return
	}
	if result != "" && result != "no_modal" {
		log.Printf("[Searcher] Modal de login fechado (%s).", result)
	}
}

// CollectCards rola a página de resultados e coleta cards únicos por note_id,
// preservando a ordem de primeira aparição, até maxCards. Para cedo quando o
// limite é atingido; senão rola até scrollLimit vezes.
func (s *Searcher) CollectCards(scrollLimit, maxCards int) []NoteCard {
	collected := make(map[string]NoteCard)
	var order []string

	for i := 1; i <= scrollLimit; i++ {
		log.Printf("[Searcher] Scroll %d/%d, coletados até agora: %d", i, scrollLimit, len(order))

		for _, card := range s.extractCards() {
			if card.NoteID == "" {
				continue
			}
			if _, seen := collected[card.NoteID]; seen {
				continue
			}
			collected[card.NoteID] = card
			order = append(order, card.NoteID)
		}

		if len(order) >= maxCards {
			log.Printf("[Searcher] Limite de %d notas atingido, parando o scroll.", maxCards)
			break
		}

		s.scrollDown()
	}

	if len(order) > maxCards {
		order = order[:maxCards]
	}
	results := make([]NoteCard, 0, len(order))
	for _, id := range order {
		results = append(results, collected[id])
	}
	log.Printf("[Searcher] Coletados %d cards únicos.", len(results))
	return results
}

// extractCards extrai os cards renderizados via script in-page; se o script
// falhar (transporte), cai para a extração elemento a elemento via DOM.
func (s *Searcher) extractCards() []NoteCard {
	raw, err := s.page.RunScript(jsExtractCards)
	if err != nil {
		log.Printf("[Searcher] Erro na extração via JS: %v. Tentando fallback DOM.", err)
		return s.extractCardsFromDOM()
	}
	if raw == "" {
		log.Println("[Searcher] Extração JS não retornou nada.")
		return nil
	}

	var cards []NoteCard
	if err := json.Unmarshal([]byte(raw), &cards); err != nil {
		log.Printf("[Searcher] Erro decodificando cards: %v. Tentando fallback DOM.", err)
		return s.extractCardsFromDOM()
	}
	return cards
}

// extractCardsFromDOM é o fallback por seletores quando o script in-page falha.
// Falhas individuais degradam campos para vazio em vez de abortar a página.
func (s *Searcher) extractCardsFromDOM() []NoteCard {
	if container := s.page.Query(".feeds-page", 5*time.Second); container == nil {
		return nil
	}
	sections := s.page.QueryAll(".note-item", 2*time.Second)
	var cards []NoteCard
	for _, section := range sections {
		if card, ok := parseCardDOM(section); ok {
			cards = append(cards, card)
		}
	}
	return cards
}

func parseCardDOM(section browser.Element) (NoteCard, bool) {
	link := section.Query("a")
	if link == nil {
		return NoteCard{}, false
	}
	href := strings.ReplaceAll(link.Attribute("href"), "/search_result/", "/explore/")
	noteLink := ResolveURL(href)
	noteID := ExtractNoteID(href)
	if noteLink == "" || noteID == "" {
		return NoteCard{}, false
	}

	card := NoteCard{NoteID: noteID, NoteLink: noteLink}
	if footer := section.Query(".footer"); footer != nil {
		if titleEl := footer.Query(".title"); titleEl != nil {
			card.Title = strings.TrimSpace(titleEl.Text())
		}
		if wrapper := footer.Query(".author-wrapper"); wrapper != nil {
			if authorEl := wrapper.Query(".author"); authorEl != nil {
				card.Author = strings.TrimSpace(authorEl.Text())
			}
			if authorLink := wrapper.Query("a"); authorLink != nil {
				card.AuthorLink = ResolveURL(authorLink.Attribute("href"))
			}
		}
		if likeEl := footer.Query(".like-wrapper"); likeEl != nil {
			if span := likeEl.Query("span"); span != nil {
				card.Likes = strings.TrimSpace(span.Text())
			} else {
				card.Likes = strings.TrimSpace(likeEl.Text())
			}
		}
	}
	return card, true
}

// scrollDown rola até o fim da página com um delay aleatório antes, imita o
// ritmo humano e dá tempo do lazy-load renderizar o próximo lote de cards.
func (s *Searcher) scrollDown() {
	delay := s.minDelay + time.Duration(rand.Int63n(int64(s.maxDelay-s.minDelay)+1))
	s.sleep(delay)
	if err := s.page.ScrollToBottom(); err != nil {
		log.Printf("[Searcher] Erro no scroll: %v", err)
	}
}
