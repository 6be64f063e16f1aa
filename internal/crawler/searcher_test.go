package crawler

import (
	"errors"
	"testing"
	"time"
)

func newTestSearcher(page *fakePage) *Searcher {
	s := NewSearcher(page, 0, time.Millisecond)
	s.sleep = func(time.Duration) {}
	return s
}

func TestCollectCardsDedupEOrdem(t *testing.T) {
	page := &fakePage{
		cardBatches: [][]NoteCard{
			{{NoteID: "a", Title: "primeira"}, {NoteID: "b", Title: "segunda"}},
			// O scroll re-renderiza os mesmos cards mais os novos
			{{NoteID: "b", Title: "segunda"}, {NoteID: "c", Title: "terceira"}},
		},
	}
	s := newTestSearcher(page)

	cards := s.CollectCards(2, 10)

	if len(cards) != 3 {
		t.Fatalf("esperava 3 cards únicos, veio %d", len(cards))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if cards[i].NoteID != id {
			t.Errorf("posição %d: esperava %q (ordem de primeira aparição), veio %q", i, id, cards[i].NoteID)
		}
	}
}

func TestCollectCardsRespeitaLimite(t *testing.T) {
	page := &fakePage{
		cardBatches: [][]NoteCard{
			{{NoteID: "a"}, {NoteID: "b"}, {NoteID: "c"}},
		},
	}
	s := newTestSearcher(page)

	cards := s.CollectCards(5, 2)

	if len(cards) != 2 {
		t.Fatalf("esperava o corte em 2 cards, veio %d", len(cards))
	}
	if page.scrolls != 0 {
		t.Errorf("limite atingido no primeiro lote não devia rolar a página (%d scrolls)", page.scrolls)
	}
}

func TestCollectCardsIgnoraSemID(t *testing.T) {
	page := &fakePage{
		cardBatches: [][]NoteCard{
			{{NoteID: "", Title: "quebrado"}, {NoteID: "a"}},
		},
	}
	s := newTestSearcher(page)

	cards := s.CollectCards(1, 10)
	if len(cards) != 1 || cards[0].NoteID != "a" {
		t.Errorf("card sem note_id devia ser descartado: %+v", cards)
	}
}

func TestCollectCardsFallbackDOM(t *testing.T) {
	sectionEl := &fakeElement{
		children: map[string]*fakeElement{
			"a": {attrs: map[string]string{"href": "/search_result/abc123?xsec_token=TOK"}},
			".footer": {
				children: map[string]*fakeElement{
					".title": {text: " Café da manhã "},
					".author-wrapper": {
						children: map[string]*fakeElement{
							".author": {text: "maria"},
							"a":       {attrs: map[string]string{"href": "/user/profile/u1"}},
						},
					},
					".like-wrapper": {
						children: map[string]*fakeElement{
							"span": {text: "1.2万"},
						},
					},
				},
			},
		},
	}

	page := &fakePage{
		cardErr: errors.New("websocket disconnected"),
		elements: map[string]*fakeElement{
			".feeds-page": {},
		},
		elementsAll: map[string][]*fakeElement{
			".note-item": {sectionEl},
		},
	}
	s := newTestSearcher(page)

	cards := s.CollectCards(1, 10)
	if len(cards) != 1 {
		t.Fatalf("fallback DOM devia achar 1 card, veio %d", len(cards))
	}
	card := cards[0]
	if card.NoteID != "abc123" {
		t.Errorf("note_id errado: %q", card.NoteID)
	}
	if card.NoteLink != BaseURL+"/explore/abc123?xsec_token=TOK" {
		t.Errorf("link devia ser reescrito para /explore/ e absoluto: %q", card.NoteLink)
	}
	if card.Title != "Café da manhã" || card.Author != "maria" || card.Likes != "1.2万" {
		t.Errorf("campos do footer errados: %+v", card)
	}
}
