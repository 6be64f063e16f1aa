package crawler

import (
	"encoding/json"
	"time"

	"redbook/internal/browser"
)

// fakePage implementa browser.PageControl em memória para os testes do
// Searcher e do Extractor.
type fakePage struct {
	navErr    error
	navigated []string

	cardBatches [][]NoteCard // uma resposta por chamada do script de cards
	cardCall    int
	cardErr     error

	stateResults []string // respostas sequenciais do script estruturado ("" = null)
	stateCall    int
	stateErr     error

	likeResult string
	likeCalls  int

	elements    map[string]*fakeElement
	elementsAll map[string][]*fakeElement

	scrolls    int
	reconnects int
}

func (p *fakePage) Navigate(url string) error {
	p.navigated = append(p.navigated, url)
	return p.navErr
}

func (p *fakePage) CurrentURL() string {
	if len(p.navigated) == 0 {
		return ""
	}
	return p.navigated[len(p.navigated)-1]
}

func (p *fakePage) RunScript(js string) (string, error) {
	switch js {
	case jsCountNoteItems:
		return "3", nil
	case jsDismissLoginModal:
		return "no_modal", nil
	case jsExtractCards:
		if p.cardErr != nil {
			return "", p.cardErr
		}
		if len(p.cardBatches) == 0 {
			return "[]", nil
		}
		idx := p.cardCall
		if idx >= len(p.cardBatches) {
			idx = len(p.cardBatches) - 1
		}
		p.cardCall++
		data, _ := json.Marshal(p.cardBatches[idx])
		return string(data), nil
	case jsExtractInitialState:
		if p.stateErr != nil {
			return "", p.stateErr
		}
		if len(p.stateResults) == 0 {
			return "", nil
		}
		idx := p.stateCall
		if idx >= len(p.stateResults) {
			idx = len(p.stateResults) - 1
		}
		p.stateCall++
		return p.stateResults[idx], nil
	case jsPerformLike:
		p.likeCalls++
		if p.likeResult == "" {
			return "no_button", nil
		}
		return p.likeResult, nil
	}
	return "", nil
}

func (p *fakePage) Query(selector string, timeout time.Duration) browser.Element {
	if el, ok := p.elements[selector]; ok && el != nil {
		return el
	}
	return nil
}

func (p *fakePage) QueryAll(selector string, timeout time.Duration) []browser.Element {
	return asElements(p.elementsAll[selector])
}

func (p *fakePage) ScrollToBottom() error {
	p.scrolls++
	return nil
}

func (p *fakePage) Reconnect() error {
	p.reconnects++
	return nil
}

// fakeElement implementa browser.Element com filhos estáticos.
type fakeElement struct {
	text        string
	attrs       map[string]string
	children    map[string]*fakeElement
	childrenAll map[string][]*fakeElement
	clicks      int
}

func (e *fakeElement) Text() string { return e.text }

func (e *fakeElement) Attribute(name string) string { return e.attrs[name] }

func (e *fakeElement) Click() error {
	e.clicks++
	return nil
}

func (e *fakeElement) Query(selector string) browser.Element {
	if el, ok := e.children[selector]; ok && el != nil {
		return el
	}
	return nil
}

func (e *fakeElement) QueryAll(selector string) []browser.Element {
	return asElements(e.childrenAll[selector])
}

func asElements(els []*fakeElement) []browser.Element {
	out := make([]browser.Element, 0, len(els))
	for _, el := range els {
		out = append(out, el)
	}
	return out
}
