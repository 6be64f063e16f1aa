package browser

import "time"

// Element é a superfície mínima de um elemento DOM que o pipeline consome.
// Leituras que falham degradam para string vazia, a extração nunca deve
// quebrar por causa de um seletor que não bateu.
type Element interface {
	Text() string
	Attribute(name string) string
	Click() error
	Query(selector string) Element
	QueryAll(selector string) []Element
}

// PageControl abstrai a aba lógica do browser que o pipeline dirige.
// Todas as chamadas são bloqueantes com timeout interno; o pipeline é
// sequencial e nunca emite navegação/script concorrente contra a mesma aba.
//
// RunScript executa um script auto-contido (arrow function) e retorna o valor
// stringificado; "" representa o null do script. Erros só devem sair daqui
// quando a camada de transporte (DevTools) cair, misses ordinários de
// extração são responsabilidade do próprio script, que retorna null.
type PageControl interface {
	Navigate(url string) error
	CurrentURL() string
	RunScript(js string) (string, error)
	Query(selector string, timeout time.Duration) Element
	QueryAll(selector string, timeout time.Duration) []Element
	ScrollToBottom() error
	// Reconnect derruba e readquire a sessão do browser. Idempotente se
	// chamado com a sessão ainda viva.
	Reconnect() error
}
