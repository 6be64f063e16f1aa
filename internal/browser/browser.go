package browser

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

const (
	defaultScriptTimeout = 15 * time.Second
	defaultNavTimeout    = 30 * time.Second
)

// Options configura o Manager do browser.
type Options struct {
	DebugPort   int    // porta fixa de remote debugging, permite reconectar no mesmo browser
	UserDataDir string // perfil persistente (cookies / sessão de login)
	Headless    bool
	MonitorAddr string // endereço do ServeMonitor do rod ("" desliga)
	LoginWait   time.Duration
}

// Manager controla uma instância Chromium via rod.
//
// A porta de debugging é fixa: se já existe um browser rodando nela, o Manager
// reconecta; senão, lança um novo com o perfil persistente. Disconnect solta
// as referências SEM fechar o browser, a sessão de login sobrevive entre runs.
type Manager struct {
	opts    Options
	browser *rod.Browser
	page    *rod.Page
}

func NewManager(opts Options) *Manager {
	if opts.DebugPort == 0 {
		opts.DebugPort = 9515
	}
	if opts.LoginWait == 0 {
		opts.LoginWait = 20 * time.Second
	}
	return &Manager{opts: opts}
}

func (m *Manager) connect() (*rod.Browser, error) {
	if m.browser != nil {
		return m.browser, nil
	}

	addr := fmt.Sprintf("127.0.0.1:%d", m.opts.DebugPort)
	if u, err := launcher.ResolveURL(addr); err == nil {
		b := rod.New().ControlURL(u)
		if err := b.Connect(); err == nil {
			log.Printf("[Browser] Reconectado ao browser existente na porta %d", m.opts.DebugPort)
			m.browser = b
			return b, nil
		}
	}

	log.Println("[Browser] Nenhum browser encontrado. Lançando um novo...")
	path, _ := launcher.LookPath()

	l := launcher.New().
		Bin(path).
		Leakless(false).
		Set(flags.RemoteDebuggingPort, strconv.Itoa(m.opts.DebugPort)).
		Set("disable-blink-features", "AutomationControlled")

	if m.opts.UserDataDir != "" {
		l = l.UserDataDir(m.opts.UserDataDir)
	}
	if m.opts.Headless {
		l = l.Set("headless", "new")
	} else {
		l = l.Headless(false)
	}

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("erro ao iniciar browser: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("erro conectando no browser: %w", err)
	}

	if m.opts.MonitorAddr != "" {
		go b.ServeMonitor(m.opts.MonitorAddr)
	}

	m.browser = b
	return b, nil
}

// ensurePage retorna a aba corrente, criando browser e página stealth se preciso.
func (m *Manager) ensurePage() (*rod.Page, error) {
	if m.page != nil {
		return m.page, nil
	}
	b, err := m.connect()
	if err != nil {
		return nil, err
	}
	page, err := stealth.Page(b)
	if err != nil {
		return nil, fmt.Errorf("erro criando pagina stealth: %w", err)
	}
	m.page = page
	return page, nil
}

// ----- PageControl -----

func (m *Manager) Navigate(url string) error {
	page, err := m.ensurePage()
	if err != nil {
		return err
	}
	if err := page.Timeout(defaultNavTimeout).Navigate(url); err != nil {
		return err
	}
	page.Timeout(defaultNavTimeout).WaitLoad()
	return nil
}

func (m *Manager) CurrentURL() string {
	page, err := m.ensurePage()
	if err != nil {
		return ""
	}
	info, err := page.Info()
	if err != nil || info == nil {
		return ""
	}
	return info.URL
}

func (m *Manager) RunScript(js string) (string, error) {
	page, err := m.ensurePage()
	if err != nil {
		return "", err
	}
	res, err := page.Timeout(defaultScriptTimeout).Eval(js)
	if err != nil {
		return "", err
	}
	if res == nil || res.Value.Nil() {
		return "", nil
	}
	return res.Value.Str(), nil
}

func (m *Manager) Query(selector string, timeout time.Duration) Element {
	page, err := m.ensurePage()
	if err != nil {
		return nil
	}
	el, err := page.Timeout(timeout).Element(selector)
	if err != nil || el == nil {
		return nil
	}
	return rodElement{el: el}
}

func (m *Manager) QueryAll(selector string, timeout time.Duration) []Element {
	page, err := m.ensurePage()
	if err != nil {
		return nil
	}
	els, err := page.Timeout(timeout).Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, rodElement{el: el})
	}
	return out
}

func (m *Manager) ScrollToBottom() error {
	page, err := m.ensurePage()
	if err != nil {
		return err
	}
	_, err = page.Timeout(defaultScriptTimeout).Eval(`() => window.scrollTo(0, document.body.scrollHeight)`)
	return err
}

// Reconnect zera as referências internas e readquire browser + aba.
// Usado quando a conexão DevTools cai no meio do crawl.
func (m *Manager) Reconnect() error {
	log.Println("[Browser] Tentando reconectar ao browser...")
	m.page = nil
	m.browser = nil
	if _, err := m.ensurePage(); err != nil {
		return fmt.Errorf("falha ao reconectar: %w", err)
	}
	log.Println("[Browser] Reconectado com sucesso.")
	return nil
}

// ----- Login e ciclo de vida -----

// Login abre a home do XHS e espera o usuário escanear o QR code.
// Só é necessário no primeiro run; depois a sessão persiste no perfil.
func (m *Manager) Login(homeURL string) error {
	if err := m.Navigate(homeURL); err != nil {
		return err
	}
	log.Printf("[Browser] Escaneie o QR code para logar (aguardando %s)...", m.opts.LoginWait)
	time.Sleep(m.opts.LoginWait)
	if m.IsLoggedIn() {
		log.Println("[Browser] ✅ Login ok! A sessão persiste entre execuções.")
	} else {
		log.Println("[Browser] ⚠️  Login pode não ter completado. Verifique manualmente.")
	}
	return nil
}

// IsLoggedIn verifica a presença do indicador de usuário logado.
func (m *Manager) IsLoggedIn() bool {
	if el := m.Query(".user-info", 3*time.Second); el != nil {
		return true
	}
	// Sem .user-info: se também não há botão de login, assume logado.
	return m.Query(".login-btn", 2*time.Second) == nil
}

// Disconnect solta as referências sem fechar o browser, ele continua rodando
// em background para reutilizar a sessão de login no próximo run.
func (m *Manager) Disconnect() {
	log.Println("[Browser] Desconectando (browser continua aberto para reuso da sessão).")
	m.page = nil
	m.browser = nil
}

// Close encerra de fato o processo do browser.
func (m *Manager) Close() {
	if m.browser == nil {
		if _, err := m.connect(); err != nil {
			log.Println("[Browser] Nenhum browser para fechar.")
			return
		}
	}
	log.Println("[Browser] Fechando browser...")
	if err := m.browser.Close(); err != nil {
		log.Printf("[Browser] Erro fechando browser: %v", err)
	}
	m.browser = nil
	m.page = nil
}

// rodElement adapta *rod.Element para a interface Element.
type rodElement struct {
	el *rod.Element
}

func (e rodElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (e rodElement) Attribute(name string) string {
	attr, err := e.el.Attribute(name)
	if err != nil || attr == nil {
		return ""
	}
	return *attr
}

func (e rodElement) Click() error {
	return e.el.Click(proto.InputMouseButtonLeft, 1)
}

func (e rodElement) Query(selector string) Element {
	el, err := e.el.Timeout(2 * time.Second).Element(selector)
	if err != nil || el == nil {
		return nil
	}
	return rodElement{el: el}
}

func (e rodElement) QueryAll(selector string) []Element {
	els, err := e.el.Timeout(2 * time.Second).Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, rodElement{el: el})
	}
	return out
}
