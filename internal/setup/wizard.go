// Package setup is the interactive first-run wizard that writes the config
// file.
package setup

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cinechat/internal/config"
	"cinechat/internal/llm"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	titleStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("62")).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1).
			Bold(true)

	docStyle = lipgloss.NewStyle().Padding(1, 2)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(lipgloss.Color("205")).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().Padding(0, 1)
)

type state int

const (
	stateProvider state = iota
	stateAPIKey
	stateModel
	stateBaseURL
	stateSaving
	stateDone
)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title }

type savedMsg struct{ err error }

// ErrCancelled is returned by Run when the wizard exits before saving.
var ErrCancelled = errors.New("setup cancelled")

// Model is the bubbletea model of the wizard.
type Model struct {
	state    state
	cfg      config.Config
	path     string
	list     list.Model
	input    textinput.Model
	err      error
	quitting bool
	width    int
	height   int

	// ollamaModels lists locally installed models; replaced in tests.
	ollamaModels func(baseURL string) []list.Item
}

func NewModel(base config.Config, path string) Model {
	providers := []list.Item{
		item{title: string(llm.ProviderOpenAI), desc: "OpenAI or any OpenAI-compatible proxy"},
		item{title: string(llm.ProviderOllama), desc: "Local execution via Ollama"},
		item{title: string(llm.ProviderAnthropic), desc: "Claude models (requires API key)"},
		item{title: string(llm.ProviderGemini), desc: "Google Gemini models (requires API key)"},
	}
	l := list.New(providers, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Select AI Provider"
	l.SetShowHelp(false)

	ti := textinput.New()
	ti.Focus()

	return Model{
		state:        stateProvider,
		cfg:          base,
		path:         path,
		list:         l,
		input:        ti,
		ollamaModels: fetchOllamaModels,
	}
}

// Config returns the settings collected so far.
func (m Model) Config() config.Config { return m.cfg }

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || (msg.String() == "q" && m.usesList()) {
			m.quitting = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(max(msg.Width-10, 20), max(msg.Height-12, 5))
	case savedMsg:
		m.err = msg.err
		m.state = stateDone
		return m, nil
	}

	entered := false
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "enter" {
		entered = true
	}

	var cmd tea.Cmd
	switch m.state {
	case stateProvider:
		m.list, cmd = m.list.Update(msg)
		if entered {
			if i, ok := m.list.SelectedItem().(item); ok {
				m.selectProvider(llm.Provider(i.title))
			}
		}

	case stateAPIKey:
		m.input, cmd = m.input.Update(msg)
		if entered {
			m.cfg.APIKey = strings.TrimSpace(m.input.Value())
			m.showModels()
		}

	case stateModel:
		m.list, cmd = m.list.Update(msg)
		if entered {
			if i, ok := m.list.SelectedItem().(item); ok {
				m.cfg.Model = i.title
				m.state = stateBaseURL
				m.input.Prompt = "Base URL (empty for the provider default): "
				m.input.EchoMode = textinput.EchoNormal
				m.input.SetValue(m.cfg.BaseURL)
			}
		}

	case stateBaseURL:
		m.input, cmd = m.input.Update(msg)
		if entered {
			m.cfg.BaseURL = strings.TrimSpace(m.input.Value())
			m.state = stateSaving
			return m, m.save()
		}

	case stateDone:
		if _, ok := msg.(tea.KeyMsg); ok {
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, cmd
}

func (m *Model) selectProvider(p llm.Provider) {
	if p != m.cfg.Provider {
		m.cfg.BaseURL = ""
	}
	m.cfg.Provider = p
	switch p {
	case llm.ProviderOllama:
		if m.cfg.BaseURL == "" {
			m.cfg.BaseURL = "http://localhost:11434"
		}
		m.showModels()
	case llm.ProviderOpenAI:
		if m.cfg.BaseURL == "" {
			m.cfg.BaseURL = "http://0.0.0.0:4000"
		}
		fallthrough
	default:
		m.state = stateAPIKey
		m.input.Prompt = fmt.Sprintf("%s API key (empty to use the environment): ", p)
		m.input.EchoMode = textinput.EchoPassword
		m.input.SetValue("")
	}
}

func (m *Model) showModels() {
	var models []list.Item
	switch m.cfg.Provider {
	case llm.ProviderOllama:
		models = m.ollamaModels(m.cfg.BaseURL)
	case llm.ProviderOpenAI:
		models = []list.Item{
			item{title: "mistral", desc: "Served by the local LiteLLM proxy"},
			item{title: "gpt-4o", desc: "Best OpenAI model"},
			item{title: "gpt-4o-mini", desc: "Fast OpenAI model"},
		}
	case llm.ProviderAnthropic:
		models = []list.Item{item{title: "claude-3-5-sonnet-latest", desc: "Best Anthropic model"}}
	default:
		models = []list.Item{
			item{title: "gemini-2.5-flash", desc: "Fast Google model"},
			item{title: "gemini-2.5-pro", desc: "Powerful Google model"},
		}
	}
	m.list.SetItems(models)
	m.list.Select(0)
	m.list.Title = "Select Model"
	m.state = stateModel
}

func (m Model) save() tea.Cmd {
	cfg, path := m.cfg, m.path
	return func() tea.Msg {
		if err := cfg.Validate(); err != nil {
			return savedMsg{err: err}
		}
		return savedMsg{err: cfg.Save(path)}
	}
}

func (m Model) usesList() bool {
	return m.state == stateProvider || m.state == stateModel
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render(" cinechat setup "))
	s.WriteString("\n\n")

	tabs := []string{"Provider", "Model", "Endpoint", "Finish"}
	current := map[state]int{stateProvider: 0, stateAPIKey: 0, stateModel: 1, stateBaseURL: 2, stateSaving: 3, stateDone: 3}[m.state]
	rendered := make([]string, len(tabs))
	for i, t := range tabs {
		if i == current {
			rendered[i] = activeTabStyle.Render(t)
		} else {
			rendered[i] = inactiveTabStyle.Render(t)
		}
	}
	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	s.WriteString("\n\n")

	switch m.state {
	case stateProvider, stateModel:
		s.WriteString(m.list.View())
	case stateAPIKey, stateBaseURL:
		s.WriteString(m.input.View() + "\n\n" + helpStyle.Render("Press enter to continue"))
	case stateSaving:
		s.WriteString("Saving configuration...")
	case stateDone:
		if m.err != nil {
			s.WriteString(errStyle.Render("Could not save: "+m.err.Error()) + "\n")
		} else {
			s.WriteString(fmt.Sprintf("Saved %s/%s to %s.\n", m.cfg.Provider, m.cfg.Model, m.path))
		}
		s.WriteString(helpStyle.Render("Press any key to exit."))
	}

	if m.state != stateDone {
		s.WriteString("\n\n" + helpStyle.Render("ctrl+c: quit • ↑/↓: navigate • enter: select"))
	}
	return docStyle.Render(s.String())
}

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

func fetchOllamaModels(baseURL string) []list.Item {
	fallback := []list.Item{item{title: "llama3.1", desc: "Default (Ollama not responding)"}}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(strings.TrimRight(baseURL, "/") + "/api/tags")
	if err != nil {
		return fallback
	}
	defer resp.Body.Close()

	var data ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil || len(data.Models) == 0 {
		return fallback
	}
	items := make([]list.Item, len(data.Models))
	for i, m := range data.Models {
		items[i] = item{title: m.Name, desc: "Local Ollama model"}
	}
	return items
}

// Run starts the wizard and returns the saved configuration.
func Run(base config.Config, path string) (config.Config, error) {
	final, err := tea.NewProgram(NewModel(base, path), tea.WithAltScreen()).Run()
	if err != nil {
		return config.Config{}, err
	}
	m := final.(Model)
	if m.state != stateDone {
		return config.Config{}, ErrCancelled
	}
	if m.err != nil {
		return config.Config{}, m.err
	}
	return m.cfg, nil
}
