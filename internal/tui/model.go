// Package tui is the interactive terminal front end: query box, result cards,
// corpus preview and the simulated word chart.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kailas-cloud/semsearch/internal/domain"
	"github.com/kailas-cloud/semsearch/internal/present"
	searchuc "github.com/kailas-cloud/semsearch/internal/usecase/search"
)

// DefaultQuery pre-fills the query box.
const DefaultQuery = "inteligencia artificial en el aprendizaje"

// Searcher is the TUI-facing subset of the search service.
type Searcher interface {
	Search(ctx context.Context, space domain.Space, query string, k int) (searchuc.Response, error)
	Explain(query string) (present.TokenChart, error)
	Preview(offset, limit int) []present.PreviewRow
	Spaces() []searchuc.SpaceInfo
	RowCount() int
}

// Options tunes the model.
type Options struct {
	K            int
	PreviewRows  int
	QueryTimeout time.Duration
}

// searchResultMsg carries the result of an async search.
type searchResultMsg struct {
	resp  searchuc.Response
	chart present.TokenChart
	err   error
}

// cancelHolder survives model copies so ctrl+c can cancel an in-flight search.
type cancelHolder struct {
	cancel context.CancelFunc
}

// Model is the Bubble Tea model for the search UI.
type Model struct {
	svc       Searcher
	opts      Options
	spaces    []searchuc.SpaceInfo
	spaceIdx  int
	input     textinput.Model
	viewport  viewport.Model
	preview   table.Model
	spinner   spinner.Model
	cards     []present.Card
	chart     present.TokenChart
	status    string
	searching bool
	ready     bool
	width     int
	cancelCtx *cancelHolder
}

// New creates a TUI model. The corpus preview is loaded eagerly since the corpus is small.
func New(svc Searcher, opts Options) Model {
	if opts.K <= 0 {
		opts.K = searchuc.DefaultK
	}
	if opts.PreviewRows <= 0 {
		opts.PreviewRows = 10
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 5 * time.Minute
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Escribe tu búsqueda y presiona Enter"
	ti.SetValue(DefaultQuery)
	ti.Focus()
	ti.CharLimit = 0

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	return Model{
		svc:       svc,
		opts:      opts,
		spaces:    svc.Spaces(),
		input:     ti,
		viewport:  viewport.New(0, 0),
		preview:   newPreviewTable(svc.Preview(0, opts.PreviewRows), opts.PreviewRows),
		spinner:   sp,
		status:    fmt.Sprintf("%d documentos cargados. Tab cambia el modo, Enter busca.", svc.RowCount()),
		cancelCtx: &cancelHolder{},
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.cancelCtx.cancel != nil {
				m.cancelCtx.cancel()
			}
			return m, tea.Quit
		case tea.KeyTab:
			if len(m.spaces) > 0 && !m.searching {
				m.spaceIdx = (m.spaceIdx + 1) % len(m.spaces)
				m.status = "Modo: " + m.spaces[m.spaceIdx].Label
			}
			return m, nil
		case tea.KeyEnter:
			return m.startSearch()
		case tea.KeyUp:
			m.viewport.LineUp(1)
			return m, nil
		case tea.KeyDown:
			m.viewport.LineDown(1)
			return m, nil
		}

	case searchResultMsg:
		m.searching = false
		m.cancelCtx.cancel = nil
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			return m, nil
		}
		m.cards = msg.resp.Cards
		m.chart = msg.chart
		m.status = fmt.Sprintf("%d resultados en %s (%s)",
			len(msg.resp.Cards), msg.resp.Latency.Round(time.Millisecond), msg.resp.Space.Label())
		m.viewport.SetContent(renderCards(m.cards))
		m.viewport.GotoTop()
		return m, nil

	case spinner.TickMsg:
		if m.searching {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) startSearch() (tea.Model, tea.Cmd) {
	query := strings.TrimSpace(m.input.Value())
	if query == "" || m.searching || len(m.spaces) == 0 {
		return m, nil
	}
	space, err := domain.ParseSpace(m.spaces[m.spaceIdx].Name)
	if err != nil {
		m.status = "Error: " + err.Error()
		return m, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opts.QueryTimeout)
	m.cancelCtx.cancel = cancel
	m.searching = true
	m.status = "Buscando..."

	svc, k := m.svc, m.opts.K
	run := func() tea.Msg {
		defer cancel()
		resp, err := svc.Search(ctx, space, query, k)
		if err != nil {
			return searchResultMsg{err: err}
		}
		chart, err := svc.Explain(query)
		return searchResultMsg{resp: resp, chart: chart, err: err}
	}
	return m, tea.Batch(m.spinner.Tick, run)
}

func (m *Model) resize(width, height int) {
	_, fh := boxStyle.GetFrameSize()
	left := max(30, width*3/5)
	reserved := 3 + fh + 1 // header, mode, status, input box
	m.viewport.Width = left - 4
	m.viewport.Height = max(3, height-reserved-fh)
	m.viewport.SetContent(renderCards(m.cards))
	m.preview.SetWidth(max(20, width-left-4))
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Cargando..."
	}

	header := titleStyle.Render("Buscador semántico SciELO México")
	mode := "Modo: sin espacios configurados"
	if len(m.spaces) > 0 {
		mode = "Modo: " + modeStyle.Render(m.spaces[m.spaceIdx].Label) + mutedStyle.Render("  (tab para cambiar)")
	}

	left := boxStyle.Width(m.viewport.Width + 2).Render(m.viewport.View())
	right := joinVertical(
		sectionStyle.Render("Vista previa del corpus"),
		m.preview.View(),
		"",
		renderChart(m.chart, max(10, m.width-m.viewport.Width-30)),
	)
	body := joinHorizontal(left, boxStyle.Render(right))

	status := statusStyle.Render(m.status)
	if m.searching {
		status = m.spinner.View() + " " + status
	}
	return joinVertical(header, mode, body, boxStyle.Render(m.input.View()), status)
}
