package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
)

// IdolLoader fetches one page of idols.
type IdolLoader func(ctx context.Context, p builder.Pageable) (*builder.Page[models.Idol], error)

type browseKeys struct {
	Next key.Binding
	Prev key.Binding
	Sort key.Binding
	Quit key.Binding
}

func (k browseKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Prev, k.Next, k.Sort, k.Quit}
}

func (k browseKeys) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var defaultBrowseKeys = browseKeys{
	Next: key.NewBinding(key.WithKeys("n", "right", "pgdown"), key.WithHelp("n/→", "next page")),
	Prev: key.NewBinding(key.WithKeys("p", "left", "pgup"), key.WithHelp("p/←", "previous page")),
	Sort: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "toggle sort")),
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

// BrowseModel pages through idols ordered by one sort key.
type BrowseModel struct {
	load    IdolLoader
	request builder.Pageable
	page    *builder.Page[models.Idol]
	table   table.Model
	keys    browseKeys
	help    help.Model
	err     error
}

type pageLoadedMsg struct {
	page *builder.Page[models.Idol]
	err  error
}

// NewBrowseModel creates a browser starting at request.
func NewBrowseModel(load IdolLoader, request builder.Pageable) BrowseModel {
	if len(request.Sort) == 0 {
		request.Sort = builder.By(builder.DescBy("Age"))
	}
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "ID", Width: 6},
			{Title: "Name", Width: 16},
			{Title: "Age", Width: 5},
			{Title: "Group", Width: 8},
		}),
		table.WithFocused(true),
		table.WithHeight(request.Size+1),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(colorPrimary).Bold(true)
	styles.Selected = styles.Selected.Foreground(colorText).Background(colorPrimary)
	t.SetStyles(styles)

	return BrowseModel{
		load:    load,
		request: request,
		table:   t,
		keys:    defaultBrowseKeys,
		help:    help.New(),
	}
}

// Init implements tea.Model.
func (m BrowseModel) Init() tea.Cmd {
	return m.fetch()
}

func (m BrowseModel) fetch() tea.Cmd {
	load, req := m.load, m.request
	return func() tea.Msg {
		page, err := load(context.Background(), req)
		return pageLoadedMsg{page: page, err: err}
	}
}

// Update implements tea.Model.
func (m BrowseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pageLoadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.page = msg.page
			m.table.SetRows(idolRows(msg.page.Content))
			m.table.SetCursor(0)
		}
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Next):
			if m.page != nil && m.page.HasNext() {
				m.request = m.request.Next()
				return m, m.fetch()
			}
			return m, nil
		case key.Matches(msg, m.keys.Prev):
			if m.request.Page > 0 {
				m.request = m.request.Previous()
				return m, m.fetch()
			}
			return m, nil
		case key.Matches(msg, m.keys.Sort):
			m.request = toggleSort(m.request)
			return m, m.fetch()
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m BrowseModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Idols"))
	b.WriteString("\n")
	if m.err != nil {
		b.WriteString(errorStyle.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(m.table.View())
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(m.status()))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return boxStyle.Render(b.String())
}

func (m BrowseModel) status() string {
	if m.page == nil {
		return "loading..."
	}
	order := m.request.Sort[0]
	return fmt.Sprintf("page %d/%d • %d idols • sorted by %s %s",
		m.page.Number+1, max(m.page.TotalPages(), 1), m.page.TotalElements,
		order.Column, strings.ToLower(string(order.Direction)))
}

// toggleSort flips the direction of the first sort key and returns to the
// first page.
func toggleSort(p builder.Pageable) builder.Pageable {
	sort := append(builder.Sort(nil), p.Sort...)
	if sort[0].Direction == builder.Desc {
		sort[0] = builder.AscBy(sort[0].Column)
	} else {
		sort[0] = builder.DescBy(sort[0].Column)
	}
	p.Sort = sort
	p.Page = 0
	return p
}

func idolRows(idols []models.Idol) []table.Row {
	rows := make([]table.Row, len(idols))
	for i, idol := range idols {
		group := "-"
		if idol.GroupID != nil {
			group = strconv.FormatInt(*idol.GroupID, 10)
		}
		rows[i] = table.Row{strconv.FormatInt(idol.ID, 10), idol.IdolName, strconv.Itoa(idol.Age), group}
	}
	return rows
}

// Browse runs the idol browser until the user quits.
func Browse(load IdolLoader, request builder.Pageable) error {
	_, err := tea.NewProgram(NewBrowseModel(load, request), tea.WithAltScreen()).Run()
	return err
}
