package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marshallshelly/pebble-study/internal/models"
	"github.com/marshallshelly/pebble-study/pkg/builder"
)

var testIdols = []models.Idol{
	{ID: 2, IdolName: "사쿠라", Age: 26},
	{ID: 1, IdolName: "김채원", Age: 24},
	{ID: 3, IdolName: "가을", Age: 22},
	{ID: 4, IdolName: "리즈", Age: 20},
	{ID: 5, IdolName: "장원영", Age: 20},
}

// fakeLoader pages testIdols, which are already sorted by age descending.
func fakeLoader(requests *[]builder.Pageable) IdolLoader {
	return func(_ context.Context, p builder.Pageable) (*builder.Page[models.Idol], error) {
		*requests = append(*requests, p)
		start := min(p.Offset(), len(testIdols))
		end := min(start+p.Size, len(testIdols))
		return builder.NewPage(testIdols[start:end], p, int64(len(testIdols))), nil
	}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// step applies msg and feeds any resulting page load back into the model.
func step(t *testing.T, m BrowseModel, msg tea.Msg) (BrowseModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(BrowseModel)
	if cmd == nil {
		return m, nil
	}
	if loaded, ok := cmd().(pageLoadedMsg); ok {
		next, _ = m.Update(loaded)
		return next.(BrowseModel), cmd
	}
	return m, cmd
}

func TestBrowseModel_Paging(t *testing.T) {
	var requests []builder.Pageable
	m := NewBrowseModel(fakeLoader(&requests), builder.PageRequest(0, 2))

	loaded := m.Init()()
	m, _ = step(t, m, loaded)
	require.NotNil(t, m.page)
	assert.Equal(t, []builder.OrderBy{builder.DescBy("Age")}, []builder.OrderBy(requests[0].Sort))
	assert.Equal(t, "사쿠라", m.page.Content[0].IdolName)
	assert.Len(t, m.table.Rows(), 2)
	assert.Contains(t, m.View(), "page 1/3")

	m, _ = step(t, m, runes("p"))
	assert.Len(t, requests, 1, "no previous page on page 0")

	m, _ = step(t, m, runes("n"))
	m, _ = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	assert.Equal(t, 2, m.request.Page)
	assert.Equal(t, "장원영", m.page.Content[0].IdolName)

	m, _ = step(t, m, runes("n"))
	assert.Len(t, requests, 3, "no next page on the last page")

	m, _ = step(t, m, runes("p"))
	assert.Equal(t, 1, m.request.Page)
}

func TestBrowseModel_SortAndQuit(t *testing.T) {
	var requests []builder.Pageable
	m := NewBrowseModel(fakeLoader(&requests), builder.PageRequest(1, 2, builder.AscBy("IdolName")))

	m, _ = step(t, m, runes("s"))
	require.Len(t, requests, 1)
	assert.Equal(t, 0, requests[0].Page)
	assert.Equal(t, builder.Desc, requests[0].Sort[0].Direction)

	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestBrowseModel_LoadError(t *testing.T) {
	m := NewBrowseModel(func(context.Context, builder.Pageable) (*builder.Page[models.Idol], error) {
		return nil, errors.New("connection refused")
	}, builder.PageRequest(0, 5))

	m, _ = step(t, m, m.Init()())
	assert.Nil(t, m.page)
	assert.Contains(t, m.View(), "connection refused")
	assert.Contains(t, m.View(), "loading...")
}

func TestToggleSort(t *testing.T) {
	p := builder.PageRequest(3, 5, builder.DescBy("age"), builder.AscBy("idol_name"))
	toggled := toggleSort(p)

	assert.Zero(t, toggled.Page)
	assert.Equal(t, builder.AscBy("age"), toggled.Sort[0])
	assert.Equal(t, builder.AscBy("idol_name"), toggled.Sort[1])
	assert.Equal(t, builder.Desc, p.Sort[0].Direction, "the original request is not modified")
	assert.Equal(t, builder.DescBy("age"), toggleSort(toggled).Sort[0])
}

func TestIdolRows(t *testing.T) {
	group := int64(7)
	rows := idolRows([]models.Idol{
		{ID: 1, IdolName: "가을", Age: 22, GroupID: &group},
		{ID: 9, IdolName: "아이유", Age: 31},
	})
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"1", "가을", "22", "7"}, []string(rows[0]))
	assert.Equal(t, "-", rows[1][3])
}

func TestConfirmationDialog(t *testing.T) {
	d := NewConfirmationDialog("Drop schema", "Drop every table?")
	assert.False(t, d.YesSelected)

	next, cmd := d.Update(tea.KeyMsg{Type: tea.KeyLeft})
	d = next.(ConfirmationDialog)
	assert.True(t, d.YesSelected)
	assert.Nil(t, cmd)

	next, cmd = d.Update(tea.KeyMsg{Type: tea.KeyEnter})
	d = next.(ConfirmationDialog)
	assert.True(t, d.Confirmed())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	next, _ = NewConfirmationDialog("t", "m").Update(runes("y"))
	assert.True(t, next.(ConfirmationDialog).Confirmed())

	next, _ = NewConfirmationDialog("t", "m").Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, next.(ConfirmationDialog).Confirmed())
	assert.Contains(t, d.View(), "Drop every table?")
}
