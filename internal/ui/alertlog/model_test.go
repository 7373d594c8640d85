package alertlog

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fms-tracker/internal/keys"
	"github.com/nhle/fms-tracker/internal/model"
)

func TestLoadedNewestFirst(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 20)

	m, _ = m.Update(LoadedMsg{Entries: []model.EmailLogEntry{
		{TaskID: 1, OrderID: "ORD-1", StepName: "Receive Order", AlertSentTime: "not a time"},
		{TaskID: 2, OrderID: "ORD-2", StepName: "Sampling", AlertSentTime: "also not a time"},
	}})

	rows := m.table.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "ORD-2", rows[0][0])
	assert.Equal(t, "2", rows[0][1])
	assert.Equal(t, "also not a time", rows[0][3])
	assert.Contains(t, m.View(), "Alert Log (2 sent)")
}

func TestEmptyLog(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 20)
	m, _ = m.Update(LoadedMsg{})
	assert.Contains(t, m.View(), "No delay alerts have been sent.")
}

func TestBackCloses(t *testing.T) {
	m := New(nil, keys.DefaultKeyMap(), 100, 20)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, CloseMsg{}, cmd())
}
