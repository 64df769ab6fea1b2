package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"steerd.dev/steerd/internal/ctlclient"
)

// refreshInterval is how often the console polls /api/network on its own,
// between explicit "r" refreshes.
const refreshInterval = 5 * time.Second

type row struct {
	ssid     string
	bssid    string
	client   string
	ht, vht  bool
	chanUtil uint8
}

// networkMsg carries a freshly fetched network overview, or an error.
type networkMsg struct {
	rows []row
	err  error
}

// Model is the steerctl console: a single polling table view over
// GET /api/network.
type Model struct {
	client *ctlclient.Client
	table  table.Model
	err    error
	width  int
	height int
}

// New builds a console Model against an already-constructed RPC client.
func New(client *ctlclient.Client) Model {
	columns := []table.Column{
		{Title: "SSID", Width: 16},
		{Title: "BSSID", Width: 18},
		{Title: "Client", Width: 18},
		{Title: "HT", Width: 4},
		{Title: "VHT", Width: 4},
		{Title: "ChanUtil", Width: 9},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(16),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.Bold(true).Foreground(colorAccent)
	s.Selected = s.Selected.Foreground(lipgloss.Color("0")).Background(colorAccent)
	t.SetStyles(s)

	return Model{client: client, table: t}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(fetchNetwork(m.client), tickRefresh())
}

func tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

type tickMsg struct{}

func fetchNetwork(client *ctlclient.Client) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		reply, err := client.Network(ctx)
		if err != nil {
			return networkMsg{err: err}
		}
		var rows []row
		for ssid, byBSSID := range reply {
			for bssid, ap := range byBSSID {
				if len(ap.Clients) == 0 {
					rows = append(rows, row{ssid: ssid, bssid: bssid, ht: ap.HT, vht: ap.VHT, chanUtil: ap.ChannelUtilization})
					continue
				}
				for _, c := range ap.Clients {
					rows = append(rows, row{ssid: ssid, bssid: bssid, client: c.Addr, ht: ap.HT, vht: ap.VHT, chanUtil: ap.ChannelUtilization})
				}
			}
		}
		return networkMsg{rows: rows}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 6)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			return m, fetchNetwork(m.client)
		}

	case tickMsg:
		return m, tea.Batch(fetchNetwork(m.client), tickRefresh())

	case networkMsg:
		m.err = msg.err
		if msg.err == nil {
			rows := make([]table.Row, len(msg.rows))
			for i, r := range msg.rows {
				rows[i] = table.Row{r.ssid, r.bssid, r.client, boolMark(r.ht), boolMark(r.vht), fmt.Sprintf("%d", r.chanUtil)}
			}
			m.table.SetRows(rows)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func boolMark(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (m Model) View() string {
	header := styleTitle.Render("steerctl — network overview") + "  " + styleMuted.Render("(r: refresh, q: quit)")
	body := m.table.View()
	footer := styleMuted.Render(fmt.Sprintf("%d rows", len(m.table.Rows())))
	if m.err != nil {
		footer = styleAlert.Render("error: " + m.err.Error())
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
