package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wyemhu12/vikini-sub002/metrics"
)

// StatsModel is a Bubble Tea model for stats views.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_metrics":
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsMetrics() string {
	data, ok := m.data.(*metrics.Snapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Server Metrics"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s  %s %s  %s %s\n\n",
		LabelStyle.Render("Framing:"), ValueStyle.Render(data.Framing),
		LabelStyle.Render("Storage:"), ValueStyle.Render(data.StorageBackend),
		LabelStyle.Render("Model:"), ValueStyle.Render(data.Model))

	section := func(title string, boxes ...string) {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(highlightColor).Render(title))
		b.WriteString("\n")
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
		b.WriteString("\n\n")
	}

	section("Streams",
		m.renderStatBox("Started", data.StreamsStarted, highlightColor),
		m.renderStatBox("Completed", data.StreamsCompleted, successColor),
		m.renderStatBox("Aborted", data.StreamsAborted, warningColor),
		m.renderStatBox("Failed", data.StreamsFailed, errorColor),
	)
	section("Framing",
		m.renderStatBox("Text Bytes", data.TextBytes, highlightColor),
		m.renderStatBox("Control Sent", data.ControlFramesEmitted, successColor),
		m.renderStatBox("Control Dropped", data.ControlFramesDropped, errorColor),
		m.renderStatBox("Neutralised", data.MarkersNeutralised, warningColor),
	)
	section("Attachments",
		m.renderStatBox("Analyses", data.AttachmentAnalyses, highlightColor),
		m.renderStatBox("ZIP Summaries", data.ZipSummaries, successColor),
		m.renderStatBox("ZIP Failures", data.ZipParseFailures, errorColor),
	)
	section("Persistence",
		m.renderStatBox("Store OK", data.StoreWriteSuccess, successColor),
		m.renderStatBox("Store Failed", data.StoreWriteFailure, errorColor),
		m.renderStatBox("Archive OK", data.ArchiveWriteSuccess, successColor),
		m.renderStatBox("Archive Failed", data.ArchiveWriteFailure, errorColor),
	)
	section("Notifications",
		m.renderStatBox("Published", data.AdapterPublishOK, successColor),
		m.renderStatBox("Failed", data.AdapterPublishFailed, errorColor),
	)

	if len(data.ZipWarningsByCode) > 0 {
		codes := make([]string, 0, len(data.ZipWarningsByCode))
		for code := range data.ZipWarningsByCode {
			codes = append(codes, code)
		}
		sort.Strings(codes)
		b.WriteString(LabelStyle.Render("ZIP warnings:"))
		b.WriteString("\n")
		for _, code := range codes {
			fmt.Fprintf(&b, "  %s %s\n", WarningCodeStyle(code).Render(code), ValueStyle.Render(fmt.Sprintf("%d", data.ZipWarningsByCode[code])))
		}
	}

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
