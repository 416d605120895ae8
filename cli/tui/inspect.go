package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wyemhu12/vikini-sub002/cli/reader"
	"github.com/wyemhu12/vikini-sub002/types"
)

// headerLines is the space reserved above the viewport.
const headerLines = 2

// InspectModel is a Bubble Tea model for inspect views. The body scrolls in
// a viewport since ZIP summaries and stream replays are often taller than
// the terminal.
type InspectModel struct {
	viewType string
	data     any
	width    int
	height   int
	viewport viewport.Model
	ready    bool
	quitting bool
}

// NewInspectModel creates a new inspect model.
func NewInspectModel(viewType string, data any) InspectModel {
	return InspectModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m InspectModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m InspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		bodyHeight := max(msg.Height-headerLines-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, bodyHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = bodyHeight
		}
		m.viewport.SetContent(m.body())
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m InspectModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return m.body() + "\n" + HelpStyle.Render("Press q or Ctrl+C to quit")
	}
	help := HelpStyle.Render(fmt.Sprintf("%3.f%%  ↑/↓ scroll, q quit", m.viewport.ScrollPercent()*100))
	return m.title() + "\n" + m.viewport.View() + "\n" + help
}

func (m InspectModel) title() string {
	switch m.viewType {
	case "inspect_zip":
		return TitleStyle.Render("ZIP Summary")
	case "inspect_replay":
		return TitleStyle.Render("Stream Replay")
	default:
		return TitleStyle.Render(m.viewType)
	}
}

func (m InspectModel) body() string {
	switch m.viewType {
	case "inspect_zip":
		return m.renderInspectZip()
	case "inspect_replay":
		return m.renderInspectReplay()
	default:
		return fmt.Sprintf("Unknown view type: %s", m.viewType)
	}
}

func field(b *strings.Builder, label, value string, style lipgloss.Style) {
	fmt.Fprintf(b, "%s %s\n", LabelStyle.Render(label+":"), style.Render(value))
}

func (m InspectModel) renderInspectZip() string {
	data, ok := m.data.(*reader.SummaryResponse)
	if !ok {
		return "Invalid data type for inspect_zip"
	}

	var b strings.Builder
	field(&b, "File", data.File, ValueStyle)
	field(&b, "Size", fmt.Sprintf("%d bytes", data.SizeBytes), ValueStyle)
	field(&b, "Entries", fmt.Sprintf("%d of %d", data.Entries, data.DeclaredEntries), ValueStyle)
	field(&b, "Snippets", fmt.Sprintf("%d", data.Snippets), ValueStyle)
	if data.ParseFailed {
		field(&b, "Status", "parse failed", ErrorStyle)
	} else if data.Truncated {
		field(&b, "Status", "truncated", WarningStyle)
	} else {
		field(&b, "Status", "complete", SuccessStyle)
	}

	if len(data.Warnings) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Warnings:"))
		b.WriteString("\n")
		for _, w := range data.Warnings {
			fmt.Fprintf(&b, "  • %s\n", WarningCodeStyle(w).Render(w))
		}
	}

	if data.Result != nil && len(data.Result.Entries) > 0 {
		b.WriteString("\n")
		b.WriteString(LabelStyle.Render("Files:"))
		b.WriteString("\n")
		for _, e := range data.Result.Entries {
			style := ValueStyle
			if e.Warning != "" {
				style = WarningStyle
			}
			fmt.Fprintf(&b, "  %s %s\n", style.Render(e.Name), StatLabelStyle.Render(fmt.Sprintf("(%d bytes)", e.UncompSize)))
		}
	}

	return BoxStyle.Render(b.String())
}

func (m InspectModel) renderInspectReplay() string {
	data, ok := m.data.(*reader.ReplayResponse)
	if !ok {
		return "Invalid data type for inspect_replay"
	}

	var b strings.Builder
	field(&b, "File", data.File, ValueStyle)
	field(&b, "Framing", data.Framing, ValueStyle)
	field(&b, "Frames", fmt.Sprintf("%d (%d control)", len(data.Frames), data.ControlFrames), ValueStyle)
	if data.ConversationID != "" {
		field(&b, "Conversation", data.ConversationID, ValueStyle)
	}
	if data.FinalTitle != "" {
		field(&b, "Title", data.FinalTitle, SuccessStyle)
	} else if data.Title != "" {
		field(&b, "Title", data.Title, WarningStyle)
	}
	if data.Synthesized {
		field(&b, "Created", "inferred from title", WarningStyle)
	}

	b.WriteString("\n")
	for _, f := range data.Frames {
		idx := StatLabelStyle.Render(fmt.Sprintf("%4d", f.Index))
		if f.Kind == "control" {
			detail := f.ConversationID
			if f.Title != "" {
				detail += " " + fmt.Sprintf("%q", f.Title)
			}
			fmt.Fprintf(&b, "%s %s %s\n", idx, ControlStyle(types.ControlKind(f.Control)).Render(f.Control), ValueStyle.Render(detail))
			continue
		}
		fmt.Fprintf(&b, "%s %s\n", idx, ValueStyle.Render(fmt.Sprintf("%q", f.Text)))
	}

	return BoxStyle.Render(b.String())
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// RunInspectTUI runs the inspect TUI.
func RunInspectTUI(viewType string, data any) error {
	model := NewInspectModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderInspectStatic renders inspect data without full TUI (for fallback).
func RenderInspectStatic(viewType string, data any) string {
	model := NewInspectModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.title() + "\n" + model.body())
}
