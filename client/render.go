package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/puyokura/odysseychat/chat"
	"github.com/puyokura/odysseychat/model"
	"github.com/puyokura/odysseychat/persona"
)

var (
	borderColor = lipgloss.Color("#505050")
	accentColor = lipgloss.Color("#7D56F4")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	selfStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD7FF")).Bold(true)
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#87D787")).Bold(true)
	aiStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")).Bold(true)
	serverStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Italic(true)
	targetStyle  = lipgloss.NewStyle().Foreground(accentColor)
	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(borderColor).
			PaddingLeft(1)
	pickerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Padding(0, 1)
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Background(accentColor)

	statusStyles = map[chat.Status]lipgloss.Style{
		chat.StatusConnected:    lipgloss.NewStyle().Foreground(lipgloss.Color("#87D787")),
		chat.StatusConnecting:   lipgloss.NewStyle().Foreground(lipgloss.Color("#FFAF00")),
		chat.StatusDisconnected: dimStyle,
		chat.StatusError:        errorStyle,
	}
)

// Renderer formats timeline entries. AI and server bodies are markdown.
type Renderer struct {
	md    *glamour.TermRenderer
	dir   persona.Directory
	width int
}

func NewRenderer(dir persona.Directory, width int) *Renderer {
	r := &Renderer{dir: dir}
	r.SetWidth(width)
	return r
}

// SetWidth rebuilds the markdown renderer for a new terminal width.
func (r *Renderer) SetWidth(width int) {
	if width < 20 {
		width = 80
	}
	if width == r.width && r.md != nil {
		return
	}
	r.width = width
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		md = nil
	}
	r.md = md
}

func (r *Renderer) markdown(text string) string {
	if r.md == nil {
		return lipgloss.NewStyle().Width(r.width).Render(text)
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

// Entry renders one timeline entry. spin is the current spinner frame used
// for pending placeholders.
func (r *Renderer) Entry(e chat.Entry, spin string) string {
	if e.Pending {
		return fmt.Sprintf("%s %s", aiStyle.Render(spin), dimStyle.Render(chat.PendingText))
	}

	switch e.Sender {
	case model.SenderSelf:
		label := selfStyle.Render(e.Username + " (You)")
		if e.TargetPersona != "" {
			label += " " + targetStyle.Render("→ "+persona.AvatarFor(r.dir, e.TargetPersona)+" @"+e.TargetPersona)
		}
		body := lipgloss.NewStyle().Width(r.width).Align(lipgloss.Right).Render(e.Text)
		return lipgloss.PlaceHorizontal(r.width, lipgloss.Right, label) + "\n" + body
	case model.SenderUser:
		return userStyle.Render(e.Username) + "\n" + lipgloss.NewStyle().Width(r.width).Render(e.Text)
	case model.SenderAI:
		return aiStyle.Render("AI") + "\n" + r.markdown(e.Text)
	default:
		return serverStyle.Render("server") + "\n" + r.markdown(e.Text)
	}
}

// Timeline renders the whole log separated by blank lines.
func (r *Renderer) Timeline(entries []chat.Entry, spin string) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, r.Entry(e, spin))
	}
	return strings.Join(parts, "\n\n")
}

// UserList renders the online sidebar with the local user marked.
func UserList(presence chat.UserSet, self string, height int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Online (%d)", presence.Len())))
	b.WriteString("\n")
	for _, name := range presence.Members() {
		if name == self {
			b.WriteString(selfStyle.Render(name + " (You)"))
		} else {
			b.WriteString(userStyle.Render(name))
		}
		b.WriteString("\n")
	}
	return sidebarStyle.Height(height).Render(strings.TrimRight(b.String(), "\n"))
}

// TypingLine renders who else is typing.
func TypingLine(typing chat.UserSet, self string) string {
	var names []string
	for _, n := range typing.Members() {
		if n != self {
			names = append(names, n)
		}
	}
	switch len(names) {
	case 0:
		return ""
	case 1:
		return dimStyle.Render(names[0] + " is typing...")
	default:
		return dimStyle.Render(strings.Join(names, ", ") + " are typing...")
	}
}

// Suggestions renders the mention picker panel.
func Suggestions(dir persona.Directory, ids []string, index int) string {
	lines := make([]string, 0, len(ids))
	for i, id := range ids {
		line := fmt.Sprintf("%s %s", persona.AvatarFor(dir, id), id)
		if i == index {
			line = highlightStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return pickerStyle.Render(strings.Join(lines, "\n"))
}

// FactsPanel renders the stored facts of the user.
func FactsPanel(list []model.Fact) string {
	if len(list) == 0 {
		return dimStyle.Render("No saved facts.")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Saved facts"))
	for _, f := range list {
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("%s  %s = %s", dimStyle.Render(shortID(f.ID)), f.FactType, f.Value))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("/forget <id> to delete"))
	return b.String()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// StatusBadge renders the connection status.
func StatusBadge(s chat.Status) string {
	style, ok := statusStyles[s]
	if !ok {
		style = dimStyle
	}
	return style.Render("● " + string(s))
}
