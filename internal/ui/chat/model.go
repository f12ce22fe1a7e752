// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"log/slog"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/flaskchat-tui/internal/config"
	"github.com/jeranaias/flaskchat-tui/internal/controller"
	"github.com/jeranaias/flaskchat-tui/internal/render"
	"github.com/jeranaias/flaskchat-tui/internal/ui/components"
	"github.com/jeranaias/flaskchat-tui/internal/ui/styles"
)

// =============================================================================
// FOCUS
// =============================================================================

// focus is the widget receiving key presses.
type focus int

const (
	focusSidebar focus = iota
	focusPrompt
	focusRename
	focusConfirm
	focusPicker
)

// =============================================================================
// OPTIONS
// =============================================================================

// Options configures the chat screen.
type Options struct {
	// Theme is auto, dark or light.
	Theme string
	// Markdown is glamour, basic or plain.
	Markdown string
	// SidebarWidth is the sidebar width in columns.
	SidebarWidth int
	// ShowHelp shows key hints in the status bar.
	ShowHelp bool
	// ConfigPath is watched for theme and markdown changes when set.
	ConfigPath string
	// ExportDir receives transcripts saved from the sidebar.
	ExportDir string

	Logger  *slog.Logger
	Context context.Context
}

// OptionsFromConfig maps the [ui] config section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Theme:        cfg.UI.Theme,
		Markdown:     cfg.UI.Markdown,
		SidebarWidth: cfg.UI.SidebarWidth,
		ShowHelp:     cfg.UI.ShowHelp,
		ExportDir:    cfg.UI.ExportDir,
	}
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat screen.
type Model struct {
	ctl    *controller.Controller
	bridge *Bridge
	ctx    context.Context
	log    *slog.Logger
	opts   Options

	// Styling
	theme *styles.Theme
	feed  *render.Feed

	// Dimensions
	width  int
	height int

	// Widgets
	focus    focus
	sidebar  list.Model
	prompt   textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	rename   textinput.Model
	help     help.Model
	keys     KeyMap

	// Projection of the last snapshot
	frame        render.Frame
	lastActiveID string
	lastFeedLen  int

	// Inline rename
	renamingID   string
	renamingFrom string

	// Delete confirmation
	confirmID   string
	confirmName string

	// Model picker
	pickerID     string
	pickerCursor int

	// Notifications
	toasts       *components.ToastManager
	toastTicking bool
	spinning     bool
	showHelp     bool
	helpOpen     bool
}

// New creates the chat screen for ctl. bridge must be the one whose OnChange
// was passed to the controller.
func New(ctl *controller.Controller, bridge *Bridge, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.SidebarWidth <= 0 {
		opts.SidebarWidth = 30
	}

	theme := styles.NewTheme(opts.Theme)

	ta := textarea.New()
	ta.Placeholder = "Escribe tu mensaje..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	ti := textinput.New()
	ti.Prompt = ""
	ti.CharLimit = 120

	sp := spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(theme.Spinner))

	m := Model{
		ctl:      ctl,
		bridge:   bridge,
		ctx:      opts.Context,
		log:      opts.Logger.With("component", "tui"),
		opts:     opts,
		theme:    theme,
		feed:     render.NewFeed(render.NewMarkdown(opts.Markdown, theme), theme),
		focus:    focusSidebar,
		sidebar:  newSidebar(theme, opts.SidebarWidth, 10),
		prompt:   ta,
		viewport: viewport.New(40, 10),
		spinner:  sp,
		rename:   ti,
		help:     help.New(),
		keys:     DefaultKeyMap(),
		toasts:   components.NewToastManager(),
		showHelp: opts.ShowHelp,
	}
	m.viewport.KeyMap = viewport.KeyMap{}
	m.refresh()
	return m
}

// Init starts the initial load, the event bridge and the config watcher.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.bridge.Wait(),
		m.loadCmd(),
		m.watchConfigCmd(),
		textarea.Blink,
	)
}

// watchConfigCmd starts watching the config file in the background.
func (m Model) watchConfigCmd() tea.Cmd {
	if m.opts.ConfigPath == "" {
		return nil
	}
	ctx, path, bridge, log := m.ctx, m.opts.ConfigPath, m.bridge, m.log
	return func() tea.Msg {
		go func() {
			err := config.Watch(ctx, path, config.DefaultWatchDebounce, bridge.OnConfig, bridge.OnConfigError)
			if err != nil {
				log.Warn("config watch stopped", "path", path, "err", err)
			}
		}()
		return nil
	}
}

// =============================================================================
// PROJECTION
// =============================================================================

// refresh rebuilds the frame from a fresh snapshot and syncs the widgets.
func (m *Model) refresh() tea.Cmd {
	m.frame = render.Build(m.ctl.Snapshot(), render.Options{EditingID: m.renamingID})
	cmd := m.sidebar.SetItems(sidebarItems(m.frame.Sidebar))

	if m.frame.ActiveID != m.lastActiveID {
		m.lastActiveID = m.frame.ActiveID
		if i := m.frame.ActiveIndex(); i >= 0 && !m.sidebar.IsFiltered() {
			m.sidebar.Select(i)
		}
	}

	// Dialogs about a conversation that no longer exists close.
	if m.renamingID != "" && !m.exists(m.renamingID) {
		m.endRename()
	}
	if m.confirmID != "" && !m.exists(m.confirmID) {
		m.closeConfirm()
	}
	if m.pickerID != "" && m.pickerID != m.frame.ActiveID {
		m.closePicker()
	}

	m.refreshFeed()
	return cmd
}

// refreshFeed redraws the feed, following the bottom when new entries arrive.
func (m *Model) refreshFeed() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.feed.Draw(m.frame.Feed, m.viewport.Width))
	if atBottom || len(m.frame.Feed) != m.lastFeedLen {
		m.viewport.GotoBottom()
	}
	m.lastFeedLen = len(m.frame.Feed)
}

func (m Model) exists(id string) bool {
	for _, it := range m.frame.Sidebar {
		if it.ID == id {
			return true
		}
	}
	return false
}

// selectedItem returns the sidebar row under the cursor.
func (m Model) selectedItem() (render.SidebarItem, bool) {
	it, ok := m.sidebar.SelectedItem().(convItem)
	if !ok {
		return render.SidebarItem{}, false
	}
	return it.SidebarItem, true
}

// =============================================================================
// LAYOUT
// =============================================================================

const (
	headerHeight = 2
	promptHeight = 5
	statusHeight = 1
)

func (m Model) sidebarWidth() int {
	w := m.opts.SidebarWidth
	if limit := m.width / 3; w > limit {
		w = limit
	}
	if w < 12 {
		w = 12
	}
	return w
}

func (m Model) mainWidth() int {
	// Sidebar border and padding take 2 columns.
	w := m.width - m.sidebarWidth() - 2
	if w < 20 {
		w = 20
	}
	return w
}

func (m *Model) layout() {
	bodyHeight := m.height - statusHeight
	if bodyHeight < 6 {
		bodyHeight = 6
	}
	m.sidebar.SetSize(m.sidebarWidth(), bodyHeight)

	mainW := m.mainWidth()
	feedH := bodyHeight - headerHeight - promptHeight
	if feedH < 1 {
		feedH = 1
	}
	m.viewport.Width = mainW
	m.viewport.Height = feedH

	// Input border and padding take 4 columns.
	m.prompt.SetWidth(mainW - 4)
	m.rename.Width = m.sidebarWidth() - 4
}
