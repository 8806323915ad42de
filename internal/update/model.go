package update

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/spinonoir/PlantOS/internal/model"
	"github.com/spinonoir/PlantOS/internal/scheduler"
	"github.com/spinonoir/PlantOS/internal/state"
)

type View string

const (
	ViewPlants    View = "Plants"
	ViewSchedule  View = "Schedule"
	ViewPlant     View = "Plant"
	ViewReminders View = "Reminders"
)

const (
	maxNotifications = 40
	maxFired         = 20
)

// Coordinator is the slice of the state coordinator the TUI drives.
type Coordinator interface {
	Hydrate(ctx context.Context)
	AddPlant(ctx context.Context, form model.PlantForm) (model.Plant, error)
	LogEvent(ctx context.Context, plantID, note string) (model.TimelineEvent, error)
	LoadPlant(ctx context.Context, plantID string) error
	CompleteTask(ctx context.Context, taskID string) error
	RefreshSchedule(ctx context.Context) error
	ScheduleDueReminders(ctx context.Context, minutes int) (int, error)
	Snapshot() state.Snapshot
}

var _ Coordinator = (*state.Coordinator)(nil)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Plants    string
	Schedule  string
	Plant     string
	Reminders string
	Sync      string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type Notification struct {
	Title string
	Body  string
	Level string
	At    time.Time
}

type Model struct {
	CurrentView     View
	SelectedPlantID string
	Snapshot        state.Snapshot
	Palette         CommandPaletteState
	HelpVisible     bool
	Notifications   []Notification
	Fired           []scheduler.ReminderEvent
	DesktopEnabled  bool
	Status          StatusBar
	Keys            GlobalKeyMap
	Busy            int
	Quitting        bool
	LastError       error

	coord     Coordinator
	reminders <-chan scheduler.ReminderEvent
	notifier  DesktopNotifier
	ctx       context.Context
	now       func() time.Time
	dueWindow int
	cursor    int

	plantTable    table.Model
	commandInput  textinput.Model
	syncSpinner   spinner.Model
	helpModel     help.Model
	notesViewport viewport.Model
}

type Options struct {
	Coordinator      Coordinator
	Reminders        <-chan scheduler.ReminderEvent
	Notifier         DesktopNotifier
	DesktopEnabled   bool
	DueWindowMinutes int
	Context          context.Context
	Now              func() time.Time
}

type DesktopNotifier interface {
	Send(Notification) error
}

type NoopDesktopNotifier struct{}

func (NoopDesktopNotifier) Send(Notification) error { return nil }

type ExecDesktopNotifier struct{}

func (ExecDesktopNotifier) Send(n Notification) error {
	switch runtime.GOOS {
	case "linux":
		return exec.Command("notify-send", n.Title, n.Body).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Body), escapeAppleScript(n.Title))
		return exec.Command("osascript", "-e", script).Run()
	default:
		return nil
	}
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

// OpResultMsg reports a finished coordinator operation along with the
// state it left behind.
type OpResultMsg struct {
	Op       string
	Text     string
	Err      error
	Snapshot state.Snapshot
}

type ReminderDueMsg struct {
	Event scheduler.ReminderEvent
}

func NewModel(opts Options) Model {
	m := Model{
		CurrentView:    ViewPlants,
		DesktopEnabled: opts.DesktopEnabled,
		Keys: GlobalKeyMap{
			Plants:    "1",
			Schedule:  "2",
			Plant:     "3",
			Reminders: "4",
			Sync:      "S",
			Help:      "?",
			Quit:      "q",
		},
		coord:     opts.Coordinator,
		reminders: opts.Reminders,
		notifier:  opts.Notifier,
		ctx:       opts.Context,
		now:       opts.Now,
		dueWindow: opts.DueWindowMinutes,
	}
	if m.notifier == nil {
		m.notifier = NoopDesktopNotifier{}
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	if m.now == nil {
		m.now = func() time.Time { return time.Now().UTC() }
	}
	if m.dueWindow <= 0 {
		m.dueWindow = 60
	}
	if m.coord != nil {
		m.Snapshot = m.coord.Snapshot()
		// Init starts a hydrate.
		m.Busy = 1
	}
	m.initBubbleComponents()
	m.syncPlantTable()
	return m
}

func (m *Model) initBubbleComponents() {
	cols := []table.Column{
		{Title: "Name", Width: 18},
		{Title: "Species", Width: 18},
		{Title: "Light", Width: 7},
		{Title: "Water", Width: 6},
	}
	m.plantTable = table.New(table.WithColumns(cols), table.WithRows([]table.Row{}), table.WithFocused(true), table.WithHeight(12))

	m.commandInput = textinput.New()
	m.commandInput.Prompt = "/"
	m.commandInput.CharLimit = 256
	m.commandInput.Width = 48

	m.syncSpinner = spinner.New()
	m.syncSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()
	m.notesViewport = viewport.New(54, 8)
}

func isKnownView(v View) bool {
	switch v {
	case ViewPlants, ViewSchedule, ViewPlant, ViewReminders:
		return true
	default:
		return false
	}
}
