package views

import (
	"context"
	"fmt"
	"strings"
	"time"

	"task_webapp/internal/client"
	"task_webapp/internal/domain"
	"task_webapp/internal/ui/keys"
	"task_webapp/internal/ui/styles"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// StateChanged carries a new board state to the view.
type StateChanged struct {
	State client.State
}

// createdMsg reports the outcome of a submitted form.
type createdMsg struct {
	state client.State
	err   error
}

// clamp returns val clamped between minVal and maxVal
func clamp(val, minVal, maxVal int) int {
	if val < minVal {
		return minVal
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

const (
	fieldTitle = iota
	fieldDescription
	fieldDueDate
	fieldCount
)

// TaskListView renders a client.Board and turns keys into board actions.
type TaskListView struct {
	board  *client.Board
	state  client.State
	styles *styles.Styles
	keys   keys.KeyMap
	help   help.Model
	now    func() time.Time

	width  int
	height int

	cursor  int
	scrollY int

	editing   bool
	fields    [fieldCount]textinput.Model
	focusIdx  int
	submitted bool
}

func NewTaskListView(board *client.Board) *TaskListView {
	title := textinput.New()
	title.Placeholder = "Task title"
	title.CharLimit = 200

	desc := textinput.New()
	desc.Placeholder = "Description (optional)"
	desc.CharLimit = 1000

	due := textinput.New()
	due.Placeholder = "YYYY-MM-DDTHH:MM (optional)"
	due.CharLimit = len(client.DueDateLayout)

	return &TaskListView{
		board:  board,
		state:  board.Snapshot(),
		styles: styles.NewStyles(),
		keys:   keys.DefaultKeyMap(),
		help:   help.New(),
		now:    time.Now,
		fields: [fieldCount]textinput.Model{title, desc, due},
	}
}

func (v *TaskListView) Init() tea.Cmd {
	return v.load
}

func (v *TaskListView) load() tea.Msg {
	_ = v.board.Load(context.Background())
	return StateChanged{State: v.board.Snapshot()}
}

func (v *TaskListView) toggle(id int64) tea.Cmd {
	return func() tea.Msg {
		_ = v.board.Toggle(context.Background(), id)
		return StateChanged{State: v.board.Snapshot()}
	}
}

func (v *TaskListView) remove(id int64) tea.Cmd {
	return func() tea.Msg {
		_ = v.board.Delete(context.Background(), id)
		return StateChanged{State: v.board.Snapshot()}
	}
}

func (v *TaskListView) create() tea.Msg {
	err := v.board.Create(context.Background())
	return createdMsg{state: v.board.Snapshot(), err: err}
}

func (v *TaskListView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.width = msg.Width
		v.height = msg.Height
		v.help.Width = styles.ContentWidth(v.width)
		return v, nil

	case StateChanged:
		v.setState(msg.State)
		return v, nil

	case createdMsg:
		v.setState(msg.state)
		v.submitted = false
		if msg.err == nil {
			v.closeForm()
		}
		return v, nil

	case tea.KeyMsg:
		if v.editing {
			return v.updateEditing(msg)
		}
		return v.updateNormal(msg)
	}

	return v, nil
}

func (v *TaskListView) setState(s client.State) {
	v.state = s
	if v.cursor >= len(s.Tasks) {
		v.cursor = max(0, len(s.Tasks)-1)
	}
	v.ensureVisible()
}

func (v *TaskListView) selected() (domain.Task, bool) {
	if len(v.state.Tasks) == 0 {
		return domain.Task{}, false
	}
	return v.state.Tasks[v.cursor], true
}

func (v *TaskListView) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Quit):
		return v, tea.Quit

	case key.Matches(msg, v.keys.Up):
		if v.cursor > 0 {
			v.cursor--
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Down):
		if v.cursor < len(v.state.Tasks)-1 {
			v.cursor++
			v.ensureVisible()
		}

	case key.Matches(msg, v.keys.Toggle):
		if t, ok := v.selected(); ok {
			return v, v.toggle(t.ID)
		}

	case key.Matches(msg, v.keys.Delete):
		if t, ok := v.selected(); ok {
			return v, v.remove(t.ID)
		}

	case key.Matches(msg, v.keys.Refresh):
		return v, v.load

	case key.Matches(msg, v.keys.New):
		return v, v.openForm()

	case key.Matches(msg, v.keys.Back):
		if v.state.Error != "" {
			v.board.ClearError()
			v.state.Error = ""
		}
	}
	return v, nil
}

func (v *TaskListView) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, v.keys.Back):
		v.closeForm()
		return v, nil

	case key.Matches(msg, v.keys.Tab):
		v.focusIdx = (v.focusIdx + 1) % fieldCount
		return v, v.updateFocus()

	case msg.String() == "shift+tab":
		v.focusIdx = (v.focusIdx + fieldCount - 1) % fieldCount
		return v, v.updateFocus()

	case key.Matches(msg, v.keys.Enter):
		if v.submitted {
			return v, nil
		}
		draft := client.Draft{
			Title:       v.fields[fieldTitle].Value(),
			Description: v.fields[fieldDescription].Value(),
			DueDate:     v.fields[fieldDueDate].Value(),
		}
		if strings.TrimSpace(draft.Title) == "" {
			v.focusIdx = fieldTitle
			return v, v.updateFocus()
		}
		v.board.SetDraft(draft)
		v.submitted = true
		return v, v.create
	}

	var cmd tea.Cmd
	v.fields[v.focusIdx], cmd = v.fields[v.focusIdx].Update(msg)
	return v, cmd
}

func (v *TaskListView) openForm() tea.Cmd {
	v.editing = true
	v.focusIdx = fieldTitle
	d := v.state.Draft
	v.fields[fieldTitle].SetValue(d.Title)
	v.fields[fieldDescription].SetValue(d.Description)
	v.fields[fieldDueDate].SetValue(d.DueDate)
	return v.updateFocus()
}

func (v *TaskListView) closeForm() {
	v.editing = false
	v.submitted = false
	for i := range v.fields {
		v.fields[i].Reset()
		v.fields[i].Blur()
	}
}

func (v *TaskListView) updateFocus() tea.Cmd {
	for i := range v.fields {
		v.fields[i].Blur()
	}
	return v.fields[v.focusIdx].Focus()
}

func (v *TaskListView) visibleItems() int {
	// two lines per task plus header and help
	available := v.height - 10
	if available < 2 {
		available = 2
	}
	return max(available/2, 1)
}

func (v *TaskListView) ensureVisible() {
	visible := v.visibleItems()
	if v.cursor < v.scrollY {
		v.scrollY = v.cursor
	} else if v.cursor >= v.scrollY+visible {
		v.scrollY = v.cursor - visible + 1
	}
}

func (v *TaskListView) View() string {
	if v.editing {
		return v.renderForm()
	}

	var b strings.Builder
	b.WriteString(v.renderHeader())
	b.WriteString("\n")
	if v.state.Error != "" {
		b.WriteString(v.styles.ErrorBanner.Render(v.state.Error))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.renderTaskList())
	b.WriteString("\n")
	b.WriteString(v.styles.StatusBar.Render(v.help.View(v.keys)))

	return styles.CenterView(b.String(), v.width, v.height)
}

func (v *TaskListView) renderHeader() string {
	done, total := v.state.CompletedCount()
	title := v.styles.Title.Render("Tasks")
	counter := v.styles.Counter.Render(fmt.Sprintf("%d/%d done", done, total))
	return lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", counter)
}

func (v *TaskListView) renderTaskList() string {
	s := v.styles

	if len(v.state.Tasks) == 0 {
		if v.state.Loading {
			return s.TitleMuted.Render("Loading tasks...")
		}
		return s.TitleMuted.Render("No tasks yet. Press 'n' to add one.")
	}

	var items []string
	end := min(v.scrollY+v.visibleItems(), len(v.state.Tasks))
	for i := v.scrollY; i < end; i++ {
		items = append(items, v.renderTaskItem(v.state.Tasks[i], i == v.cursor))
	}
	return lipgloss.JoinVertical(lipgloss.Left, items...)
}

func (v *TaskListView) renderTaskItem(task domain.Task, selected bool) string {
	s := v.styles
	width := max(styles.ContentWidth(v.width)-4, 20)

	box := "[ ]"
	title := task.Title
	if task.Completed {
		box = s.Check.Render("[x]")
		title = s.TaskDone.Render(title)
	}

	var details []string
	if task.Description != nil {
		details = append(details, *task.Description)
	}
	if task.DueDate != nil {
		due := "due " + FormatDue(*task.DueDate, v.board.Location())
		if !task.Completed && task.DueDate.Before(v.now()) {
			due = s.TaskOverdue.Render(due + " (overdue)")
		}
		details = append(details, due)
	}
	detail := s.TaskDetail.Render(strings.Join(details, " · "))

	itemStyle := s.ListItem
	if selected {
		itemStyle = s.ListSelected
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		itemStyle.Width(width).Render(box+" "+title),
		itemStyle.Width(width).Render("    "+detail),
	)
}

// FormatDue renders a due date in loc.
func FormatDue(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("Mon Jan 2 2006 15:04")
}

func (v *TaskListView) renderForm() string {
	s := v.styles
	contentWidth := styles.ContentWidth(v.width)
	inputWidth := clamp(contentWidth-6, 20, 50)

	labels := [fieldCount]string{"Title:", "Description:", "Due (local time):"}
	rows := []string{s.Title.Render("New Task"), ""}
	for i := range v.fields {
		style := s.Input
		if i == v.focusIdx {
			style = s.InputFocused
		}
		rows = append(rows, labels[i], style.Width(inputWidth).Render(v.fields[i].View()))
	}

	if v.state.Error != "" {
		rows = append(rows, "", s.ErrorBanner.Render(v.state.Error))
	}
	if v.state.Submitting {
		rows = append(rows, "", s.TitleMuted.Render("Adding..."))
	}
	rows = append(rows, "", v.help.ShortHelpView(v.keys.FormHelp()))

	return styles.CenterView(lipgloss.JoinVertical(lipgloss.Left, rows...), v.width, v.height)
}
