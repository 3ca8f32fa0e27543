package ui

import (
	"task_webapp/internal/client"
	"task_webapp/internal/ui/views"

	tea "github.com/charmbracelet/bubbletea"
)

type App struct {
	taskList *views.TaskListView
}

// NewApp creates the application for board.
func NewApp(board *client.Board) *App {
	return &App{taskList: views.NewTaskListView(board)}
}

func (a *App) Init() tea.Cmd {
	return a.taskList.Init()
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	_, cmd := a.taskList.Update(msg)
	return a, cmd
}

func (a *App) View() string {
	return a.taskList.View()
}

// StateChanged wraps s for tea.Program.Send, for use as the board's change
// callback.
func StateChanged(s client.State) tea.Msg {
	return views.StateChanged{State: s}
}
