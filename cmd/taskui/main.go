package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"task_webapp/internal/client"
	"task_webapp/internal/logger"
	"task_webapp/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

var version = "dev"

func main() {
	configPath := flag.String("config", ui.DefaultConfigPath(), "path to config.toml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("taskui %s\n", version)
		return
	}

	// the terminal belongs to the UI; logs go to a file when asked for
	var logOut io.Writer = io.Discard
	if path := os.Getenv("TASKUI_LOG"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		logOut = f
	}
	logger.InitConsole(logOut, os.Getenv("LOG_LEVEL"), "taskui")

	cfg, err := ui.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	var p *tea.Program
	board := client.NewBoard(
		client.NewAPI(cfg.APIURL, nil),
		client.WithLocation(loc),
		client.WithOnChange(func(s client.State) {
			if p != nil {
				p.Send(ui.StateChanged(s))
			}
		}),
	)
	p = tea.NewProgram(ui.NewApp(board), tea.WithAltScreen())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Live {
		go follow(ctx, cfg.APIURL, board)
	}

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running application: %v\n", err)
		os.Exit(1)
	}
}

// follow keeps the board in sync with the change feed, reconnecting with
// backoff until ctx ends.
func follow(ctx context.Context, baseURL string, board *client.Board) {
	wsURL, err := client.FeedURL(baseURL)
	if err != nil {
		logger.Warn("change feed disabled", "error", err)
		return
	}

	backoff := time.Second
	for {
		err := client.Follow(ctx, wsURL, board.ApplyEvent)
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return
		}
		logger.Debug("change feed dropped", "error", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, 30*time.Second)
	}
}
