package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"task_webapp/internal/client"
	"task_webapp/internal/domain"
	"task_webapp/internal/logger"
)

// ws_smoke creates, toggles and deletes a task through the API and checks
// that each mutation shows up on the change feed.
func main() {
	apiURL := flag.String("api", envOr("TASKUI_API_URL", "http://localhost:8080"), "task API base URL")
	timeout := flag.Duration("timeout", 10*time.Second, "overall deadline")
	watch := flag.Bool("watch", false, "only print feed events until interrupted")
	flag.Parse()

	logger.InitConsole(os.Stderr, envOr("LOG_LEVEL", "info"), "ws_smoke")

	wsURL, err := client.FeedURL(*apiURL)
	if err != nil {
		logger.Fatal("bad api url", "error", err)
	}

	if *watch {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()
		err := client.Follow(ctx, wsURL, func(ev domain.TaskEvent) {
			logger.Info("event", "type", ev.Type, "id", ev.ID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("feed closed", "error", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client.NewAPI(*apiURL, nil), wsURL); err != nil {
		logger.Fatal("smoke test failed", "error", err)
	}
	logger.Info("smoke test finished")
}

func run(ctx context.Context, api *client.API, wsURL string) error {
	events := make(chan domain.TaskEvent, 16)
	feedErr := make(chan error, 1)
	feedCtx, stopFeed := context.WithCancel(ctx)
	defer stopFeed()
	go func() {
		feedErr <- client.Follow(feedCtx, wsURL, func(ev domain.TaskEvent) { events <- ev })
	}()

	// the hub registers a subscriber asynchronously after the upgrade
	time.Sleep(200 * time.Millisecond)

	task, err := api.Create(ctx, client.CreateRequest{Title: "ws smoke " + time.Now().Format(time.RFC3339)})
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	if err := expect(ctx, events, feedErr, domain.EventTaskCreated, task.ID); err != nil {
		return err
	}

	if _, err := api.SetCompleted(ctx, task.ID, true); err != nil {
		return fmt.Errorf("toggle: %w", err)
	}
	if err := expect(ctx, events, feedErr, domain.EventTaskUpdated, task.ID); err != nil {
		return err
	}

	if err := api.Delete(ctx, task.ID); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return expect(ctx, events, feedErr, domain.EventTaskDeleted, task.ID)
}

func expect(ctx context.Context, events <-chan domain.TaskEvent, feedErr <-chan error, typ string, id int64) error {
	for {
		select {
		case ev := <-events:
			if ev.Type == typ && ev.ID == id {
				logger.Info("got event", "type", ev.Type, "id", ev.ID)
				return nil
			}
		case err := <-feedErr:
			return fmt.Errorf("feed closed while waiting for %s: %w", typ, err)
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s on task %d: %w", typ, id, ctx.Err())
		}
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
