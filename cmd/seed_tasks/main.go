package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"time"

	"task_webapp/internal/client"
	"task_webapp/internal/logger"

	"golang.org/x/sync/errgroup"
)

var samples = []struct {
	title string
	desc  string
}{
	{"Buy groceries", "milk, eggs, bread"},
	{"Write weekly report", ""},
	{"Call the dentist", "reschedule cleaning"},
	{"Renew passport", "photos first"},
	{"Fix leaking tap", ""},
	{"Plan team offsite", "venue shortlist"},
	{"Review pull requests", ""},
	{"Pay electricity bill", ""},
}

func main() {
	apiURL := flag.String("api", envOr("TASKUI_API_URL", "http://localhost:8080"), "task API base URL")
	count := flag.Int("n", 10, "number of tasks to create")
	parallel := flag.Int("parallel", 4, "concurrent requests")
	flag.Parse()

	logger.InitConsole(os.Stderr, envOr("LOG_LEVEL", "info"), "seed")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	api := client.NewAPI(*apiURL, nil)
	now := time.Now()

	var created atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*parallel, 1))

	for i := 0; i < *count; i++ {
		i := i
		g.Go(func() error {
			s := samples[i%len(samples)]
			req := client.CreateRequest{Title: fmt.Sprintf("%s #%d", s.title, i+1)}
			if s.desc != "" {
				d := s.desc
				req.Description = &d
			}
			if i%3 != 2 {
				due := now.Add(time.Duration(i-2) * 24 * time.Hour).UTC().Format(time.RFC3339)
				req.DueDate = &due
			}

			task, err := api.Create(gctx, req)
			if err != nil {
				return fmt.Errorf("create %q: %w", req.Title, err)
			}
			created.Add(1)
			logger.Debug("created task", "id", task.ID, "title", task.Title)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Fatal("seeding failed", "created", created.Load(), "error", err)
	}
	logger.Info("seeding done", "created", created.Load(), "api", *apiURL)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
