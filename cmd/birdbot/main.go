package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"birdbot/internal/config"
	"birdbot/internal/db"
	"birdbot/internal/processor"
	"birdbot/internal/queue"
	"birdbot/internal/reddit"
	"birdbot/internal/server"
	"birdbot/internal/slack"
	"birdbot/internal/utils"
	"birdbot/internal/worker"
)

func main() {
	listen := flag.String("listen", "", "Listen address (host:port). Default is :{slack.port}.")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()
	utils.ConfigureLogging(*verbose)

	if err := run(*listen); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(listen string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.SlackClientID == "" || cfg.SlackClientSecret == "" {
		return errors.New("missing slack client credentials (set slack.client_id and slack.client_secret)")
	}
	if listen == "" {
		listen = fmt.Sprintf(":%d", cfg.SlackPort)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, err := db.NewStore(ctx, cfg.DBConnString())
	if err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	httpClient := server.NewHTTPClient(cfg.ProductName)
	slackClient := slack.NewClient(httpClient)
	feed := reddit.NewClient(httpClient, cfg.Subreddit)

	q := queue.New()
	sup := &worker.Supervisor{
		Queue: q,
		Proc: &processor.Processor{
			Store:      store,
			Chat:       slackClient,
			Feed:       feed,
			Triggers:   cfg.Triggers,
			Extensions: cfg.ImageExtensions,
		},
	}
	workerDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(workerDone)
	}()

	srv := &http.Server{
		Addr: listen,
		Handler: (&server.Server{
			Config: cfg,
			Slack:  slackClient,
			Store:  store,
			Queue:  q,
		}).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		utils.Info("birdbot listening", "listen", listen, "subreddit", cfg.Subreddit, "triggers", len(cfg.Triggers))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-workerDone
		return nil
	case err := <-errCh:
		stop()
		<-workerDone
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
