package main

import (
	"context"
	"log/slog"
	"mastogpt/app/client/llm"
	"mastogpt/app/client/mastodon_api"
	"mastogpt/app/client/mastodon_stream"
	"mastogpt/app/config"
	"mastogpt/app/service/conversation"
	"mastogpt/app/service/engine"
	"mastogpt/app/service/freepost"
	"mastogpt/app/service/health"
	"mastogpt/app/service/memory"
	"mastogpt/app/service/prompts"
	"mastogpt/app/service/ratelimit"
	"mastogpt/app/service/thread"
	"mastogpt/app/util/mylog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2/log"
	"github.com/samber/do"
	"golang.org/x/sync/errgroup"
)

func main() {
	di := do.New()
	defer di.Shutdown()
	defer log.Info("Waiting for services to finish...")

	mylog.Preinit()

	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	do.ProvideValue(di, appCtx)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	do.ProvideValue(di, cfg)

	if err = mylog.Init(cfg); err != nil {
		log.Fatalf("logging init failed: %v", err)
	}

	slog.Info("Config loaded", "config", cfg)

	do.Provide(di, mastodon_api.NewClient)
	do.Provide(di, mastodon_stream.NewClient)
	do.Provide(di, llm.NewClient)
	do.Provide(di, prompts.New)
	do.Provide(di, memory.New)
	do.Provide(di, ratelimit.New)
	do.Provide(di, thread.New)
	do.Provide(di, conversation.New)
	do.Provide(di, engine.NewResponder)
	do.Provide(di, engine.New)
	do.Provide(di, freepost.New)
	do.Provide(di, health.New)

	if _, err = do.Invoke[*prompts.Set](di); err != nil {
		log.Fatalf("prompts load failed: %v", err)
	}
	if _, err = do.Invoke[*memory.Service](di); err != nil {
		log.Fatalf("conversation store open failed: %v", err)
	}

	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Info("Shutting down...")

		cancel()
	}()

	slog.Info("Service started")

	group, groupCtx := errgroup.WithContext(appCtx)

	group.Go(func() error {
		do.MustInvoke[*engine.Service](di).Run(groupCtx)
		return nil
	})
	group.Go(func() error {
		return do.MustInvoke[*freepost.Service](di).Run(groupCtx)
	})
	group.Go(func() error {
		do.MustInvoke[*health.Service](di).Run(groupCtx)
		return nil
	})

	if err = group.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}
}
