package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coverbay/coverbay/config"
	"github.com/coverbay/coverbay/pkg/api"
	"github.com/coverbay/coverbay/pkg/global"
	"github.com/coverbay/coverbay/pkg/lumber"
	"github.com/coverbay/coverbay/pkg/requestutils"
	"github.com/coverbay/coverbay/pkg/scmauth"
	"github.com/coverbay/coverbay/pkg/server"
	"github.com/coverbay/coverbay/pkg/service/aggregator"
	"github.com/coverbay/coverbay/pkg/service/diff"
	"github.com/coverbay/coverbay/pkg/service/ingest"
	"github.com/coverbay/coverbay/pkg/service/normalizer"
	"github.com/coverbay/coverbay/pkg/store"
	"github.com/spf13/cobra"
)

// RootCommand will setup and return the root command
func RootCommand() *cobra.Command {
	rootCmd := cobra.Command{
		Use:     "coverbay",
		Long:    `coverbay ingests CI coverage reports and serves commit level rollups`,
		Version: global.BinaryVersion,
		Run:     run,
	}

	// define flags used for this command
	AttachCLIFlags(&rootCmd)

	return &rootCmd
}

func run(cmd *cobra.Command, args []string) {
	// create a context that we can cancel
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	const gracefulTimeout = 5000 * time.Millisecond

	// a WaitGroup for the goroutines to tell us they've stopped
	wg := sync.WaitGroup{}

	cfg, err := config.LoadConfig(cmd)
	if err != nil {
		fmt.Printf("[Error] Failed to load config: %s", err.Error())
		os.Exit(1)
	}
	if err := config.ValidateCfg(cfg); err != nil {
		fmt.Printf("[Error] Invalid config: %s", err.Error())
		os.Exit(1)
	}

	// patch logconfig file location with root level log file location
	if cfg.LogFile != "" {
		cfg.LogConfig.EnableFile = true
		cfg.LogConfig.FileLocation = filepath.Join(cfg.LogFile, "coverbay.log")
	}

	logger, err := lumber.NewLogger(cfg.LogConfig, cfg.Verbose, lumber.InstanceZapLogger)
	if err != nil {
		log.Fatalf("Could not instantiate logger %s", err.Error())
	}

	logger.Infof("coverbay version: %s", global.BinaryVersion)

	coverageStore, err := store.New(cfg, logger)
	if err != nil {
		logger.Fatalf("failed to initialize coverage store: %v", err)
	}

	norm := normalizer.New(logger)
	agg := aggregator.New(logger,
		aggregator.WithPackageDepth(cfg.PackageDepth),
		aggregator.WithAcceptEmpty(cfg.AcceptEmpty))
	ingestor := ingest.New(cfg, norm, agg, coverageStore, logger)
	differ := diff.New(coverageStore, agg, logger)

	requests := requestutils.New(logger, global.DefaultAPITimeout, func() backoff.BackOff {
		return backoff.NewExponentialBackOff()
	})
	authorizer := scmauth.New(cfg, requests, logger)

	router := api.NewRouter(cfg, logger, coverageStore, ingestor, differ, agg, authorizer)

	wg.Add(1)
	go func() {
		defer cancel()
		defer wg.Done()
		if err := server.ListenAndServe(ctx, router, cfg, logger); err != nil {
			logger.Errorf("server exited with error: %v", err)
		}
	}()

	// listen for C-c
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	// channel to mark status of waitgroup, required to brutally kill the
	// application on shutdown timeout
	done := make(chan struct{})
	go func() {
		wg.Wait()
		logger.Debugf("main: all goroutines have finished.")
		close(done)
	}()

	select {
	case <-c:
		logger.Debugf("main: received interrupt - attempting graceful shutdown ....")
		cancel()
		select {
		case <-done:
			logger.Debugf("Go routines exited within timeout")
		case <-time.After(gracefulTimeout):
			logger.Errorf("Graceful timeout exceeded. Brutally killing the application")
		}
	case <-done:
	}
}
