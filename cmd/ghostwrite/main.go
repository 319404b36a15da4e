// Copyright 2025 The GhostWrite Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the ghost-text suggestion server and its CLI [DBG] front ends.

GhostWrite watches a text buffer mirrored from an editing surface. After the
user pauses typing it asks an OpenAI-compatible chat completions endpoint to
continue the text at the caret, and shows the answer as faint ghost text.
Tab accepts the next sentence or paragraph of the suggestion, Escape drops it.

# Usage

Start the server on stdin/stdout with default settings:

	ghostwrite

Serve websocket clients instead, with debug logging:

	ghostwrite -ws -addr :8080 -d

Try suggestions in the terminal:

	ghostwrite -c      line mode
	ghostwrite -tui    editor with inline ghost text

The API key is read from the GHOSTWRITE_API_KEY environment variable or from
the credential store written by the ghostkey command:

	ghostkey set sk-...

# Configuration

Runtime configuration lives in a TOML file in the user config directory:

	[provider]
	endpoint = "https://api.openai.com/v1/chat/completions"
	model = "gpt-3.5-turbo"
	max_tokens = 150
	temperature = 0.7
	timeout = 30

	[suggest]
	delay = 1.0
	system_prompt = "You are a helpful assistant that provides text completions..."
	context = ""
	cache_entries = 0

	[server]
	min_prefix = 1
	queue_size = 64
	ws_addr = ":8080"

	[cli]
	ghost_color = "8"
	show_status = true

The file is created with defaults if it doesn't exist. Server mode watches it
and applies changes to every connected session without restart.

# IPC Protocol

The server speaks MessagePack over stdin/stdout. The host mirrors its buffer
and key presses with requests and paints the overlay it is sent back:

	{"id": "1", "op": "edit", "text": "Dear team, the release"}
	{"event": "overlay", "overlay": {"before": "Dear team, the release", "ghost": "is ready."}}
	{"id": "2", "op": "key", "key": "Tab"}
	{"id": "2", "status": "ok", "consumed": true, "text": "Dear team, the release is ready."}

See package server for the full request set.

# Command Line Flags

	-version  Show current version
	-d        Enable debug mode with detailed logging
	-c        Run in CLI line mode instead of server mode
	-tui      Run the terminal editor instead of server mode
	-ws       Serve websocket clients instead of stdin/stdout
	-addr string
	    Websocket listen address (default from config)
	-config string
	    Path to a custom config file
*/
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

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/fsoft72/ghostwrite/internal/cli"
	"github.com/fsoft72/ghostwrite/internal/logger"
	"github.com/fsoft72/ghostwrite/pkg/config"
	"github.com/fsoft72/ghostwrite/pkg/provider"
	"github.com/fsoft72/ghostwrite/pkg/server"
	"github.com/fsoft72/ghostwrite/pkg/suggest"
)

const (
	Version = "0.1.0-beta"
	AppName = "ghostwrite"
	gh      = "https://github.com/fsoft72/ghostwrite"
)

// main wires config, credentials and the provider into the selected front end.
func main() {
	showVersion := flag.Bool("version", false, "Show current version")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	cliMode := flag.Bool("c", false, "Run CLI line mode -- useful for testing and debugging")
	tuiMode := flag.Bool("tui", false, "Run the terminal editor with inline ghost text")
	wsMode := flag.Bool("ws", false, "Serve websocket clients instead of stdin/stdout")
	wsAddr := flag.String("addr", "", "Websocket listen address (default from config)")
	configFile := flag.String("config", "", "Path to custom config file")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	var store config.Store
	if credPath, err := config.GetDefaultCredentialsPath(); err != nil {
		log.Warnf("No credential store: %v", err)
	} else {
		store = config.NewFileStore(credPath)
	}
	apiKey, ok := config.LoadAPIKey(store)
	if !ok {
		log.Warnf("No API key set, suggestions are off. Run `ghostkey set <key>` or export %s", config.APIKeyEnv)
	}

	prov := provider.New(
		provider.WithMaxTokens(appConfig.Provider.MaxTokens),
		provider.WithTemperature(appConfig.Provider.Temperature),
		provider.WithLogger(logger.Default("provider")),
	)

	// CLI and TUI modes are for testing and dbg purposes.
	if *cliMode || *tuiMode {
		engine := cli.Engine{
			Provider:       prov,
			Settings:       appConfig.Settings(apiKey),
			RequestTimeout: appConfig.RequestTimeout(),
			GhostColor:     appConfig.CLI.GhostColor,
			ShowStatus:     appConfig.CLI.ShowStatus,
			Logger:         logger.Default("cli"),
		}
		if appConfig.Suggest.CacheEntries > 0 {
			engine.Cache = suggest.NewCache(appConfig.Suggest.CacheEntries)
		}
		if *tuiMode {
			// stderr would draw over the editor
			engine.Logger = logger.Discard()
			err = cli.RunTUI(ctx, engine)
		} else {
			err = cli.NewInputHandler(engine, os.Stdout).Start(ctx, os.Stdin)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	srvLog := logger.Default("server")
	if *debugMode {
		srvLog = logger.New("server")
	}
	srv := server.NewServer(appConfig, prov, server.Options{
		Store:      store,
		ConfigPath: configPath,
		APIKey:     apiKey,
		Logger:     srvLog,
	})

	if configPath != "" {
		if err := config.Watch(ctx, configPath, config.DefaultWatchDebounce, srv.Reload); err != nil {
			log.Warnf("Config changes won't be picked up: %v", err)
		}
	}

	if *wsMode {
		addr := *wsAddr
		if addr == "" {
			addr = appConfig.Server.WSAddr
		}
		showStartupInfo(config.GetActiveConfigPath(configPath), "ws://"+addr)
		if err := serveWS(ctx, addr, srv); err != nil {
			log.Fatalf("Websocket server failed: %v", err)
		}
		return
	}

	showStartupInfo(config.GetActiveConfigPath(configPath), "stdio")
	if err := srv.Serve(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Server failed: %v", err)
	}
}

// serveWS listens on addr until ctx is done.
func serveWS(ctx context.Context, addr string, srv *server.Server) error {
	hs := &http.Server{Addr: addr, Handler: server.NewWSHandler(srv)}
	go func() {
		<-ctx.Done()
		hs.Shutdown(context.Background())
	}()
	if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func printVersion() {
	l := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	l.SetStyles(styles)

	l.Print("")
	l.Print("[ GhostWrite ] Inline ghost-text suggestions")
	l.Print("", "version", Version)
	l.Print("")
	l.Print("use -h or --help to see available options")
	l.Print("Github Repo", "gh", gh)
}

// showStartupInfo displays some basic info about the init process on stderr.
func showStartupInfo(configPath, transport string) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)

	println("============")
	println(" GhostWrite ")
	println("============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("config: ( %s )", configPath)
	log.Infof("transport: %s", transport)
	log.Info("status: ready")
	println("============")
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to exit")

	log.SetLevel(currentLevel)
}
