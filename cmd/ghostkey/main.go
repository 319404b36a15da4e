// Copyright 2025 The GhostWrite Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command ghostkey manages the API key in the ghostwrite credential store and
// prints the effective configuration.
//
//	ghostkey set <key>   store the key
//	ghostkey clear       remove the stored key
//	ghostkey show        print settings, the key masked
//	ghostkey paths       print where files are kept and whether the config dir is writable
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"

	"github.com/fsoft72/ghostwrite/internal/logger"
	"github.com/fsoft72/ghostwrite/internal/utils"
	"github.com/fsoft72/ghostwrite/pkg/config"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: ghostkey [-config path] set <key> | clear | show | paths\n")
	flag.PrintDefaults()
}

func main() {
	configFile := flag.String("config", "", "Path to custom config file")
	flag.Usage = usage
	flag.Parse()

	l := logger.NewWithConfig("ghostkey", log.InfoLevel, false, false, log.TextFormatter)

	credPath, err := config.GetDefaultCredentialsPath()
	if err != nil {
		l.Fatalf("Failed to locate credential store: %v", err)
	}
	store := config.NewFileStore(credPath)

	switch flag.Arg(0) {
	case "set":
		if flag.NArg() != 2 || flag.Arg(1) == "" {
			usage()
			os.Exit(2)
		}
		if err := config.SaveAPIKey(store, flag.Arg(1)); err != nil {
			l.Fatalf("Failed to save key: %v", err)
		}
		l.Info("API key saved", "key", config.MaskKey(flag.Arg(1)), "store", store.Path())
	case "clear":
		if err := config.SaveAPIKey(store, ""); err != nil {
			l.Fatalf("Failed to clear key: %v", err)
		}
		l.Info("API key removed", "store", store.Path())
	case "show":
		show(l, store, *configFile)
	case "paths":
		paths(l)
	default:
		usage()
		os.Exit(2)
	}
}

func show(l *log.Logger, store config.Store, configFile string) {
	cfg, configPath, err := config.LoadConfigWithPriority(configFile)
	if err != nil {
		l.Fatalf("Failed to load config: %v", err)
	}
	key, _ := config.LoadAPIKey(store)
	s := cfg.Settings(key)

	l.Print("config", "path", config.GetActiveConfigPath(configPath))
	l.Print("", "api_key", config.MaskKey(s.APIKey))
	if _, fromEnv := os.LookupEnv(config.APIKeyEnv); fromEnv {
		l.Print("", "api_key_source", config.APIKeyEnv)
	}
	l.Print("", "api_endpoint", s.APIEndpoint)
	l.Print("", "model_name", s.ModelName)
	l.Print("", "suggestion_delay", s.SuggestionDelay)
	l.Print("", "system_prompt", s.SystemPrompt)
	l.Print("", "context", s.Context)
}

func paths(l *log.Logger) {
	pr, err := utils.NewPathResolver()
	if err != nil {
		l.Fatalf("Failed to resolve paths: %v", err)
	}
	info := pr.GetRuntimeInfo()
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		l.Print("", k, info[k])
	}

	status := utils.CheckDirStatus(pr.GetConfigDir())
	if status.Error != nil {
		l.Error("config dir unusable", "dir", pr.GetConfigDir(), "err", status.Error)
		return
	}
	l.Print("", "config_dir_writable", status.Writable)
}
