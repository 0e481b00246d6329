package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"todolist/internal/client"
	"todolist/internal/config"
	"todolist/internal/store"
	"todolist/internal/tui"
	"todolist/internal/validation"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	apiURL := flag.String("api", "", "todo API base URL, overrides API_URL")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *apiURL != "" {
		cfg.APIURL = *apiURL
	}

	api := client.New(cfg.APIURL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	err = api.Health(ctx)
	cancel()
	if err != nil {
		fmt.Printf("Cannot reach %s: %v\n", cfg.APIURL, err)
		os.Exit(1)
	}

	st := store.New(api, store.WithValidator(validation.New()))
	p := tea.NewProgram(tui.New(st), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v\n", err)
		os.Exit(1)
	}
}
