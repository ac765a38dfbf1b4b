package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/notepid/hostelhub/internal/app"
	"github.com/notepid/hostelhub/internal/ui"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to configuration file")
	flag.Parse()

	a, cleanup, err := app.New(*configPath)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	a.Log.Info("starting", zap.String("api", a.Config.API.BaseURL), zap.String("config", *configPath))

	p := tea.NewProgram(ui.NewRootModel(a), tea.WithAltScreen(), tea.WithContext(a.Context()))
	ui.Wire(p, a)

	if _, err := p.Run(); err != nil {
		a.Log.Error("program exited", zap.Error(err))
		_, _ = fmt.Fprintln(os.Stderr, err)
		cleanup()
		os.Exit(1)
	}
}
