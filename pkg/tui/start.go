package tui

import (
	"faucetui/pkg/config"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/cockroachdb/errors"
)

// Start runs the faucet UI until the user quits.
func Start(cfg config.Config, deps Deps, version string) error {
	Version = version
	m, err := initialModel(cfg, deps)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		return errors.Wrap(err, "run ui")
	}
	return nil
}
