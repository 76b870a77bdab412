package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dupeforge/dupeforge/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Launch the terminal dashboard",
	Long:  `Opens the interactive terminal UI for browsing the registry and watching scan activity live.`,
	RunE:  runUI,
}

func runUI(cmd *cobra.Command, args []string) error {
	a, err := newApp(cfgFile)
	if err != nil {
		return err
	}
	defer a.Close()

	app := tui.NewApp(a.reg, a.bus)
	return app.Run()
}
