package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/helmcode/zeropatch/pkg/tui"
	"github.com/spf13/cobra"
)

func NewUICmd() *cobra.Command {
	o := &sessionOptions{}

	cmd := &cobra.Command{
		Use:   "ui [REPO_URL]",
		Short: "Start an interactive scanning session",
		Long: `Open a terminal session bound to a single scan workflow. Type or paste a
repository URL, press enter to analyze it and ctrl+p to generate a patch once
the analysis has succeeded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctrl := newController(cfg)
			defer ctrl.Close()
			if len(args) == 1 {
				ctrl.SetReference(args[0])
			}

			p := tea.NewProgram(tui.New(ctrl, cfg.Timeout.Duration),
				tea.WithAltScreen(),
				tea.WithContext(contextOf(cmd)),
			)
			_, err = p.Run()
			return err
		},
	}

	o.addFlags(cmd)
	return cmd
}
