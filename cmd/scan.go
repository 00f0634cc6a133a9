package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/huh"
	"github.com/helmcode/zeropatch/pkg/formatter"
	"github.com/helmcode/zeropatch/pkg/workflow"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type scanOptions struct {
	sessionOptions
	output  string
	patch   bool
	noPatch bool

	interactive func() bool
	confirm     func() (bool, error)
}

func NewScanCmd() *cobra.Command {
	return newScanCmd(&scanOptions{
		interactive: func() bool { return isInteractive(os.Stdin) },
		confirm:     confirmPatch,
	})
}

func newScanCmd(o *scanOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan REPO_URL",
		Short: "Scan a repository for vulnerabilities and optionally patch it",
		Long: `Send a repository to the ZeroPatch analysis service, show the vulnerabilities it
reports and, on request, the patched code it recommends.

Examples:
  # Scan and decide interactively whether to patch
  zeropatch scan https://github.com/acme/app

  # Scan and patch without asking
  zeropatch scan https://github.com/acme/app --patch

  # Machine-readable report against a remote service
  zeropatch scan https://github.com/acme/app --no-patch -o json --server https://zeropatch.internal`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.run(cmd, args[0])
		},
	}

	o.addFlags(cmd)
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Output format (human, json, yaml)")
	cmd.Flags().BoolVar(&o.patch, "patch", false, "Generate patches without asking")
	cmd.Flags().BoolVar(&o.noPatch, "no-patch", false, "Skip patch generation")
	cmd.MarkFlagsMutuallyExclusive("patch", "no-patch")

	return cmd
}

func (o *scanOptions) run(cmd *cobra.Command, ref string) error {
	cfg, err := o.load(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = o.output
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	format := strings.ToLower(cfg.Output)
	human := format == "human"

	ctrl := newController(cfg)
	defer ctrl.Close()
	ctrl.SetReference(ref)

	if human {
		printHeader(out, ref, cfg.Server)
	}

	s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
	unsubscribe := ctrl.Subscribe(func(v workflow.View) {
		switch v.Phase {
		case workflow.PhaseAnalyzing:
			s.Suffix = " Analyzing repository..."
			s.Start()
		case workflow.PhasePatching:
			s.Suffix = " Generating patch..."
			s.Start()
		default:
			s.Stop()
		}
	})
	defer unsubscribe()

	ctx := contextOf(cmd)
	if err := ctrl.Analyze(ctx); err != nil {
		return err
	}

	v := ctrl.View()
	if v.Phase == workflow.PhaseAnalysisFailed {
		if human {
			printError(out, "Analysis failed")
			formatter.DisplayError(out, v.LastError)
		} else if err := formatter.DisplayReport(out, formatter.NewReport(v), format); err != nil {
			return err
		}
		return fmt.Errorf("analysis failed: %s", v.LastError)
	}

	if human {
		printSuccess(out, "Analysis complete")
		formatter.DisplayFindings(out, v.Findings)
	}

	wantPatch, err := o.decidePatch()
	if err != nil {
		return err
	}

	var patchErr error
	if wantPatch {
		if err := ctrl.GeneratePatch(ctx); err != nil {
			return err
		}
		v = ctrl.View()
		if v.Phase == workflow.PhasePatchFailed {
			patchErr = fmt.Errorf("patch generation failed: %s", v.LastError)
			if human {
				printError(out, "Patch generation failed")
				formatter.DisplayError(out, v.LastError)
			}
		} else if human {
			printSuccess(out, "Patch generated")
			formatter.DisplayPatches(out, v.Patches)
		}
	}

	if !human {
		if err := formatter.DisplayReport(out, formatter.NewReport(ctrl.View()), format); err != nil {
			return err
		}
	}
	return patchErr
}

func (o *scanOptions) decidePatch() (bool, error) {
	switch {
	case o.patch:
		return true, nil
	case o.noPatch:
		return false, nil
	case !o.interactive():
		return false, nil
	}
	return o.confirm()
}

func isInteractive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func confirmPatch() (bool, error) {
	var ok bool
	err := huh.NewConfirm().
		Title("Do you want to generate a patch?").
		Description("The service will rewrite the affected files to fix the reported vulnerabilities.").
		Value(&ok).
		Affirmative("Yes").
		Negative("No").
		Run()
	return ok, err
}
