package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/civicdesk/rollcall/internal/rollcall/capture"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
)

type enrollFlags struct {
	template string
	spool    string
	remove   bool
	list     bool
}

func NewEnrollCommand(opts *RootOptions) *cobra.Command {
	f := &enrollFlags{}

	cmd := &cobra.Command{
		Use:   "enroll [identity-id]",
		Short: "Enroll, replace or remove a member's fingerprint template",
		Long: `Store a fingerprint template for a member, replacing any earlier one.

The template comes from a file (--template) or from a live capture on the
reader's spool directory (--spool).

  rollcall enroll u-1001 --template ./u-1001.ansi
  rollcall enroll u-1001 --spool ./data/reader
  rollcall enroll u-1001 --remove
  rollcall enroll --list`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnroll(opts, f, cmd, args)
		},
	}

	cmd.Flags().StringVar(&f.template, "template", "", "path to an ANSI template file")
	cmd.Flags().StringVar(&f.spool, "spool", "", "capture the template from this reader spool directory")
	cmd.Flags().BoolVar(&f.remove, "remove", false, "remove the member's template")
	cmd.Flags().BoolVar(&f.list, "list", false, "list enrolled members")
	cmd.MarkFlagsMutuallyExclusive("template", "spool", "remove", "list")

	return cmd
}

func runEnroll(opts *RootOptions, f *enrollFlags, cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if f.list {
		a, err := buildApp(ctx, opts, appOptions{})
		if err != nil {
			return err
		}
		defer a.Close()

		infos, err := a.admin.ListEnrollments(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), infos)
	}

	if len(args) != 1 {
		return WrapExitError(ExitCommandError, "enroll", fmt.Errorf("identity id is required"))
	}
	identityID := args[0]

	if !f.remove && f.template == "" && f.spool == "" {
		return WrapExitError(ExitCommandError, "enroll", fmt.Errorf("one of --template, --spool or --remove is required"))
	}

	var template []byte
	if f.template != "" {
		raw, err := os.ReadFile(f.template)
		if err != nil {
			return WrapExitError(ExitCommandError, "read template", err)
		}
		template = raw
	}

	a, err := buildApp(ctx, opts, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	if f.remove {
		if err := a.admin.Unenroll(ctx, identityID); err != nil {
			return WrapExitError(ExitFailure, "unenroll", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed template for %s\n", identityID)
		return nil
	}

	if f.spool != "" {
		capturer := capture.NewCapturer(capture.SpoolDevice{Dir: f.spool}, capture.Config{}, a.logger)
		fmt.Fprintln(cmd.ErrOrStderr(), "place finger on the reader...")
		sample, err := capturer.Capture(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "capture", service.HardwareRejection(err))
		}
		template = sample.Template
	}

	info, err := a.admin.Enroll(ctx, identityID, template)
	if err != nil {
		return WrapExitError(ExitFailure, "enroll", err)
	}
	return printJSON(cmd.OutOrStdout(), info)
}
