package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"
)

var settingsFlagNames = []string{"qr-enabled", "qr-expiry", "window", "start", "end", "min-minutes"}

func NewSettingsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the attendance settings",
	}
	cmd.AddCommand(newSettingsShowCommand(opts))
	cmd.AddCommand(newSettingsSetCommand(opts))
	return cmd
}

func newSettingsShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "show",
		Short:         "Print the current settings as JSON",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context(), opts, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			st, err := a.settings.Snapshot(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), st)
		},
	}
}

type settingsFlags struct {
	qrEnabled     bool
	qrExpiry      int
	windowEnabled bool
	start         string
	end           string
	minMinutes    int
}

func newSettingsSetCommand(opts *RootOptions) *cobra.Command {
	f := &settingsFlags{}

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change one or more settings",
		Long: `Change the settings named by flags; the others keep their current values.

  rollcall settings set --window --start 09:00 --end 18:00
  rollcall settings set --qr-expiry 30 --min-minutes 45`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSettingsSet(opts, f, cmd)
		},
	}

	cmd.Flags().BoolVar(&f.qrEnabled, "qr-enabled", true, "accept QR scans at kiosks")
	cmd.Flags().IntVar(&f.qrExpiry, "qr-expiry", 15, "QR token lifetime in seconds (5-120)")
	cmd.Flags().BoolVar(&f.windowEnabled, "window", false, "only allow punch-in inside start..end")
	cmd.Flags().StringVar(&f.start, "start", "", "window start, HH:MM or HH:MM:SS")
	cmd.Flags().StringVar(&f.end, "end", "", "window end, HH:MM or HH:MM:SS")
	cmd.Flags().IntVar(&f.minMinutes, "min-minutes", 30, "minimum minutes between punch-in and punch-out (0-240)")

	return cmd
}

func runSettingsSet(opts *RootOptions, f *settingsFlags, cmd *cobra.Command) error {
	changed := cmd.Flags().Changed
	if !slices.ContainsFunc(settingsFlagNames, changed) {
		return WrapExitError(ExitCommandError, "settings set",
			fmt.Errorf("nothing to change: pass at least one of --%s", strings.Join(settingsFlagNames, ", --")))
	}

	a, err := buildApp(cmd.Context(), opts, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	next, err := a.settings.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	if changed("qr-enabled") {
		next.QREnabled = f.qrEnabled
	}
	if changed("qr-expiry") {
		next.QRExpirySeconds = f.qrExpiry
	}
	if changed("window") {
		next.TimeWindowEnabled = f.windowEnabled
	}
	if changed("start") {
		next.StartTime = f.start
	}
	if changed("end") {
		next.EndTime = f.end
	}
	if changed("min-minutes") {
		next.PunchoutMinMinutes = f.minMinutes
	}

	saved, err := a.settings.Update(cmd.Context(), next)
	if err != nil {
		return WrapExitError(ExitFailure, "update settings", err)
	}
	return printJSON(cmd.OutOrStdout(), saved)
}
