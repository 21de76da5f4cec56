package cli

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/civicdesk/rollcall/internal/rollcall/capture"
	"github.com/civicdesk/rollcall/internal/rollcall/service"
	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const scanBiometricPath = "/api/attendance/kiosk/scan-biometric"

type captureFlags struct {
	spool   string
	server  string
	kiosk   string
	timeout time.Duration
}

// NewCaptureCommand runs the kiosk side of a fingerprint scan: wait for the
// reader, then submit the sample to a rollcall server.
func NewCaptureCommand(opts *RootOptions) *cobra.Command {
	f := &captureFlags{}

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture a fingerprint and submit it as a kiosk scan",
		Long: `Wait for the reader to drop a sample into the spool directory, then post
it to the server's biometric scan endpoint and print the decision.

Exits 1 when the scan is rejected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCapture(opts, f, cmd)
		},
	}

	cmd.Flags().StringVar(&f.spool, "spool", "./data/reader", "directory the capture tool writes samples to")
	cmd.Flags().StringVar(&f.server, "server", "http://localhost:8080", "rollcall server base URL")
	cmd.Flags().StringVar(&f.kiosk, "kiosk", "", "kiosk device id sent with the scan")
	cmd.Flags().DurationVar(&f.timeout, "timeout", capture.DefaultTimeout, "how long to wait for a finger")

	return cmd
}

func runCapture(opts *RootOptions, f *captureFlags, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stderr)

	capturer := capture.NewCapturer(capture.SpoolDevice{Dir: f.spool}, capture.Config{Timeout: f.timeout}, logger)

	fmt.Fprintln(cmd.ErrOrStderr(), "place finger on the reader...")
	sample, err := capturer.Capture(cmd.Context())
	if err != nil {
		return WrapExitError(ExitFailure, "capture", service.HardwareRejection(err))
	}

	status, resp, err := postScan(cmd.Context(), http.DefaultClient, f.server, types.ScanBiometricRequest{
		Template:      base64.StdEncoding.EncodeToString(sample.Template),
		Quality:       sample.Quality,
		KioskDeviceID: f.kiosk,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "submit scan", err)
	}
	if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
		return err
	}
	if !resp.Success {
		return &ExitError{Code: ExitFailure, Message: fmt.Sprintf("scan rejected (%d %s)", status, resp.Code)}
	}
	return nil
}

// postScan submits one biometric scan and decodes the kiosk response, which
// has the same shape for accepted and rejected scans.
func postScan(ctx context.Context, client *http.Client, server string, req types.ScanBiometricRequest) (int, types.ScanResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, types.ScanResponse{}, err
	}

	url := strings.TrimRight(server, "/") + scanBiometricPath
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, types.ScanResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := client.Do(httpReq)
	if err != nil {
		return 0, types.ScanResponse{}, err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 64<<10))
	if err != nil {
		return res.StatusCode, types.ScanResponse{}, err
	}
	var out types.ScanResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return res.StatusCode, types.ScanResponse{}, fmt.Errorf("decode %d response: %w", res.StatusCode, err)
	}
	return res.StatusCode, out, nil
}
