package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

const (
	spoolTemplate = "template.ansi"
	spoolMarker   = "capture.json"
)

// SpoolDevice reads samples the vendor capture tool drops into Dir: the ANSI
// template first, then capture.json ({"quality": n}) as the completion
// marker.  A missing Dir means the reader is not connected.
type SpoolDevice struct {
	Dir string
}

type spoolMarkerFile struct {
	Quality int `json:"quality"`
}

func (d SpoolDevice) Begin(context.Context) error {
	st, err := os.Stat(d.Dir)
	if err != nil || !st.IsDir() {
		return ErrNotConnected
	}
	// Leftovers from an earlier capture must not be mistaken for this one.
	return d.clear()
}

func (d SpoolDevice) Poll(context.Context) (*types.CapturedSample, error) {
	raw, err := os.ReadFile(filepath.Join(d.Dir, spoolMarker))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spoolMarker, err)
	}

	var marker spoolMarkerFile
	if err := json.Unmarshal(raw, &marker); err != nil {
		// The tool may still be writing the marker.
		return nil, nil
	}

	tpl, err := os.ReadFile(filepath.Join(d.Dir, spoolTemplate))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", spoolTemplate, err)
	}
	if len(tpl) == 0 {
		return nil, nil
	}

	return &types.CapturedSample{Template: tpl, Quality: marker.Quality}, nil
}

func (d SpoolDevice) Release() error { return d.clear() }

func (d SpoolDevice) clear() error {
	for _, name := range []string{spoolMarker, spoolTemplate} {
		if err := os.Remove(filepath.Join(d.Dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear spool %s: %w", name, err)
		}
	}
	return nil
}
