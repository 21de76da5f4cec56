package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// MaxScore is the top of the vendor scale; ByteScorer reports on the same
// scale so DefaultThreshold means the same thing in dev.
const MaxScore = 2000

// ByteScorer is the fallback used when no vendor matcher is installed: the
// fraction of equal bytes at equal offsets, scaled to MaxScore.  Only useful
// in development and tests.
type ByteScorer struct{}

func (ByteScorer) Score(_ context.Context, a, b []byte) (int, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	n := len(a)
	if len(b) > n {
		n = len(b)
	}
	same := 0
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] == b[i] {
			same++
		}
	}
	return same * MaxScore / n, nil
}

// ExecScorer runs the vendor matcher executable as
// `<Path> <tpl1.ansi> <tpl2.ansi>` and reads one JSON line from stdout.
type ExecScorer struct {
	Path string

	// Dir is where template files are staged; defaults to os.TempDir().
	Dir string
}

type execOutput struct {
	Success bool   `json:"success"`
	Matched bool   `json:"matched"`
	Score   int    `json:"score"`
	Error   string `json:"error"`
	Code    int    `json:"code"`
}

func (s ExecScorer) Score(ctx context.Context, a, b []byte) (int, error) {
	if s.Path == "" {
		return 0, errors.New("exec scorer: matcher path not set")
	}

	dir, err := os.MkdirTemp(s.Dir, "rollcall-match-")
	if err != nil {
		return 0, fmt.Errorf("exec scorer: temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	p1 := filepath.Join(dir, "tpl1.ansi")
	p2 := filepath.Join(dir, "tpl2.ansi")
	if err := os.WriteFile(p1, a, 0o600); err != nil {
		return 0, fmt.Errorf("exec scorer: write sample: %w", err)
	}
	if err := os.WriteFile(p2, b, 0o600); err != nil {
		return 0, fmt.Errorf("exec scorer: write candidate: %w", err)
	}

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, s.Path, p1, p2)
	cmd.Stdout = &stdout
	runErr := cmd.Run()
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	var out execOutput
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out); err != nil {
		if runErr != nil {
			return 0, fmt.Errorf("exec scorer: %w", runErr)
		}
		return 0, fmt.Errorf("exec scorer: parse output: %w", err)
	}
	if !out.Success {
		return 0, fmt.Errorf("exec scorer: %s (code %d)", out.Error, out.Code)
	}
	return out.Score, nil
}
