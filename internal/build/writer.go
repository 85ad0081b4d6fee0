package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/scalapatisserie/muffin-site/internal/domain"
)

// rename is replaced in tests to simulate filesystem failures.
var rename = os.Rename

// Write stores the pages below outputDir. Files are first written to a
// sibling staging directory which then replaces outputDir, so readers never
// see a half written site. The previous output is kept as outputDir.prev
// until the next write.
func Write(outputDir string, pages []*domain.Page) (err error) {
	outputDir = filepath.Clean(outputDir)
	stage := outputDir + "_stage"
	prev := outputDir + ".prev"

	if err := os.RemoveAll(stage); err != nil {
		return fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if err := os.MkdirAll(stage, 0o755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(stage)
		}
	}()

	for _, p := range pages {
		if err := writePage(stage, p); err != nil {
			return err
		}
	}

	if err := os.RemoveAll(prev); err != nil {
		return fmt.Errorf("failed to remove previous backup: %w", err)
	}
	if _, err := os.Stat(outputDir); err == nil {
		if err := rename(outputDir, prev); err != nil {
			return fmt.Errorf("failed to back up existing output: %w", err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := rename(stage, outputDir); err != nil {
		// put the previous output back
		_ = rename(prev, outputDir)
		return fmt.Errorf("failed to promote staging directory: %w", err)
	}
	return nil
}

func writePage(root string, p *domain.Page) error {
	if p.File == "" || filepath.IsAbs(p.File) || strings.Contains(p.File, "..") {
		return fmt.Errorf("refusing to write %q for route %s", p.File, p.Route)
	}
	dst := filepath.Join(root, filepath.FromSlash(p.File))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p.File, err)
	}
	if err := os.WriteFile(dst, p.Body, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", p.File, err)
	}
	return nil
}
