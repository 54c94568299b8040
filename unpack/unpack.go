// Package unpack writes the parts of an archive back to disk as plain
// files, mirroring their content locations.
package unpack

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dhcgn/mht-to-tsv/mht"
)

// DefaultRootName names parts that carry no content location, normally
// just the root document.
const DefaultRootName = "index.html"

// Unpack parses the archive from r and writes the decoded body of each
// top level part into dir, one file per part at its literal content
// location. Later parts at the same location overwrite earlier ones.
// Locations that would escape dir are skipped with a warning. It
// returns the number of files written.
func Unpack(r io.Reader, dir string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root, err := mht.Parse(r)
	if err != nil {
		return 0, err
	}

	parts := []*mht.Part{root}
	if root.IsMultipart() {
		parts = root.Children
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create target directory: %w", err)
	}

	written := 0
	for _, p := range parts {
		if p.IsMultipart() {
			logger.Warn("skipping nested container part", "mediaType", p.MediaType)
			continue
		}

		location := p.ContentLocation
		if location == "" {
			location = DefaultRootName
		}

		rel := filepath.FromSlash(location)
		if !filepath.IsLocal(rel) {
			logger.Warn("skipping part whose location escapes the target directory", "location", location)
			continue
		}
		if p.BodyErr != nil {
			logger.Warn("part body decoded with errors, writing partial content", "location", location, "err", p.BodyErr)
		}

		dest := filepath.Join(dir, rel)
		if parent := filepath.Dir(dest); parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return written, fmt.Errorf("create directory for %s: %w", location, err)
			}
		}
		if err := os.WriteFile(dest, p.Body, 0o644); err != nil {
			return written, fmt.Errorf("write %s: %w", location, err)
		}
		written++
	}

	return written, nil
}
