// Package runner wires the conversion phases into one sequential
// pipeline: parse the archive, extract its assets, transform the
// document and serialize the card rows.
package runner

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dhcgn/mht-to-tsv/assets"
	"github.com/dhcgn/mht-to-tsv/cards"
	"github.com/dhcgn/mht-to-tsv/config"
	"github.com/dhcgn/mht-to-tsv/mht"
	"github.com/dhcgn/mht-to-tsv/stats"
)

// Options tune a single Convert run.
type Options struct {
	// CapturedAt stamps generated asset names. Zero means now.
	CapturedAt time.Time

	// TempDir is the parent directory for the temporary asset
	// container. Empty means the system default.
	TempDir string

	// Logger receives per-part diagnostics. Optional.
	Logger *slog.Logger

	// Collector receives pipeline events. Optional; Convert creates
	// one when nil so the result always carries a summary.
	Collector *stats.Collector
}

// Result of a completed conversion. The extracted assets still live in
// the temporary container behind Store; the caller moves them where
// they belong and then cleans the store up.
type Result struct {
	TSV     string
	Assets  []*assets.Record
	Store   *assets.Store
	Summary stats.Summary
}

// Convert runs the conversion phases in order on a single archive:
// parse the MIME tree, extract the embedded assets, locate the root
// HTML document, rewrite its image references and serialize the first
// table as card rows. On error the temporary container is already
// cleaned up; on success the caller owns the returned Store.
func Convert(archive []byte, opts Options) (*Result, error) {
	logger := opts.Logger
	collector := opts.Collector
	if collector == nil {
		collector = stats.NewCollector()
	}

	root, err := mht.Parse(bytes.NewReader(archive))
	if err != nil {
		return nil, fmt.Errorf("parse archive: %w", err)
	}

	store, err := assets.NewStore(opts.TempDir)
	if err != nil {
		return nil, fmt.Errorf("asset store: %w", err)
	}
	ok := false
	defer func() {
		if ok {
			return
		}
		if cerr := store.Cleanup(); cerr != nil && logger != nil {
			logger.Warn("temporary container cleanup failed", "err", cerr)
		}
	}()

	extractor := assets.NewExtractor(store, assets.Options{CapturedAt: opts.CapturedAt}, collector, logger)
	index, err := extractor.ExtractAll(mht.NewWalker(root, false))
	if err != nil {
		return nil, fmt.Errorf("extract assets: %w", err)
	}

	doc, err := mht.FindHTML(root)
	if err != nil {
		return nil, fmt.Errorf("locate html document: %w", err)
	}
	if doc.BodyErr != nil {
		return nil, fmt.Errorf("html document body: %w", doc.BodyErr)
	}

	parsed, err := cards.ParseDocument(doc.Body, doc.EffectiveContentType())
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	transformer := &cards.Transformer{
		RootDir:   cards.RootDir(doc.ContentLocation),
		Index:     index,
		Collector: collector,
		Logger:    logger,
	}

	var out strings.Builder
	w := cards.NewTSVWriter(&out)
	if err := transformer.Rows(parsed, w.WriteRow); err != nil {
		return nil, fmt.Errorf("extract rows: %w", err)
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}

	ok = true
	return &Result{
		TSV:     out.String(),
		Assets:  index.Records(),
		Store:   store,
		Summary: collector.Snapshot(),
	}, nil
}

// Run executes the conversion described by cfg: read the archive,
// convert it, write the TSV to the output path or stdout and move the
// extracted assets into the media directory. The temporary container
// is cleaned up on every path; a cleanup failure surfaces as the run's
// error when nothing else failed first.
func Run(cfg config.Config, logger *slog.Logger) (err error) {
	started := time.Now()

	archive, err := os.ReadFile(cfg.MHTPath)
	if err != nil {
		return fmt.Errorf("read archive: %w", err)
	}

	res, err := Convert(archive, Options{TempDir: cfg.TempDir, Logger: logger})
	if err != nil {
		logger.Error("conversion failed", "duration", time.Since(started), "err", err)
		return err
	}
	defer func() {
		if cerr := res.Store.Cleanup(); cerr != nil {
			logger.Warn("temporary container cleanup failed", "err", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	if err := writeTSV(cfg.OutPath, res.TSV); err != nil {
		return err
	}

	if len(res.Assets) > 0 {
		if err := os.MkdirAll(cfg.MediaDir, 0o755); err != nil {
			return fmt.Errorf("create media directory: %w", err)
		}
		for _, rec := range res.Assets {
			dest, err := res.Store.MoveTo(rec, cfg.MediaDir)
			if err != nil {
				return err
			}
			logger.Debug("asset moved", "dest", dest)
		}
	}

	attrs := append([]any{"duration", time.Since(started)}, res.Summary.LogAttrs()...)
	logger.Info("conversion completed", attrs...)
	return nil
}

func writeTSV(path, tsv string) error {
	if path == "" {
		if _, err := os.Stdout.WriteString(tsv); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, []byte(tsv), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
