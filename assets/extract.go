// Package assets extracts the embedded media of an archive into a
// temporary container, keyed by canonical content location.
package assets

import (
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/dhcgn/mht-to-tsv/mht"
	"github.com/dhcgn/mht-to-tsv/stats"
)

// DefaultStructuralExtensions mark parts that describe the archive
// itself rather than embedded media. OneNote exports carry their page
// as .htm and a manifest as .xml next to the real assets.
var DefaultStructuralExtensions = []string{".htm", ".xml"}

const timestampLayout = "2006-01-02-15-04-05"

// Index maps canonical content locations to extracted asset records.
// The first asset stored for a location wins; later writes to the same
// location are rejected.
type Index struct {
	byPath map[string]*Record
	order  []*Record
}

func NewIndex() *Index {
	return &Index{byPath: make(map[string]*Record)}
}

func (ix *Index) Lookup(canonical string) (*Record, bool) {
	rec, ok := ix.byPath[canonical]
	return rec, ok
}

func (ix *Index) Len() int {
	return len(ix.order)
}

// Records returns the extracted assets in archive order.
func (ix *Index) Records() []*Record {
	return append([]*Record(nil), ix.order...)
}

// Add stores rec under its canonical path and reports whether it was
// stored. A record for the same path already present wins.
func (ix *Index) Add(rec *Record) bool {
	if _, exists := ix.byPath[rec.CanonicalPath]; exists {
		return false
	}
	ix.byPath[rec.CanonicalPath] = rec
	ix.order = append(ix.order, rec)
	return true
}

type Options struct {
	// CapturedAt stamps every generated asset name. Zero means now.
	CapturedAt time.Time

	// StructuralExtensions overrides DefaultStructuralExtensions.
	StructuralExtensions []string
}

// Extractor walks attachments and materializes embedded media into a
// Store, deduplicating by canonical content location.
type Extractor struct {
	store      *Store
	collector  *stats.Collector
	logger     *slog.Logger
	prefix     string
	structural map[string]struct{}
	index      *Index
	names      map[string]struct{}
}

func NewExtractor(store *Store, opts Options, collector *stats.Collector, logger *slog.Logger) *Extractor {
	capturedAt := opts.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now()
	}

	exts := opts.StructuralExtensions
	if exts == nil {
		exts = DefaultStructuralExtensions
	}
	structural := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		structural[strings.ToLower(ext)] = struct{}{}
	}

	return &Extractor{
		store:      store,
		collector:  collector,
		logger:     logger,
		prefix:     capturedAt.Format(timestampLayout),
		structural: structural,
		index:      NewIndex(),
		names:      make(map[string]struct{}),
	}
}

// ExtractAll drains the walker and stores every extractable attachment.
// Structural parts, duplicates and parts without a usable location are
// counted and skipped; only I/O failures abort.
func (x *Extractor) ExtractAll(w *mht.Walker) (*Index, error) {
	for w.Next() {
		att := w.Attachment()
		x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeScanned, Path: att.Part.ContentLocation})

		if x.isStructural(extensionForType(att.MediaType)) {
			x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeStructural, Path: att.Part.ContentLocation})
			continue
		}

		canonical, ok := CanonicalPath(att.Part.ContentLocation)
		if !ok {
			x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeNoLocation})
			if x.logger != nil {
				x.logger.Warn("attachment has no usable content location", "mediaType", att.MediaType, "filename", att.Filename)
			}
			continue
		}

		if _, exists := x.index.Lookup(canonical); exists {
			x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeDuplicate, Path: canonical})
			continue
		}

		rec, err := x.store.put(x.uniqueName(path.Base(canonical)), att.Content)
		if err != nil {
			x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeError, Err: err})
			return nil, err
		}
		rec.CanonicalPath = canonical
		x.index.Add(rec)
		x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeExtracted, Path: canonical})
	}

	for i := 0; i < w.Skipped(); i++ {
		x.observe(stats.Event{Stage: stats.StageAssets, Type: stats.EventTypeDecodeSkip})
	}

	return x.index, nil
}

func (x *Extractor) isStructural(ext string) bool {
	_, ok := x.structural[ext]
	return ok
}

// uniqueName builds the timestamped output filename for an asset,
// appending a counter when distinct locations share a basename.
func (x *Extractor) uniqueName(base string) string {
	name := x.prefix + "_" + base
	for n := 2; ; n++ {
		if _, taken := x.names[name]; !taken {
			break
		}
		name = fmt.Sprintf("%s_%d_%s", x.prefix, n, base)
	}
	x.names[name] = struct{}{}
	return name
}

func (x *Extractor) observe(evt stats.Event) {
	if x.collector != nil {
		x.collector.Observe(evt)
	}
}

// CanonicalPath reduces a Content-Location to the cleaned path that keys
// the asset index. Scheme and host do not participate in matching. The
// second return is false when the location yields no path at all.
func CanonicalPath(location string) (string, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		return "", false
	}

	p := location
	if u, err := url.Parse(location); err == nil {
		p = u.Path
	}
	if p == "" {
		return "", false
	}
	return path.Clean(p), true
}

func extensionForType(mediaType string) string {
	exts, err := mime.ExtensionsByType(mediaType)
	if err != nil || len(exts) == 0 {
		return ""
	}
	return exts[0]
}
