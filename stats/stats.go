package stats

import (
	"fmt"
	"sort"
	"sync"
)

type Stage string

const (
	StageArchive Stage = "archive"
	StageAssets  Stage = "assets"
	StageCards   Stage = "cards"
)

type EventType string

const (
	EventTypeScanned      EventType = "scanned"
	EventTypeExtracted    EventType = "extracted"
	EventTypeDuplicate    EventType = "duplicate"
	EventTypeStructural   EventType = "structural"
	EventTypeDecodeSkip   EventType = "decode_skip"
	EventTypeNoLocation   EventType = "no_location"
	EventTypeRow          EventType = "row"
	EventTypeRowSkipped   EventType = "row_skipped"
	EventTypeRefRewritten EventType = "ref_rewritten"
	EventTypeRefMissing   EventType = "ref_missing"
	EventTypeError        EventType = "error"
)

type Event struct {
	Stage  Stage
	Type   EventType
	Path   string
	Err    error
	Detail string
}

type Summary struct {
	Attachments   int
	Extracted     int
	Duplicates    int
	Structural    int
	DecodeSkips   int
	NoLocation    int
	Rows          int
	RowsSkipped   int
	RefsRewritten int
	RefsMissing   int
	Errors        int
	LastError     error
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"attachments", s.Attachments,
		"extracted", s.Extracted,
		"duplicates", s.Duplicates,
		"structural", s.Structural,
		"decodeSkips", s.DecodeSkips,
		"noLocation", s.NoLocation,
		"rows", s.Rows,
		"rowsSkipped", s.RowsSkipped,
		"refsRewritten", s.RefsRewritten,
		"refsMissing", s.RefsMissing,
		"errors", s.Errors,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

// Observe records a single event. The conversion runs its phases
// sequentially, so callers invoke this inline rather than through a
// channel.
func (c *Collector) Observe(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Attachments++
	case EventTypeExtracted:
		c.summary.Extracted++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeStructural:
		c.summary.Structural++
	case EventTypeDecodeSkip:
		c.summary.DecodeSkips++
	case EventTypeNoLocation:
		c.summary.NoLocation++
	case EventTypeRow:
		c.summary.Rows++
	case EventTypeRowSkipped:
		c.summary.RowsSkipped++
	case EventTypeRefRewritten:
		c.summary.RefsRewritten++
	case EventTypeRefMissing:
		c.summary.RefsMissing++
	case EventTypeError:
		c.summary.Errors++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(m map[string]int, limit int) {
	type pair struct {
		Key   string
		Value int
	}

	var pairs []pair
	for k, v := range m {
		pairs = append(pairs, pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Value > pairs[j].Value
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		fmt.Printf("%d. %s (%d)\n", i+1, pairs[i].Key, pairs[i].Value)
	}
}
