package cards

import (
	"bufio"
	"fmt"
	"io"
)

// TSVWriter serializes rows as question, tab, answer, newline. That is
// the import format flashcard apps such as Anki read directly.
type TSVWriter struct {
	w *bufio.Writer
}

func NewTSVWriter(w io.Writer) *TSVWriter {
	return &TSVWriter{w: bufio.NewWriter(w)}
}

func (t *TSVWriter) WriteRow(row Row) error {
	if _, err := t.w.WriteString(row.Question); err != nil {
		return fmt.Errorf("write question: %w", err)
	}
	if err := t.w.WriteByte('\t'); err != nil {
		return fmt.Errorf("write separator: %w", err)
	}
	if _, err := t.w.WriteString(row.Answer); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	if err := t.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("write row end: %w", err)
	}
	return nil
}

// Flush writes any buffered rows to the underlying writer.
func (t *TSVWriter) Flush() error {
	if err := t.w.Flush(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	return nil
}
