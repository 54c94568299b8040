package metadata

import (
	"errors"
	"fmt"
	"io"
	"os"

	mboxlib "github.com/emersion/go-mbox"
	"github.com/emersion/go-message"
)

// ScanMbox opens an mbox file and calls fn with the metadata of each
// message in it. Messages that cannot be parsed are skipped so a single
// corrupt entry does not abort the scan.
func ScanMbox(path string, fn func(md Metadata) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open mbox: %w", err)
	}
	defer file.Close()

	return scanMbox(file, fn)
}

func scanMbox(r io.Reader, fn func(md Metadata) error) error {
	reader := mboxlib.NewReader(r)

	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("next message: %w", err)
		}

		entity, err := message.Read(msgReader)
		if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
			// try to continue
			continue
		}
		if entity == nil {
			continue
		}

		if err := fn(FromHeader(entity.Header)); err != nil {
			return err
		}
	}
}
