package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/emersion/go-message"
	"github.com/spf13/cobra"

	"github.com/dhcgn/mht-to-tsv/metadata"
	"github.com/dhcgn/mht-to-tsv/stats"
)

var metaTopN int

var metaCmd = &cobra.Command{
	Use:   "meta [message file]",
	Short: "Show sender and receiver metadata of a MIME message or mbox archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if strings.EqualFold(filepath.Ext(path), ".mbox") {
			return mboxMeta(path)
		}
		return messageMeta(path)
	},
}

func init() {
	metaCmd.Flags().IntVarP(&metaTopN, "top", "t", 10, "Number of top senders and receivers to display for mbox archives")
	rootCmd.AddCommand(metaCmd)
}

func messageMeta(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	entity, err := message.Read(f)
	if err != nil && !message.IsUnknownCharset(err) && !message.IsUnknownEncoding(err) {
		return fmt.Errorf("read message: %w", err)
	}
	if entity == nil {
		return fmt.Errorf("read message: empty input")
	}

	meta := metadata.FromHeader(entity.Header)
	fmt.Println("Message-ID:  ", meta.MessageID)
	fmt.Println("Subject:     ", meta.Subject)
	fmt.Println("Sender:      ", meta.Sender)
	fmt.Println("Content-Type:", meta.ContentType)
	if !meta.Date.IsZero() {
		fmt.Println("Date:        ", meta.Date.Format(time.RFC3339))
	}
	for _, addr := range meta.Receivers() {
		if name := meta.Names[addr]; name != "" {
			fmt.Printf("Receiver:     %s <%s>\n", name, addr)
		} else {
			fmt.Printf("Receiver:     %s\n", addr)
		}
	}

	return nil
}

func mboxMeta(path string) error {
	senders := make(map[string]int)
	receivers := make(map[string]int)

	count := 0
	err := metadata.ScanMbox(path, func(meta metadata.Metadata) error {
		count++
		if meta.Sender != "" {
			senders[meta.Sender]++
		}
		for _, addr := range meta.Receivers() {
			receivers[addr]++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan mbox: %w", err)
	}

	fmt.Printf("Scanned %d messages\n\n", count)
	fmt.Printf("Top %d senders:\n", metaTopN)
	stats.PrettyPrintTop(senders, metaTopN)
	fmt.Println()
	fmt.Printf("Top %d receivers:\n", metaTopN)
	stats.PrettyPrintTop(receivers, metaTopN)

	return nil
}
