package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhcgn/mht-to-tsv/unpack"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack [archive] [directory]",
	Short: "Write every part of an .mht archive into a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()

		written, err := unpack.Unpack(f, args[1], slog.Default())
		if err != nil {
			return err
		}

		fmt.Printf("Unpacked %d files to %s\n", written, args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unpackCmd)
}
