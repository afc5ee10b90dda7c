package main

import (
	"fmt"

	"github.com/mlsorensen/clrdump/clr"
	"github.com/spf13/cobra"
)

var stringsHeap string

var stringsCmd = &cobra.Command{
	Use:   "strings <pe-file>",
	Short: "Dump a named metadata heap",
	Long:  `Dump every entry of the #GUID heap by sequence. "guid" is the only heap --heap accepts.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runStrings,
}

func init() {
	stringsCmd.Flags().StringVar(&stringsHeap, "heap", "guid", "heap to dump: guid")
}

func runStrings(cmd *cobra.Command, args []string) error {
	img, err := clr.Open(args[0], clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	switch stringsHeap {
	case "guid":
		for i := 0; i < img.GUIDs.Len(); i++ {
			value, item := img.GUIDs.At(i)
			if item.Absent {
				continue
			}
			fmt.Fprintf(output, "[%d] %s\n", i+1, value)
		}
	default:
		return fmt.Errorf("unknown heap %q", stringsHeap)
	}

	return nil
}
