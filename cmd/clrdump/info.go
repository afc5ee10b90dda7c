package main

import (
	"encoding/hex"
	"fmt"

	"github.com/mlsorensen/clrdump/clr"
	"github.com/mlsorensen/clrdump/pe"
	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info <pe-file>",
	Short: "Display PE and CLR metadata summary",
	Long:  `Display general information about a .NET PE image: PE-level triage data plus the CLI header and metadata root.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	path := args[0]

	f, err := pe.NewFile(path)
	if err != nil {
		return fmt.Errorf("failed to open PE image: %w", err)
	}
	defer f.Close()

	fmt.Fprintf(output, "File: %s\n", path)
	fmt.Fprintf(output, "Machine: 0x%04x\n", f.FileHeader.Machine)
	fmt.Fprintf(output, "Sections: %d\n", f.FileHeader.NumberOfSections)
	fmt.Fprintf(output, "Rich Header Hash: %s\n", f.RichHeaderHash())
	fmt.Fprintf(output, "Authentihash (SHA256): %s\n", hex.EncodeToString(f.Authentihash()))

	if rs := f.GetOverlay(); rs != nil {
		fmt.Fprintf(output, "Overlay present, %d bytes\n", rs.Size())
	}

	img, err := clr.Open(path, clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		fmt.Fprintf(output, "Not a CLR image, or CLR metadata is invalid: %v\n", err)
		return nil
	}

	fmt.Fprintf(output, "\nCLI Header:\n")
	fmt.Fprintf(output, "  Runtime Version: %d.%d\n", img.CLIHeader.MajorRuntimeVersion, img.CLIHeader.MinorRuntimeVersion)
	fmt.Fprintf(output, "  Flags: 0x%08x\n", img.CLIHeader.Flags)
	fmt.Fprintf(output, "  Entry Point Token: 0x%08x\n", img.CLIHeader.EntryPointToken)

	fmt.Fprintf(output, "\nMetadata Root:\n")
	fmt.Fprintf(output, "  Version: %s\n", img.MetadataRoot.Version)
	fmt.Fprintf(output, "  Streams: %d\n", img.MetadataRoot.StreamCount)
	for _, s := range img.MetadataRoot.Streams {
		fmt.Fprintf(output, "    %-10s offset=0x%x size=%d\n", s.Name, s.Offset, s.Size)
	}

	if warnings := img.Warnings(); len(warnings) > 0 {
		fmt.Fprintf(output, "\nWarnings:\n")
		for _, w := range warnings {
			fmt.Fprintf(output, "  %s\n", w.String())
		}
	}

	return nil
}
