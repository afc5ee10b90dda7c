package main

import (
	"fmt"

	"github.com/h2non/filetype"
	"github.com/mlsorensen/clrdump/clr"
	"github.com/spf13/cobra"
)

var resourcesCmd = &cobra.Command{
	Use:   "resources <pe-file>",
	Short: "List manifest resources",
	Long: `List every ManifestResource row: whether it's internal (embedded
in this image), or points at an external File/AssemblyRef. Internal
resources are further classified as decoded .resources sets or raw
payloads, with raw payloads sniffed for a known file type.`,
	Args: cobra.ExactArgs(1),
	RunE: runResources,
}

func runResources(cmd *cobra.Command, args []string) error {
	img, err := clr.Open(args[0], clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	for _, r := range img.Resources() {
		fmt.Fprintf(output, "%s", r.Row.Name())
		switch r.Kind {
		case clr.ResourceFile:
			fmt.Fprintf(output, " -> file %s\n", clr.FileRow{Row: r.FileRow}.Name())
			continue
		case clr.ResourceAssembly:
			fmt.Fprintf(output, " -> assembly %s\n", clr.AssemblyRefRow{Row: r.AssemblyRefRow}.Name())
			continue
		}

		switch {
		case r.Set != nil:
			fmt.Fprintf(output, " (.resources set, %d entries)\n", len(r.Set.Entries))
			for _, e := range r.Set.Entries {
				fmt.Fprintf(output, "    %s: type=%s", e.Name, e.TypeName)
				if e.Warning != "" {
					fmt.Fprintf(output, " (%s)", e.Warning)
				} else {
					fmt.Fprintf(output, " value=%v", e.Data)
				}
				fmt.Fprintln(output)
			}
		case r.Raw != nil:
			kind := describeFileType(r.Raw)
			fmt.Fprintf(output, " (raw, %d bytes, sniffed type %s)\n", len(r.Raw), kind)
		default:
			fmt.Fprintf(output, " (no data)\n")
		}
	}
	return nil
}

func describeFileType(data []byte) string {
	kind, _ := filetype.Match(data)
	if kind == filetype.Unknown {
		return "unknown"
	}
	return kind.MIME.Value
}
