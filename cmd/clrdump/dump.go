package main

import (
	"encoding/json"
	"fmt"

	"github.com/mlsorensen/clrdump/clr"
	"github.com/spf13/cobra"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump <pe-file>",
	Short: "Dump all CLR metadata",
	Long: `Dump all decoded CLR metadata from a .NET PE image in structured
format.

Supported formats:
  - text: Human-readable text (default)
  - json: JSON format`,
	Args: cobra.ExactArgs(1),
	RunE: runDump,
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpFormat, "format", "f", "text", "output format (text, json)")
}

func runDump(cmd *cobra.Command, args []string) error {
	switch dumpFormat {
	case "json":
		return dumpJSON(args[0])
	case "text":
		return dumpText(cmd, args)
	default:
		return fmt.Errorf("unknown format: %s", dumpFormat)
	}
}

type ImageDump struct {
	File         string          `json:"file"`
	RuntimeMajor uint16          `json:"runtime_major"`
	RuntimeMinor uint16          `json:"runtime_minor"`
	Version      string          `json:"version"`
	Streams      []StreamDump    `json:"streams"`
	TableCounts  map[string]int  `json:"table_counts"`
	Resources    []ResourceDump  `json:"resources"`
	Warnings     []string        `json:"warnings"`
}

type StreamDump struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
	Size   uint32 `json:"size"`
}

type ResourceDump struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

func dumpJSON(path string) error {
	img, err := clr.Open(path, clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	dump := &ImageDump{
		File:         path,
		RuntimeMajor: img.CLIHeader.MajorRuntimeVersion,
		RuntimeMinor: img.CLIHeader.MinorRuntimeVersion,
		Version:      img.MetadataRoot.Version,
		TableCounts:  map[string]int{},
	}

	for _, s := range img.MetadataRoot.Streams {
		dump.Streams = append(dump.Streams, StreamDump{Name: s.Name, Offset: s.Offset, Size: s.Size})
	}

	for id := clr.Module; id <= clr.GenericParamConstraint; id++ {
		if t := img.Table(id); t != nil {
			dump.TableCounts[t.Def.Name] = int(t.RowCount)
		}
	}

	for _, r := range img.Resources() {
		dump.Resources = append(dump.Resources, ResourceDump{Name: r.Row.Name(), Kind: resourceKindName(r.Kind)})
	}

	for _, w := range img.Warnings() {
		dump.Warnings = append(dump.Warnings, w.String())
	}

	encoder := json.NewEncoder(output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(dump)
}

func resourceKindName(k clr.ResourceKind) string {
	switch k {
	case clr.ResourceFile:
		return "file"
	case clr.ResourceAssembly:
		return "assembly"
	default:
		return "internal"
	}
}

func dumpText(cmd *cobra.Command, args []string) error {
	fmt.Fprintln(output, "=== Info ===")
	if err := runInfo(cmd, args); err != nil {
		return err
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, "=== Tables ===")
	if err := runTables(cmd, args); err != nil {
		return err
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, "=== Resources ===")
	if err := runResources(cmd, args); err != nil {
		return err
	}

	fmt.Fprintln(output)
	fmt.Fprintln(output, "=== Methods ===")
	if err := runMethods(cmd, args); err != nil {
		return err
	}

	return nil
}
