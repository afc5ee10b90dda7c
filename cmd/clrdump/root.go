package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFile string
	output     io.Writer
	lazyLoad   bool
)

var rootCmd = &cobra.Command{
	Use:   "clrdump",
	Short: "CLR metadata viewer and analyzer",
	Long: `clrdump is a command-line tool for inspecting the ECMA-335
CLI/CLR metadata embedded in .NET PE images.

It can display the CLI header, metadata streams, table contents,
the GUID heap, manifest resources, and method definitions.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if outputFile != "" {
			f, err := os.Create(outputFile)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			output = f
		} else {
			output = os.Stdout
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if f, ok := output.(*os.File); ok && f != os.Stdout {
			f.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "", "write output to file instead of stdout")
	rootCmd.PersistentFlags().BoolVar(&lazyLoad, "lazy", false, "defer parsing the tables stream and resources until first access")

	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(stringsCmd)
	rootCmd.AddCommand(resourcesCmd)
	rootCmd.AddCommand(methodsCmd)
	rootCmd.AddCommand(dumpCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
