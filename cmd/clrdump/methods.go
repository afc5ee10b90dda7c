package main

import (
	"fmt"

	"github.com/mlsorensen/clrdump/clr"
	"github.com/spf13/cobra"
)

var methodsExternal bool

var methodsCmd = &cobra.Command{
	Use:   "methods <pe-file>",
	Short: "List methods",
	Long:  `List internal (MethodDef) methods by default, or external (MemberRef) call sites with --external.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runMethods,
}

func init() {
	methodsCmd.Flags().BoolVar(&methodsExternal, "external", false, "list external MemberRef call sites instead of internal MethodDef methods")
}

func runMethods(cmd *cobra.Command, args []string) error {
	img, err := clr.Open(args[0], clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	all := img.Methods()
	var methods []*clr.Method
	if methodsExternal {
		methods = clr.ExternalMethods(all)
	} else {
		methods = clr.InternalMethods(all)
	}

	for _, m := range methods {
		if m.Owner == clr.MethodInternal {
			fmt.Fprintf(output, "%s (rva=0x%x, %d params)\n", m.Name, m.Def.RVA(), len(m.Params))
		} else {
			fmt.Fprintf(output, "%s (external)\n", m.Name)
		}
	}
	return nil
}
