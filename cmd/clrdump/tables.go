package main

import (
	"fmt"

	"github.com/mlsorensen/clrdump/clr"
	"github.com/spf13/cobra"
)

var tablesName string

var tablesCmd = &cobra.Command{
	Use:   "tables <pe-file>",
	Short: "List decoded metadata tables and row counts",
	Long:  `List every present metadata table and its row count, or dump one table's rows when --table is given.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runTables,
}

func init() {
	tablesCmd.Flags().StringVar(&tablesName, "table", "", "dump rows of one table by name (e.g. TypeDef, MethodDef)")
}

func runTables(cmd *cobra.Command, args []string) error {
	img, err := clr.Open(args[0], clr.Options{LazyLoad: lazyLoad})
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	tables := img.Tables()

	if tablesName != "" {
		return dumpOneTable(tables, tablesName)
	}

	for id := clr.Module; id <= clr.GenericParamConstraint; id++ {
		t := tables.Table(id)
		if t == nil {
			continue
		}
		fmt.Fprintf(output, "%-24s %d rows\n", t.Def.Name, t.RowCount)
	}
	return nil
}

func dumpOneTable(tables *clr.Tables, name string) error {
	for id := clr.Module; id <= clr.GenericParamConstraint; id++ {
		t := tables.Table(id)
		if t == nil || t.Def.Name != name {
			continue
		}
		for _, row := range t.Rows() {
			fmt.Fprintf(output, "[%d]", row.Index)
			for _, col := range t.Schema {
				fmt.Fprintf(output, " %s=%v", col.Name, describeColumn(row, col.Name))
			}
			fmt.Fprintln(output)
		}
		return nil
	}
	return fmt.Errorf("unknown table %q", name)
}

func describeColumn(row *clr.Row, name string) any {
	if s, ok := row.String(name); ok {
		return s
	}
	if r := row.Ref(name); r != nil {
		return fmt.Sprintf("table#%d[%d]", r.Table, r.Index)
	}
	if rl := row.RunList(name); rl != nil {
		return fmt.Sprintf("%d rows", len(rl))
	}
	return row.U32(name)
}
