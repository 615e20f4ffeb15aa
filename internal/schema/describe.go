package schema

import (
	"fmt"
	"strings"
)

// Describe renders the whitelist as prompt-ready text: one block per table
// listing columns and foreign keys.
func (w *Whitelist) Describe() string {
	var b strings.Builder
	b.WriteString("Database Schema:\n")

	for _, t := range w.tables {
		fmt.Fprintf(&b, "\nTable: %s\n", t.Name)
		for _, c := range t.Columns {
			b.WriteString("  - ")
			b.WriteString(c.Name)
			if c.Type != "" {
				b.WriteString(" ")
				b.WriteString(c.Type)
			}
			if c.PrimaryKey {
				b.WriteString(" PRIMARY KEY")
			}
			if c.NotNull && !c.PrimaryKey {
				b.WriteString(" NOT NULL")
			}
			b.WriteString("\n")
		}
		for _, fk := range t.ForeignKeys {
			ref := fk.RefTable
			if fk.RefColumn != "" {
				ref += "(" + fk.RefColumn + ")"
			}
			fmt.Fprintf(&b, "  * %s -> %s\n", fk.Column, ref)
		}
	}

	return b.String()
}
