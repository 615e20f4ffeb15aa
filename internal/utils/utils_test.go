package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanSQLResponse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  SELECT 1  ", "SELECT 1"},
		{"sql fence", "```sql\nSELECT name FROM students\n```", "SELECT name FROM students"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"fence with prose", "Here you go:\n```sql\nSELECT 1;\n```\nThis lists one row.", "SELECT 1;"},
		{"label", "SQL: SELECT 1", "SELECT 1"},
		{"corrected label", "Corrected SQL:\nSELECT 2", "SELECT 2"},
		{"unterminated fence", "```sql\nSELECT 3", "SELECT 3"},
		{"multiline kept", "SELECT a,\n  b\nFROM t", "SELECT a,\n  b\nFROM t"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanSQLResponse(tt.in))
		})
	}
}
