package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type methodRow struct {
	Name    string `json:"name" yaml:"name"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

type methodRows []methodRow

func (m methodRows) Headers() []string { return []string{"Method", "Enabled"} }

func (m methodRows) Rows() [][]string {
	var rows [][]string
	for _, r := range m {
		enabled := "no"
		if r.Enabled {
			enabled = "yes"
		}
		rows = append(rows, []string{r.Name, enabled})
	}
	return rows
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{" JSON ", FormatJSON, false},
		{"yml", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrinter(t *testing.T) {
	data := methodRows{{Name: "kerberos", Enabled: true}, {Name: "passwd"}}

	t.Run("Table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(data))
		out := buf.String()
		assert.Contains(t, out, "METHOD")
		assert.Contains(t, out, "kerberos")
		assert.Contains(t, out, "yes")
	})

	t.Run("JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatJSON).Print(data))
		var got []methodRow
		require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []methodRow(data), got)
	})

	t.Run("YAML", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatYAML).Print(data))
		var got []methodRow
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
		assert.Equal(t, []methodRow(data), got)
	})

	t.Run("TableFallsBackToJSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, FormatTable).Print(map[string]int{"tries": 3}))
		assert.JSONEq(t, `{"tries":3}`, buf.String())
	})
}

func TestKeyValues(t *testing.T) {
	kv := KeyValues{{"Version", "1.0.0"}, {"Commit", "abc123"}}
	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, kv))
	assert.Contains(t, buf.String(), "Version")
	assert.Contains(t, buf.String(), "abc123")
}
