package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"table", FormatTable, false},
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"yaml", FormatYAML, false},
		{"yml", FormatYAML, false},
		{" json ", FormatJSON, false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
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

func TestPrintTable(t *testing.T) {
	t.Parallel()

	data := NewTableData("Name", "Backend")
	data.AddRow("media", "s3")
	data.AddRow("scratch", "fs")

	var buf bytes.Buffer
	require.NoError(t, PrintTable(&buf, data))

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "media")
	assert.Contains(t, out, "scratch")
}

func TestPrinterJSONFallbackForNonTable(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, false)
	require.NoError(t, p.Print(map[string]string{"name": "media"}))

	var decoded map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "media", decoded["name"])
}

func TestPrintYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, PrintYAML(&buf, map[string]int{"sort_order": 3}))
	assert.Contains(t, buf.String(), "sort_order: 3")
}

func TestPrinterColorMessages(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	p := NewPrinter(&buf, FormatTable, true)
	p.Success("created")
	assert.Contains(t, buf.String(), "\033[32m")

	buf.Reset()
	plain := NewPrinter(&buf, FormatTable, false)
	plain.Error("failed")
	assert.Equal(t, "failed\n", buf.String())
}
