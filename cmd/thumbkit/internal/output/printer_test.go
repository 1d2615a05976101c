package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrinterPlain(t *testing.T) {
	buf := new(bytes.Buffer)
	p := NewPrinter(buf, false)

	p.Field("Product", "%s", "水杯")
	p.Success("archive written")
	p.Warning("%d over budget", 1)
	p.Error("failed: %s", "broken.png")

	assert.Equal(t, "Product:   水杯\n✓ archive written\n⚠ 1 over budget\n✗ failed: broken.png\n", buf.String())
}

func TestPrinterColors(t *testing.T) {
	buf := new(bytes.Buffer)
	NewPrinter(buf, true).Success("done")
	assert.Contains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "done")
}

func TestPrinterTable(t *testing.T) {
	buf := new(bytes.Buffer)
	err := NewPrinter(buf, false).Table([]string{"profile", "budget"}, [][]string{
		{"450x800", "2000 KB"},
		{"720x1280", "1000 KB"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "PROFILE")
	assert.Contains(t, out, "450x800")
	assert.Contains(t, out, "1000 KB")
}

func TestResolveColors(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	assert.False(t, ResolveColors(new(bytes.Buffer)))
}
