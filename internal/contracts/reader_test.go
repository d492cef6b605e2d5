package contracts

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestRead_PlainLines(t *testing.T) {
	path := writeFile(t, "contratos.txt", []byte("90001234\n\n  90005678  \n90001234\n90009999\n"))

	got, skipped, err := Read(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"90001234", "90005678", "90009999"}, got)
	assert.Zero(t, skipped)
}

func TestRead_DelimitedLastField(t *testing.T) {
	data := "ORGAO;UF;CONTRATO\n0123;SP;90001234\n0124;RJ;90005678\n0125;MG;90001234\n"
	path := writeFile(t, "export.csv", []byte(data))

	got, skipped, err := Read(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"90001234", "90005678"}, got)
	assert.Equal(t, 1, skipped, "header line skipped")
}

func TestRead_NonNumericSkipped(t *testing.T) {
	path := writeFile(t, "contratos.txt", []byte("90001234\nTOTAL GERAL\n9000-5678\n90005678\n"))

	got, skipped, err := Read(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"90001234", "90005678"}, got)
	assert.Equal(t, 2, skipped)
}

func TestRead_BOM(t *testing.T) {
	path := writeFile(t, "contratos.txt", []byte("\uFEFF90001234\n90005678\n"))

	got, _, err := Read(path, "utf-8")
	require.NoError(t, err)
	assert.Equal(t, []string{"90001234", "90005678"}, got)
}

func TestRead_Latin1Gzip(t *testing.T) {
	// The regulator's export: Latin-1, ';' delimited, gzipped. "ÓRGÃO" in
	// Latin-1 has single-byte accents.
	raw := []byte("\xd3RG\xc3O;CONTRATO\n0123;90001234\n0124;90005678\n")
	path := filepath.Join(t.TempDir(), "export.csv.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	_, err = gz.Write(raw)
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())

	got, skipped, err := Read(path, "latin-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"90001234", "90005678"}, got)
	assert.Equal(t, 1, skipped)
}

func TestRead_UnsupportedEncoding(t *testing.T) {
	path := writeFile(t, "contratos.txt", []byte("90001234\n"))

	_, _, err := Read(path, "utf-16")
	assert.Error(t, err)
}

func TestRead_MissingFile(t *testing.T) {
	_, _, err := Read(filepath.Join(t.TempDir(), "nope.txt"), "utf-8")
	assert.Error(t, err)
}
