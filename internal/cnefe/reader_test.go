package cnefe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDiscoverFiles_RecursiveAndSorted(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "b/35_SP.TXT", "")
	writeFixture(t, dir, "a/33_RJ.txt", "")
	writeFixture(t, dir, "a/notes.csv", "")

	paths, err := DiscoverFiles(dir)
	require.NoError(t, err)
	require.Len(t, paths, 2)
	assert.True(t, strings.HasSuffix(paths[0], "33_RJ.txt"))
	assert.True(t, strings.HasSuffix(paths[1], "35_SP.TXT"))
}

func TestDiscoverFiles_MissingRoot(t *testing.T) {
	_, err := DiscoverFiles(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestReadFile_ParsesRecords(t *testing.T) {
	dir := t.TempDir()
	line := testLine(defaultFields())
	path := writeFixture(t, dir, "35_SP.txt", line+"\n"+line+"\n")

	recs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "RUA DEZ", recs[0].Address)
}

func TestReadFile_SkipsMalformedLines(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "35_SP.txt", "short\n"+testLine(defaultFields())+"\n")

	recs, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReadFile_DecodesLatin1(t *testing.T) {
	dir := t.TempDir()

	f := defaultFields()
	f[66] = "SAO JOÃO"
	utf8Line := testLine(f)

	// Encode the fixture the way IBGE ships it.
	enc, err := charmap.ISO8859_1.NewEncoder().String(utf8Line)
	require.NoError(t, err)
	path := writeFixture(t, dir, "35_SP.txt", enc+"\n")

	recs, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "RUA SAO JOÃO", recs[0].Address)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}
