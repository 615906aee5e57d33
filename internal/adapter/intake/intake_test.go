package intake

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dylanvkmns/rqmProject/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestParse(t *testing.T) {
	input := "Date;Radar Name;pdssr;x\n" +
		"04/03/2022 00:00;S723E;81,5;\n" +
		"\n" +
		"05/03/2022;S723E;;\n"

	table, err := Parse("a.csv", strings.NewReader(input), nil)
	require.NoError(t, err)

	assert.Equal(t, "a.csv", table.Source)
	assert.Equal(t, []string{"Date", "Radar Name", "pdssr", "x"}, table.Header)
	assert.Equal(t, []domain.RawRecord{
		{Line: 2, Fields: []string{"04/03/2022 00:00", "S723E", "81,5", ""}},
		{Line: 4, Fields: []string{"05/03/2022", "S723E", "", ""}},
	}, table.Records)
}

func TestParse_KeepsRaggedRows(t *testing.T) {
	table, err := Parse("a.csv", strings.NewReader("a;b;c\n1;2\n"), nil)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Len(t, table.Records[0].Fields, 2)
}

func TestParse_StripsByteOrderMark(t *testing.T) {
	table, err := Parse("a.csv", strings.NewReader("\ufeffDate;Radar Name\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "Date", table.Header[0])
}

func TestParse_DecodesLegacyEncoding(t *testing.T) {
	encoded, err := charmap.Windows1252.NewEncoder().String("Date;Radar Name\n04/03/2022;Zaventem-Süd\n")
	require.NoError(t, err)

	table, err := Parse("a.csv", strings.NewReader(encoded), charmap.Windows1252)
	require.NoError(t, err)
	require.Len(t, table.Records, 1)
	assert.Equal(t, "Zaventem-Süd", table.Records[0].Fields[1])
}

func TestParse_Empty(t *testing.T) {
	table, err := Parse("empty.csv", strings.NewReader(""), nil)
	require.NoError(t, err)
	assert.Nil(t, table.Header)
	assert.Empty(t, table.Records)
}

func TestNewDir_UnknownEncoding(t *testing.T) {
	_, err := NewDir(t.TempDir(), "klingon", discardLogger())
	require.Error(t, err)
}

func TestDir_ListReadRemove(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.csv"), []byte("h\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.csv"), []byte("Date;Radar Name\n01/01/2024;R1\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".partial"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "archive"), 0o700))

	d, err := NewDir(dir, "utf-8", discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	files, err := d.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")}, files)

	table, err := d.Read(ctx, files[0])
	require.NoError(t, err)
	assert.Equal(t, "a.csv", table.Source)
	require.Len(t, table.Records, 1)

	require.NoError(t, d.Remove(ctx, files[0]))
	_, err = os.Stat(files[0])
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestDir_MissingFileAndDirectory(t *testing.T) {
	d, err := NewDir(filepath.Join(t.TempDir(), "absent"), "utf-8", discardLogger())
	require.NoError(t, err)
	ctx := context.Background()

	files, err := d.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)

	_, err = d.Read(ctx, filepath.Join(d.Path(), "gone.csv"))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
