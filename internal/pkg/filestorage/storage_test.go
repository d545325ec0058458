package filestorage

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorage_SaveAndDelete(t *testing.T) {
	dir := t.TempDir()
	ls, err := NewLocalStorage(dir, "http://localhost:8080/uploads/")
	require.NoError(t, err)

	url, err := ls.Save("Thumb.PNG", strings.NewReader("png-bytes"), "thumbnails")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:8080/uploads/thumbnails/"), url)
	assert.True(t, strings.HasSuffix(url, ".png"), url)

	full := ls.GetFullPath(url)
	data, err := os.ReadFile(full)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	require.NoError(t, ls.DeleteFile(url))
	_, err = os.Stat(full)
	assert.True(t, os.IsNotExist(err))

	// deleting twice is fine
	require.NoError(t, ls.DeleteFile(url))
}

func TestLocalStorage_RelativeURLs(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	url, err := ls.Save("a.jpg", strings.NewReader("x"), "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "/uploads/"), url)
	assert.FileExists(t, ls.GetFullPath(url))
}

func TestLocalStorage_RejectsEscapingPaths(t *testing.T) {
	ls, err := NewLocalStorage(t.TempDir(), "")
	require.NoError(t, err)

	_, err = ls.Save("a.jpg", strings.NewReader("x"), "../outside")
	assert.Error(t, err)

	assert.Empty(t, ls.GetFullPath("/uploads/../../etc/passwd"))
	assert.Error(t, ls.DeleteFile("/uploads/../../etc/passwd"))
}
