package cli

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer

	got, err := GetSimpleText(bufio.NewReader(strings.NewReader("  hello \nnext\n")), "Say", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
	assert.Equal(t, "Say\n> ", out.String())

	got, err = GetSimpleText(bufio.NewReader(strings.NewReader("partial")), "Say", io.Discard)
	require.NoError(t, err)
	assert.Equal(t, "partial", got)

	_, err = GetSimpleText(bufio.NewReader(strings.NewReader("")), "Say", io.Discard)
	require.ErrorIs(t, err, io.EOF)
}

func TestGetPassword(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })

	readPassword = func(int) ([]byte, error) { return []byte("pw"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, []byte("pw"), pw)
	assert.Equal(t, "Enter password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("not a terminal") }
	_, err = GetPassword(io.Discard)
	require.Error(t, err)
}

func TestGetFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logo.png")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n"), 0o600))

	f, err := GetFile(bufio.NewReader(strings.NewReader(path+"\n")), "Logo", io.Discard)
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.Equal(t, "logo.png", f.Name)
	assert.Equal(t, "image/png", f.ContentType)

	content, err := io.ReadAll(f.Content)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG\r\n\x1a\n"), content)

	f, err = GetFile(bufio.NewReader(strings.NewReader("\n")), "Logo", io.Discard)
	require.NoError(t, err)
	assert.Nil(t, f)

	_, err = GetFile(bufio.NewReader(strings.NewReader(filepath.Join(dir, "missing.png")+"\n")), "Logo", io.Discard)
	require.Error(t, err)
}
