package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/blog-api/internal/auth"
)

func TestRun_WritesLoadablePair(t *testing.T) {
	dir := t.TempDir()
	privatePath := filepath.Join(dir, "private.pem")
	publicPath := filepath.Join(dir, "public.pem")

	var out bytes.Buffer
	err := run([]string{"--private-out", privatePath, "--public-out", publicPath}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "AUTH_PRIVATE_KEY_PATH="+privatePath)

	keys, err := auth.LoadKeyPairFromFiles(privatePath, publicPath)
	require.NoError(t, err)
	assert.Equal(t, 2048, keys.Private.N.BitLen())
}

func TestRun_RefusesOverwriteWithoutForce(t *testing.T) {
	dir := t.TempDir()
	args := []string{
		"--private-out", filepath.Join(dir, "private.pem"),
		"--public-out", filepath.Join(dir, "public.pem"),
	}

	require.NoError(t, run(args, &bytes.Buffer{}))
	assert.Error(t, run(args, &bytes.Buffer{}))
	assert.NoError(t, run(append(args, "--force"), &bytes.Buffer{}))
}

func TestRun_RejectsSmallKeys(t *testing.T) {
	dir := t.TempDir()
	err := run([]string{"--bits", "1024", "--private-out", filepath.Join(dir, "k"), "--public-out", filepath.Join(dir, "p")}, &bytes.Buffer{})
	assert.Error(t, err)
}
