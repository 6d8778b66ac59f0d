package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sigkit.yaml")
	t.Setenv("SIGKIT_TEST_PASSWORD", "s3cret")
	content := `
container: signer.p12
password: ${SIGKIT_TEST_PASSWORD}
digest: sha384
detached: true
attributes:
  - oid: 1.3.6.1.4.1.57264.1.1
    value: release
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	profile, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", profile.Password)
	assert.Equal(t, "sha384", profile.Digest)
	assert.True(t, profile.Detached)
	assert.Equal(t, filepath.Join(dir, "signer.p12"), profile.ContainerPath())

	attrs, err := profile.CMSAttributes()
	require.NoError(t, err)
	require.Len(t, attrs, 1)
	assert.Equal(t, "1.3.6.1.4.1.57264.1.1", attrs[0].Type.String())
}

func TestLoadProfileValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")

	// container is required
	require.NoError(t, os.WriteFile(path, []byte("digest: sha256\n"), 0600))
	_, err := LoadProfile(path)
	assert.ErrorContains(t, err, "validate profile")

	// unknown digest
	require.NoError(t, os.WriteFile(path, []byte("container: a.p12\ndigest: md5\n"), 0600))
	_, err = LoadProfile(path)
	assert.ErrorContains(t, err, "validate profile")
}

func TestParseOID(t *testing.T) {
	oid, err := parseOID("1.2.840.113549.1.9.4")
	require.NoError(t, err)
	assert.Equal(t, "1.2.840.113549.1.9.4", oid.String())

	_, err = parseOID("42")
	assert.Error(t, err)
	_, err = parseOID("1.two.3")
	assert.Error(t, err)
}
