package sigkit

import (
	"encoding/asn1"
	"encoding/hex"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docseal/sigkit/cms"
	"github.com/docseal/sigkit/pkcs8"
)

func TestHash(t *testing.T) {
	empty, err := Hash("sha256", nil)
	require.NoError(t, err)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		hex.EncodeToString(empty))

	hello, err := Hash("sha256", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, []byte{0x2c, 0xf2}, hello[:2])

	for alg, size := range map[string]int{
		"sha1": 20, "sha256": 32, "sha384": 48, "sha512": 64,
	} {
		sum, err := Hash(alg, []byte("x"))
		require.NoError(t, err)
		assert.Len(t, sum, size, alg)
	}

	_, err = Hash("md5", nil)
	assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
}

// end to end: container in, signed document out, receipt appended
func TestContainerToSignedData(t *testing.T) {
	data, err := os.ReadFile("pkcs12/testdata/modern.p12")
	require.NoError(t, err)

	container, err := ParseContainer(data, "test123")
	require.NoError(t, err)
	require.NotEmpty(t, container.Leaf)
	require.NotEmpty(t, container.Key)
	assert.Equal(t, byte(0x30), container.Leaf[0])
	assert.Equal(t, byte(0x30), container.Key[0])

	key, err := pkcs8.Parse(container.Key)
	require.NoError(t, err)

	signed, err := BuildSignedData(cms.SignRequest{
		Content: []byte("signed via the top-level API"),
		Leaf:    container.Leaf,
		Chain:   container.Chain,
		Key:     key,
	})
	require.NoError(t, err)
	assert.Equal(t, byte(0x30), signed[0])

	extended, err := AppendUnauthenticatedAttributes(signed, []cms.Attribute{
		{Type: asn1.ObjectIdentifier{1, 3, 6, 1, 4, 1, 57264, 1, 1}, Value: "archived"},
	})
	require.NoError(t, err)
	assert.Greater(t, len(extended), len(signed))
}

func TestParseContainerWrongPassword(t *testing.T) {
	data, err := os.ReadFile("pkcs12/testdata/modern.p12")
	require.NoError(t, err)

	_, err = ParseContainer(data, "wrong")
	assert.True(t, errors.Is(err, ErrAuthentication))
	assert.ErrorContains(t, err, "wrong password or corrupted data")
}

func TestParseContainerGarbage(t *testing.T) {
	_, err := ParseContainer([]byte{0x01, 0x02, 0x03}, "test123")
	assert.ErrorIs(t, err, ErrDecode)
}
