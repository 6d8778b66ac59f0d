package pkcs12

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/docseal/sigkit/blockcipher"
	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
	"github.com/docseal/sigkit/kdf"
)

// engine holds the password in both forms the two KDF families need
// and the digest backend everything runs on. One engine serves one
// ParseContainer call.
type engine struct {
	backend dgst.Backend
	utf8    []byte // PBKDF2 form
	bmp     []byte // RFC 7292 BMPString form
}

func newEngine(backend dgst.Backend, password string) *engine {
	if backend == nil {
		backend = dgst.DefaultBackend
	}
	return &engine{
		backend: backend,
		utf8:    []byte(password),
		bmp:     kdf.BMPString(password),
	}
}

// legacy PBE schemes: every parameter is implied by the OID
type legacyScheme struct {
	keyLen        int
	rc2           bool
	effectiveBits int
}

var legacySchemes = []struct {
	oid    asn1.ObjectIdentifier
	scheme legacyScheme
}{
	{oidPBESHA3KeyTripleDES, legacyScheme{keyLen: 24}},
	{oidPBESHA2KeyTripleDES, legacyScheme{keyLen: 16}},
	{oidPBESHA128BitRC2, legacyScheme{keyLen: 16, rc2: true, effectiveBits: 128}},
	{oidPBESHA40BitRC2, legacyScheme{keyLen: 5, rc2: true, effectiveBits: 40}},
}

// decryptPBE dispatches on the PBE algorithm OID: the four legacy
// RFC 7292 schemes or PBES2.
func (e *engine) decryptPBE(alg pkix.AlgorithmIdentifier, data []byte) ([]byte, error) {
	if alg.Algorithm.Equal(oidPBES2) {
		return e.decryptPBES2(alg.Parameters.FullBytes, data)
	}
	for _, entry := range legacySchemes {
		if alg.Algorithm.Equal(entry.oid) {
			return e.decryptLegacy(entry.scheme, alg.Parameters.FullBytes, data)
		}
	}
	return nil, fmt.Errorf("%w: PBE scheme %v", errdef.ErrUnsupportedAlgorithm, alg.Algorithm)
}

// decryptLegacy runs one of the RFC 7292 Appendix C schemes: key and
// IV both come from the legacy KDF over SHA-1.
func (e *engine) decryptLegacy(scheme legacyScheme, params, data []byte) ([]byte, error) {
	salt, iterations, err := parseLegacyPBEParams(params)
	if err != nil {
		return nil, err
	}

	key, err := kdf.PKCS12Key(e.backend, dgst.SHA1, e.bmp, salt, iterations, kdf.PurposeKey, scheme.keyLen)
	if err != nil {
		return nil, err
	}
	iv, err := kdf.PKCS12Key(e.backend, dgst.SHA1, e.bmp, salt, iterations, kdf.PurposeIV, 8)
	if err != nil {
		return nil, err
	}

	var block cipher.Block
	if scheme.rc2 {
		block, err = blockcipher.NewRC2(key, scheme.effectiveBits)
	} else {
		block, err = blockcipher.NewTripleDES(key)
	}
	if err != nil {
		return nil, err
	}
	return e.decryptCBC(block, iv, data)
}

type pbkdf2Params struct {
	salt       []byte
	iterations int
	keyLength  int // optional, 0 when absent
	prf        dgst.Algorithm
}

func (e *engine) decryptPBES2(params, data []byte) ([]byte, error) {
	input := cryptobyte.String(params)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading PBES2 parameters", errdef.ErrDecode)
	}

	kdfAlg, err := parseAlgorithmIdentifier(&seq)
	if err != nil {
		return nil, err
	}
	if !kdfAlg.Algorithm.Equal(oidPBKDF2) {
		return nil, fmt.Errorf("%w: PBES2 KDF %v", errdef.ErrUnsupportedAlgorithm, kdfAlg.Algorithm)
	}
	kdfParams, err := parsePBKDF2Params(kdfAlg.Parameters.FullBytes)
	if err != nil {
		return nil, err
	}

	encAlg, err := parseAlgorithmIdentifier(&seq)
	if err != nil {
		return nil, err
	}

	keyLen, newBlock, err := cipherForOID(encAlg.Algorithm)
	if err != nil {
		return nil, err
	}
	if kdfParams.keyLength != 0 && kdfParams.keyLength != keyLen {
		return nil, fmt.Errorf("%w: PBKDF2 key length %d does not match cipher key length %d",
			errdef.ErrStructure, kdfParams.keyLength, keyLen)
	}

	iv, err := unwrapOctetString(encAlg.Parameters.FullBytes)
	if err != nil {
		return nil, fmt.Errorf("cipher IV: %w", err)
	}

	key, err := kdf.PBKDF2(e.backend, kdfParams.prf, e.utf8, kdfParams.salt, kdfParams.iterations, keyLen)
	if err != nil {
		return nil, err
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	return e.decryptCBC(block, iv, data)
}

// cipherForOID maps a PBES2 encryption scheme OID to its key length
// and block cipher constructor. AES comes from the platform; 3DES
// from the in-repo engine.
func cipherForOID(oid asn1.ObjectIdentifier) (int, func([]byte) (cipher.Block, error), error) {
	switch {
	case oid.Equal(oidAES128CBC):
		return 16, aes.NewCipher, nil
	case oid.Equal(oidAES192CBC):
		return 24, aes.NewCipher, nil
	case oid.Equal(oidAES256CBC):
		return 32, aes.NewCipher, nil
	case oid.Equal(oidDESEDE3CBC):
		return 24, blockcipher.NewTripleDES, nil
	}
	return 0, nil, fmt.Errorf("%w: encryption scheme %v", errdef.ErrUnsupportedAlgorithm, oid)
}

func parsePBKDF2Params(data []byte) (*pbkdf2Params, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading PBKDF2 parameters", errdef.ErrDecode)
	}

	params := &pbkdf2Params{prf: dgst.SHA1} // RFC 8018 default PRF
	if !seq.ReadASN1Bytes(&params.salt, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading PBKDF2 salt", errdef.ErrDecode)
	}
	if !seq.ReadASN1Integer(&params.iterations) {
		return nil, fmt.Errorf("%w: reading PBKDF2 iterations", errdef.ErrDecode)
	}
	if !seq.Empty() && seq.PeekASN1Tag(cryptobyte_asn1.INTEGER) {
		if !seq.ReadASN1Integer(&params.keyLength) {
			return nil, fmt.Errorf("%w: reading PBKDF2 key length", errdef.ErrDecode)
		}
	}
	if !seq.Empty() {
		prfAlg, err := parseAlgorithmIdentifier(&seq)
		if err != nil {
			return nil, err
		}
		params.prf, err = prfDigest(prfAlg.Algorithm)
		if err != nil {
			return nil, err
		}
	}
	return params, nil
}

func parseLegacyPBEParams(data []byte) (salt []byte, iterations int, err error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, 0, fmt.Errorf("%w: reading PBE parameters", errdef.ErrDecode)
	}
	if !seq.ReadASN1Bytes(&salt, cryptobyte_asn1.OCTET_STRING) {
		return nil, 0, fmt.Errorf("%w: reading PBE salt", errdef.ErrDecode)
	}
	if !seq.ReadASN1Integer(&iterations) {
		return nil, 0, fmt.Errorf("%w: reading PBE iterations", errdef.ErrDecode)
	}
	return salt, iterations, nil
}

// decryptCBC decrypts and unpads, mapping padding failures to the
// ambiguous authentication error: with a wrong password the plaintext
// is noise and the padding check is where that surfaces.
func (e *engine) decryptCBC(block cipher.Block, iv, data []byte) ([]byte, error) {
	plain, err := blockcipher.CBCDecrypt(block, iv, data)
	if err != nil {
		if errors.Is(err, blockcipher.ErrInvalidPadding) {
			return nil, errdef.ErrAuthentication
		}
		return nil, err
	}
	return plain, nil
}

// decryptEncryptedData handles a PKCS#7 EncryptedData ContentInfo.
func (e *engine) decryptEncryptedData(ci contentInfo, want asn1.ObjectIdentifier) ([]byte, error) {
	var ed encryptedData
	if _, err := asn1.Unmarshal(ci.Content, &ed); err != nil {
		return nil, fmt.Errorf("%w: EncryptedData: %v", errdef.ErrDecode, err)
	}
	if ed.Version != 0 {
		return nil, fmt.Errorf("%w: EncryptedData version %d", errdef.ErrStructure, ed.Version)
	}
	if !ed.EncryptedContentInfo.ContentType.Equal(want) {
		return nil, fmt.Errorf("%w: encrypted content type %v", errdef.ErrStructure, ed.EncryptedContentInfo.ContentType)
	}
	return e.decryptPBE(ed.EncryptedContentInfo.ContentEncryptionAlgorithm, ed.EncryptedContentInfo.EncryptedContent)
}

// prfDigest maps an HMAC PRF OID to its digest.
func prfDigest(oid asn1.ObjectIdentifier) (dgst.Algorithm, error) {
	switch {
	case oid.Equal(oidHMACSHA1):
		return dgst.SHA1, nil
	case oid.Equal(oidHMACSHA256):
		return dgst.SHA256, nil
	case oid.Equal(oidHMACSHA384):
		return dgst.SHA384, nil
	case oid.Equal(oidHMACSHA512):
		return dgst.SHA512, nil
	}
	return "", fmt.Errorf("%w: PRF %v", errdef.ErrUnsupportedAlgorithm, oid)
}

// macDigest maps a MacData digest OID. Unknown OIDs are rejected
// outright; guessing a digest here would turn a wrong algorithm into
// a wrong-password report.
func macDigest(oid asn1.ObjectIdentifier) (dgst.Algorithm, error) {
	switch {
	case oid.Equal(oidSHA1):
		return dgst.SHA1, nil
	case oid.Equal(oidSHA256), oid.Equal(oidHMACSHA256):
		return dgst.SHA256, nil
	case oid.Equal(oidSHA384), oid.Equal(oidHMACSHA384):
		return dgst.SHA384, nil
	case oid.Equal(oidSHA512), oid.Equal(oidHMACSHA512):
		return dgst.SHA512, nil
	}
	return "", fmt.Errorf("%w: MAC digest %v", errdef.ErrUnsupportedAlgorithm, oid)
}

// verifyMAC checks the container HMAC over the authSafe payload. The
// MAC key comes from the legacy KDF with the MAC purpose byte.
func (e *engine) verifyMAC(pfx *PFX) error {
	md := pfx.MacData
	alg, err := macDigest(md.Algorithm)
	if err != nil {
		return err
	}

	key, err := kdf.PKCS12Key(e.backend, alg, e.bmp, md.MacSalt, md.Iterations, kdf.PurposeMAC, alg.Size())
	if err != nil {
		return err
	}
	mac, err := e.backend.NewHMAC(alg, key)
	if err != nil {
		return err
	}
	if !hmac.Equal(mac.Sum(pfx.RawAuthSafe), md.Digest) {
		return errdef.ErrAuthentication
	}
	return nil
}
