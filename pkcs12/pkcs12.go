// Package pkcs12 parses password-protected PKCS#12 (PFX v3)
// containers: MAC verification, plaintext and encrypted safes, and
// the PBE schemes OpenSSL emits in both its modern and -legacy modes.
// Structural DER parsing is separated from decryption, which runs on
// the toolkit's own KDF and block cipher engines.
package pkcs12

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/docseal/sigkit/internal/errdef"
)

// OIDs from RFC 7292, RFC 8018 and the NIST algorithm registry.
var (
	oidData          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 1}
	oidEncryptedData = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 7, 6}

	oidKeyBag              = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 1}
	oidPKCS8ShroudedKeyBag = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 2}
	oidCertBag             = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 3}
	oidSafeContentsBag     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 10, 1, 6}

	oidX509Certificate = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 22, 1}

	oidFriendlyName = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 20}
	oidLocalKeyID   = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 21}

	oidPBES2      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 13}
	oidPBKDF2     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 5, 12}
	oidAES128CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 2}
	oidAES192CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 22}
	oidAES256CBC  = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 1, 42}
	oidDESEDE3CBC = asn1.ObjectIdentifier{1, 2, 840, 113549, 3, 7}

	oidPBESHA3KeyTripleDES = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 3}
	oidPBESHA2KeyTripleDES = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 4}
	oidPBESHA128BitRC2     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 5}
	oidPBESHA40BitRC2      = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 12, 1, 6}

	oidHMACSHA1   = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 7}
	oidHMACSHA256 = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 9}
	oidHMACSHA384 = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 10}
	oidHMACSHA512 = asn1.ObjectIdentifier{1, 2, 840, 113549, 2, 11}

	oidSHA1   = asn1.ObjectIdentifier{1, 3, 14, 3, 2, 26}
	oidSHA256 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 1}
	oidSHA384 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 2}
	oidSHA512 = asn1.ObjectIdentifier{2, 16, 840, 1, 101, 3, 4, 2, 3}
)

// PFX is the outer RFC 7292 §4 structure.
type PFX struct {
	Version     int
	AuthSafe    contentInfo
	MacData     *macData
	RawAuthSafe []byte // the MAC'd payload
}

type contentInfo struct {
	ContentType asn1.ObjectIdentifier
	Content     []byte // inner bytes of the [0] EXPLICIT wrapper
}

type macData struct {
	Algorithm  asn1.ObjectIdentifier
	Digest     []byte
	MacSalt    []byte
	Iterations int
}

type safeBag struct {
	ID         asn1.ObjectIdentifier
	Value      []byte
	Attributes []bagAttribute
}

type bagAttribute struct {
	ID     asn1.ObjectIdentifier
	Values [][]byte
}

type encryptedPrivateKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	Data      []byte
}

// encryptedData mirrors the PKCS#7 EncryptedData content type; the
// struct tags track RFC 2315 §13.
type encryptedData struct {
	Version              int
	EncryptedContentInfo struct {
		ContentType                asn1.ObjectIdentifier
		ContentEncryptionAlgorithm pkix.AlgorithmIdentifier
		EncryptedContent           []byte `asn1:"tag:0,optional"`
	}
}

// ParsePFX decodes the outer PFX: version 3, the authSafe ContentInfo
// (which must be plain data), and the optional MacData.
func ParsePFX(data []byte) (*PFX, error) {
	if len(data) < 10 {
		return nil, fmt.Errorf("%w: container is %d bytes", errdef.ErrDecode, len(data))
	}
	if data[0] == 0x30 && data[1] == 0x80 {
		return nil, fmt.Errorf("%w: BER indefinite-length encoding; re-encode as DER first", errdef.ErrDecode)
	}
	if data[0] != 0x30 {
		return nil, fmt.Errorf("%w: expected SEQUENCE tag 0x30, got 0x%02x", errdef.ErrDecode, data[0])
	}

	input := cryptobyte.String(data)
	var pfx PFX
	var seq cryptobyte.String

	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading PFX SEQUENCE", errdef.ErrDecode)
	}
	if !seq.ReadASN1Integer(&pfx.Version) {
		return nil, fmt.Errorf("%w: reading PFX version", errdef.ErrDecode)
	}
	if pfx.Version != 3 {
		return nil, fmt.Errorf("%w: PFX version %d, want 3", errdef.ErrStructure, pfx.Version)
	}

	var err error
	pfx.AuthSafe, err = parseContentInfo(&seq)
	if err != nil {
		return nil, fmt.Errorf("authSafe: %w", err)
	}
	if !pfx.AuthSafe.ContentType.Equal(oidData) {
		return nil, fmt.Errorf("%w: authSafe content type %v, want data", errdef.ErrStructure, pfx.AuthSafe.ContentType)
	}
	pfx.RawAuthSafe, err = unwrapOctetString(pfx.AuthSafe.Content)
	if err != nil {
		return nil, fmt.Errorf("authSafe payload: %w", err)
	}

	if !seq.Empty() {
		pfx.MacData, err = parseMacData(&seq)
		if err != nil {
			return nil, err
		}
	}
	return &pfx, nil
}

func parseContentInfo(s *cryptobyte.String) (contentInfo, error) {
	var ci contentInfo
	var seq cryptobyte.String

	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return ci, fmt.Errorf("%w: reading ContentInfo", errdef.ErrDecode)
	}
	if !seq.ReadASN1ObjectIdentifier(&ci.ContentType) {
		return ci, fmt.Errorf("%w: reading contentType", errdef.ErrDecode)
	}

	// content [0] EXPLICIT ANY
	var content cryptobyte.String
	if !seq.ReadASN1(&content, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return ci, fmt.Errorf("%w: reading content", errdef.ErrDecode)
	}
	ci.Content = []byte(content)
	return ci, nil
}

func parseMacData(s *cryptobyte.String) (*macData, error) {
	var md macData
	var seq, digestInfo cryptobyte.String

	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading MacData", errdef.ErrDecode)
	}
	if !seq.ReadASN1(&digestInfo, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading DigestInfo", errdef.ErrDecode)
	}

	alg, err := parseAlgorithmIdentifier(&digestInfo)
	if err != nil {
		return nil, err
	}
	md.Algorithm = alg.Algorithm

	if !digestInfo.ReadASN1Bytes(&md.Digest, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading MAC digest", errdef.ErrDecode)
	}
	if !seq.ReadASN1Bytes(&md.MacSalt, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading macSalt", errdef.ErrDecode)
	}

	md.Iterations = 1
	if !seq.Empty() && !seq.ReadASN1Integer(&md.Iterations) {
		return nil, fmt.Errorf("%w: reading MAC iterations", errdef.ErrDecode)
	}
	return &md, nil
}

// parseAuthenticatedSafe splits the MAC'd payload into its
// ContentInfo entries.
func parseAuthenticatedSafe(data []byte) ([]contentInfo, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading AuthenticatedSafe", errdef.ErrDecode)
	}

	var infos []contentInfo
	for !seq.Empty() {
		ci, err := parseContentInfo(&seq)
		if err != nil {
			return nil, err
		}
		infos = append(infos, ci)
	}
	return infos, nil
}

func parseSafeContents(data []byte) ([]safeBag, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading SafeContents", errdef.ErrDecode)
	}

	var bags []safeBag
	for !seq.Empty() {
		bag, err := parseSafeBag(&seq)
		if err != nil {
			return nil, err
		}
		bags = append(bags, bag)
	}
	return bags, nil
}

func parseSafeBag(s *cryptobyte.String) (safeBag, error) {
	var bag safeBag
	var seq cryptobyte.String

	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return bag, fmt.Errorf("%w: reading SafeBag", errdef.ErrDecode)
	}
	if !seq.ReadASN1ObjectIdentifier(&bag.ID) {
		return bag, fmt.Errorf("%w: reading bagId", errdef.ErrDecode)
	}

	var value cryptobyte.String
	if !seq.ReadASN1(&value, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return bag, fmt.Errorf("%w: reading bagValue", errdef.ErrDecode)
	}
	bag.Value = []byte(value)

	if !seq.Empty() {
		var attrSet cryptobyte.String
		if !seq.ReadASN1(&attrSet, cryptobyte_asn1.SET) {
			return bag, fmt.Errorf("%w: reading bag attributes", errdef.ErrDecode)
		}
		for !attrSet.Empty() {
			attr, err := parseBagAttribute(&attrSet)
			if err != nil {
				return bag, err
			}
			bag.Attributes = append(bag.Attributes, attr)
		}
	}
	return bag, nil
}

func parseBagAttribute(s *cryptobyte.String) (bagAttribute, error) {
	var attr bagAttribute
	var seq, values cryptobyte.String

	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return attr, fmt.Errorf("%w: reading attribute", errdef.ErrDecode)
	}
	if !seq.ReadASN1ObjectIdentifier(&attr.ID) {
		return attr, fmt.Errorf("%w: reading attribute OID", errdef.ErrDecode)
	}
	if !seq.ReadASN1(&values, cryptobyte_asn1.SET) {
		return attr, fmt.Errorf("%w: reading attribute values", errdef.ErrDecode)
	}
	for !values.Empty() {
		var value cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !values.ReadAnyASN1Element(&value, &tag) {
			return attr, fmt.Errorf("%w: reading attribute value", errdef.ErrDecode)
		}
		attr.Values = append(attr.Values, []byte(value))
	}
	return attr, nil
}

// parseCertBag unwraps a CertBag and returns the DER certificate.
// Only X.509 certificates are supported.
func parseCertBag(data []byte) ([]byte, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	var certID asn1.ObjectIdentifier

	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading CertBag", errdef.ErrDecode)
	}
	if !seq.ReadASN1ObjectIdentifier(&certID) {
		return nil, fmt.Errorf("%w: reading certId", errdef.ErrDecode)
	}
	if !certID.Equal(oidX509Certificate) {
		return nil, fmt.Errorf("%w: certificate type %v", errdef.ErrUnsupportedAlgorithm, certID)
	}

	var wrapper cryptobyte.String
	if !seq.ReadASN1(&wrapper, cryptobyte_asn1.Tag(0).ContextSpecific().Constructed()) {
		return nil, fmt.Errorf("%w: reading certValue", errdef.ErrDecode)
	}
	var der []byte
	if !wrapper.ReadASN1Bytes(&der, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading certificate bytes", errdef.ErrDecode)
	}
	return der, nil
}

func parseEncryptedPrivateKeyInfo(data []byte) (*encryptedPrivateKeyInfo, error) {
	input := cryptobyte.String(data)
	var seq cryptobyte.String
	var epki encryptedPrivateKeyInfo

	if !input.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading EncryptedPrivateKeyInfo", errdef.ErrDecode)
	}
	alg, err := parseAlgorithmIdentifier(&seq)
	if err != nil {
		return nil, err
	}
	epki.Algorithm = alg
	if !seq.ReadASN1Bytes(&epki.Data, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading encrypted key bytes", errdef.ErrDecode)
	}
	return &epki, nil
}

func parseAlgorithmIdentifier(s *cryptobyte.String) (pkix.AlgorithmIdentifier, error) {
	var alg pkix.AlgorithmIdentifier
	var seq cryptobyte.String

	if !s.ReadASN1(&seq, cryptobyte_asn1.SEQUENCE) {
		return alg, fmt.Errorf("%w: reading AlgorithmIdentifier", errdef.ErrDecode)
	}
	if !seq.ReadASN1ObjectIdentifier(&alg.Algorithm) {
		return alg, fmt.Errorf("%w: reading algorithm OID", errdef.ErrDecode)
	}
	if !seq.Empty() {
		alg.Parameters = asn1.RawValue{FullBytes: []byte(seq)}
	}
	return alg, nil
}

func unwrapOctetString(data []byte) ([]byte, error) {
	input := cryptobyte.String(data)
	var out []byte
	if !input.ReadASN1Bytes(&out, cryptobyte_asn1.OCTET_STRING) {
		return nil, fmt.Errorf("%w: reading OCTET STRING", errdef.ErrDecode)
	}
	return out, nil
}

// friendlyName returns the bag's friendlyName attribute decoded from
// its BMPString form, if present.
func friendlyName(attrs []bagAttribute) (string, bool) {
	for _, attr := range attrs {
		if !attr.ID.Equal(oidFriendlyName) || len(attr.Values) == 0 {
			continue
		}
		input := cryptobyte.String(attr.Values[0])
		var bmp []byte
		if !input.ReadASN1Bytes(&bmp, cryptobyte_asn1.Tag(30)) || len(bmp)%2 != 0 {
			continue
		}
		runes := make([]rune, len(bmp)/2)
		for i := 0; i < len(bmp); i += 2 {
			runes[i/2] = rune(bmp[i])<<8 | rune(bmp[i+1])
		}
		return string(runes), true
	}
	return "", false
}

// localKeyID returns the bag's localKeyID attribute, which pairs a
// private key with its certificate.
func localKeyID(attrs []bagAttribute) ([]byte, bool) {
	for _, attr := range attrs {
		if !attr.ID.Equal(oidLocalKeyID) || len(attr.Values) == 0 {
			continue
		}
		input := cryptobyte.String(attr.Values[0])
		var id []byte
		if input.ReadASN1Bytes(&id, cryptobyte_asn1.OCTET_STRING) {
			return id, true
		}
	}
	return nil, false
}
