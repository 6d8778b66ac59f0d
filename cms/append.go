package cms

import (
	"bytes"
	"encoding/asn1"
	"fmt"
	"sort"

	"golang.org/x/crypto/cryptobyte"
	cryptobyte_asn1 "golang.org/x/crypto/cryptobyte/asn1"

	"github.com/docseal/sigkit/internal/errdef"
)

var (
	implicit0Tag = cryptobyte_asn1.Tag(0).Constructed().ContextSpecific()
	implicit1Tag = cryptobyte_asn1.Tag(1).Constructed().ContextSpecific()
)

// AppendUnauthenticatedAttributes merges attrs into the [1] IMPLICIT
// unauthenticated-attributes set of every SignerInfo in an existing
// SignedData, creating the set where absent. Everything else,
// signature bytes included, is carried over verbatim: signerInfos is
// located structurally as the last child of SignedData, so the walk
// is independent of which optional fields precede it.
func AppendUnauthenticatedAttributes(data []byte, attrs []Attribute) ([]byte, error) {
	if len(attrs) == 0 {
		return append([]byte{}, data...), nil
	}

	additions := make([][]byte, 0, len(attrs))
	for _, a := range attrs {
		v, err := wrapAttributeValue(a.Value)
		if err != nil {
			return nil, err
		}
		der, err := asn1.Marshal(attribute{Type: a.Type, Values: v})
		if err != nil {
			return nil, fmt.Errorf("marshaling unauthenticated attribute %v: %w", a.Type, err)
		}
		additions = append(additions, der)
	}

	input := cryptobyte.String(data)
	var ci cryptobyte.String
	if !input.ReadASN1(&ci, cryptobyte_asn1.SEQUENCE) || !input.Empty() {
		return nil, fmt.Errorf("%w: reading ContentInfo", errdef.ErrDecode)
	}
	var contentType asn1.ObjectIdentifier
	if !ci.ReadASN1ObjectIdentifier(&contentType) {
		return nil, fmt.Errorf("%w: reading content type", errdef.ErrDecode)
	}
	if !contentType.Equal(oidSignedData) {
		return nil, fmt.Errorf("%w: content type %v is not SignedData", errdef.ErrStructure, contentType)
	}
	var wrapper, sd cryptobyte.String
	if !ci.ReadASN1(&wrapper, implicit0Tag) || !wrapper.ReadASN1(&sd, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading SignedData", errdef.ErrDecode)
	}

	// split SignedData into the verbatim prefix and its last child
	var prefix []byte
	var last cryptobyte.String
	var lastTag cryptobyte_asn1.Tag
	for !sd.Empty() {
		var el cryptobyte.String
		if !sd.ReadAnyASN1Element(&el, &lastTag) {
			return nil, fmt.Errorf("%w: reading SignedData field", errdef.ErrDecode)
		}
		if sd.Empty() {
			last = el
		} else {
			prefix = append(prefix, el...)
		}
	}
	if lastTag != cryptobyte_asn1.SET {
		return nil, fmt.Errorf("%w: SignedData does not end in a signerInfos set", errdef.ErrStructure)
	}

	var infos cryptobyte.String
	if !last.ReadASN1(&infos, cryptobyte_asn1.SET) {
		return nil, fmt.Errorf("%w: reading signerInfos", errdef.ErrDecode)
	}
	var rewritten [][]byte
	for !infos.Empty() {
		var si cryptobyte.String
		if !infos.ReadASN1Element(&si, cryptobyte_asn1.SEQUENCE) {
			return nil, fmt.Errorf("%w: reading SignerInfo", errdef.ErrDecode)
		}
		merged, err := mergeSignerInfo(si, additions)
		if err != nil {
			return nil, err
		}
		rewritten = append(rewritten, merged)
	}
	if len(rewritten) == 0 {
		return nil, fmt.Errorf("%w: SignedData carries no SignerInfo", errdef.ErrStructure)
	}

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(mustMarshalOID(oidSignedData))
		b.AddASN1(implicit0Tag, func(b *cryptobyte.Builder) {
			b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
				b.AddBytes(prefix)
				b.AddASN1(cryptobyte_asn1.SET, func(b *cryptobyte.Builder) {
					for _, si := range rewritten {
						b.AddBytes(si)
					}
				})
			})
		})
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: reassembling SignedData: %v", errdef.ErrStructure, err)
	}
	return out, nil
}

// mergeSignerInfo rewrites one SignerInfo TLV: all fields up to the
// signature are copied byte for byte, the trailing [1] set (if any)
// is unpacked, the new attributes are folded in and the set is
// re-emitted in canonical order.
func mergeSignerInfo(siTLV cryptobyte.String, additions [][]byte) ([]byte, error) {
	var body cryptobyte.String
	if !siTLV.ReadASN1(&body, cryptobyte_asn1.SEQUENCE) {
		return nil, fmt.Errorf("%w: reading SignerInfo body", errdef.ErrDecode)
	}

	var keep []byte
	var members [][]byte
	for !body.Empty() {
		var el cryptobyte.String
		var tag cryptobyte_asn1.Tag
		if !body.ReadAnyASN1Element(&el, &tag) {
			return nil, fmt.Errorf("%w: reading SignerInfo field", errdef.ErrDecode)
		}
		if body.Empty() && tag == implicit1Tag {
			var existing cryptobyte.String
			if !el.ReadASN1(&existing, implicit1Tag) {
				return nil, fmt.Errorf("%w: reading unauthenticated attributes", errdef.ErrDecode)
			}
			for !existing.Empty() {
				var attr cryptobyte.String
				if !existing.ReadASN1Element(&attr, cryptobyte_asn1.SEQUENCE) {
					return nil, fmt.Errorf("%w: reading unauthenticated attribute", errdef.ErrDecode)
				}
				members = append(members, attr)
			}
			continue
		}
		keep = append(keep, el...)
	}
	members = append(members, additions...)

	// DER SET OF ordering, X.690 11.6
	sort.Slice(members, func(i, j int) bool {
		return bytes.Compare(members[i], members[j]) < 0
	})

	b := cryptobyte.NewBuilder(nil)
	b.AddASN1(cryptobyte_asn1.SEQUENCE, func(b *cryptobyte.Builder) {
		b.AddBytes(keep)
		b.AddASN1(implicit1Tag, func(b *cryptobyte.Builder) {
			for _, m := range members {
				b.AddBytes(m)
			}
		})
	})
	out, err := b.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: reassembling SignerInfo: %v", errdef.ErrStructure, err)
	}
	return out, nil
}

func mustMarshalOID(oid asn1.ObjectIdentifier) []byte {
	der, err := asn1.Marshal(oid)
	if err != nil {
		panic(err)
	}
	return der
}
