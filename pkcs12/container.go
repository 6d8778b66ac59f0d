package pkcs12

import (
	"bytes"
	"fmt"

	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/internal/errdef"
)

// Options tunes a ParseContainer call. The zero value selects the
// native digest backend.
type Options struct {
	Backend dgst.Backend
}

// Container is the aggregated result of parsing one PFX: the leaf
// certificate, any further certificates in discovery order, and the
// decrypted PKCS#8 private key.
type Container struct {
	// Leaf is the certificate paired with the key, DER encoded.
	Leaf []byte

	// Chain holds the remaining certificates in discovery order.
	Chain [][]byte

	// Key is the decrypted PrivateKeyInfo, DER encoded.
	Key []byte

	// FriendlyName of the key bag, or of the leaf certificate bag if
	// the key carries none. Empty when neither is named.
	FriendlyName string

	// MACPresent reports whether the container carried a MacData
	// structure. When true, the MAC verified successfully.
	MACPresent bool
}

type certEntry struct {
	der        []byte
	name       string
	localKeyID []byte
}

type keyEntry struct {
	der        []byte
	name       string
	localKeyID []byte
}

// ParseContainer decrypts and aggregates a PKCS#12 container. The MAC
// is verified first when present; each safe is then unwrapped or
// decrypted, its bags collected, and the leaf chosen by localKeyID
// when the key names one, by discovery order otherwise.
func ParseContainer(data []byte, password string, opts Options) (*Container, error) {
	pfx, err := ParsePFX(data)
	if err != nil {
		return nil, err
	}

	e := newEngine(opts.Backend, password)
	out := &Container{}

	if pfx.MacData != nil {
		if err := e.verifyMAC(pfx); err != nil {
			return nil, err
		}
		out.MACPresent = true
	}

	infos, err := parseAuthenticatedSafe(pfx.RawAuthSafe)
	if err != nil {
		return nil, err
	}

	var certs []certEntry
	var key *keyEntry
	for _, ci := range infos {
		var contents []byte
		switch {
		case ci.ContentType.Equal(oidData):
			contents, err = unwrapOctetString(ci.Content)
		case ci.ContentType.Equal(oidEncryptedData):
			contents, err = e.decryptEncryptedData(ci, oidData)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}

		bags, err := parseSafeContents(contents)
		if err != nil {
			return nil, err
		}
		if err := e.collectBags(bags, &certs, &key); err != nil {
			return nil, err
		}
	}

	if len(certs) == 0 {
		return nil, fmt.Errorf("%w: container holds no certificate", errdef.ErrStructure)
	}
	if key == nil {
		return nil, fmt.Errorf("%w: container holds no private key", errdef.ErrStructure)
	}
	out.Key = key.der

	// leaf selection: the certificate sharing the key's localKeyID,
	// or the first one found
	leaf := 0
	if len(key.localKeyID) > 0 {
		for i, c := range certs {
			if bytes.Equal(c.localKeyID, key.localKeyID) {
				leaf = i
				break
			}
		}
	}
	out.Leaf = certs[leaf].der
	for i, c := range certs {
		if i != leaf {
			out.Chain = append(out.Chain, c.der)
		}
	}

	out.FriendlyName = key.name
	if out.FriendlyName == "" {
		out.FriendlyName = certs[leaf].name
	}
	return out, nil
}

func (e *engine) collectBags(bags []safeBag, certs *[]certEntry, key **keyEntry) error {
	for _, bag := range bags {
		switch {
		case bag.ID.Equal(oidCertBag):
			der, err := parseCertBag(bag.Value)
			if err != nil {
				return err
			}
			entry := certEntry{der: der}
			entry.name, _ = friendlyName(bag.Attributes)
			entry.localKeyID, _ = localKeyID(bag.Attributes)
			*certs = append(*certs, entry)

		case bag.ID.Equal(oidPKCS8ShroudedKeyBag):
			epki, err := parseEncryptedPrivateKeyInfo(bag.Value)
			if err != nil {
				return err
			}
			der, err := e.decryptPBE(epki.Algorithm, epki.Data)
			if err != nil {
				return err
			}
			if err := checkKeyShape(der); err != nil {
				return err
			}
			entry := &keyEntry{der: der}
			entry.name, _ = friendlyName(bag.Attributes)
			entry.localKeyID, _ = localKeyID(bag.Attributes)
			*key = entry

		case bag.ID.Equal(oidKeyBag):
			if err := checkKeyShape(bag.Value); err != nil {
				return err
			}
			entry := &keyEntry{der: bag.Value}
			entry.name, _ = friendlyName(bag.Attributes)
			entry.localKeyID, _ = localKeyID(bag.Attributes)
			*key = entry

		case bag.ID.Equal(oidSafeContentsBag):
			nested, err := parseSafeContents(bag.Value)
			if err != nil {
				return err
			}
			if err := e.collectBags(nested, certs, key); err != nil {
				return err
			}
		}
	}
	return nil
}

// checkKeyShape is the wrong-password tripwire for schemes whose
// padding happens to validate on garbage: a PrivateKeyInfo always
// starts with a SEQUENCE tag.
func checkKeyShape(key []byte) error {
	if len(key) == 0 || key[0] != 0x30 {
		return errdef.ErrAuthentication
	}
	return nil
}
