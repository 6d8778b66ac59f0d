package cmd

import (
	"encoding/asn1"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/docseal/sigkit/cms"
)

// AttributeConfig is one custom attribute in a signing profile.
type AttributeConfig struct {
	OID   string `yaml:"oid" validate:"required"`
	Value string `yaml:"value" validate:"required"`
}

// Profile configures the sign command. Environment variables in the
// file are expanded before decoding, so passwords can stay out of the
// profile itself.
type Profile struct {
	BaseDir    string            `yaml:"-"` // set to the profile's directory when loading
	Container  string            `yaml:"container" validate:"required"`
	Password   string            `yaml:"password"`
	Digest     string            `yaml:"digest" validate:"omitempty,oneof=sha1 sha256 sha384 sha512"`
	Detached   bool              `yaml:"detached"`
	Attributes []AttributeConfig `yaml:"attributes" validate:"dive"`
}

// ContainerPath resolves the container file relative to the profile.
func (p *Profile) ContainerPath() string {
	if filepath.IsAbs(p.Container) {
		return p.Container
	}
	return filepath.Join(p.BaseDir, p.Container)
}

func LoadProfile(path string) (*Profile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	// expand environment variables $
	expanded := os.ExpandEnv(string(content))

	profile := new(Profile)
	profile.BaseDir = filepath.Dir(path)

	err = yaml.Unmarshal([]byte(expanded), profile)
	if err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}

	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return fld.Tag.Get("yaml")
	})

	err = validate.Struct(profile)
	if err != nil {
		return nil, fmt.Errorf("validate profile: %w", err)
	}

	return profile, nil
}

// CMSAttributes converts the configured attributes.
func (p *Profile) CMSAttributes() ([]cms.Attribute, error) {
	var out []cms.Attribute
	for _, a := range p.Attributes {
		oid, err := parseOID(a.OID)
		if err != nil {
			return nil, err
		}
		out = append(out, cms.Attribute{Type: oid, Value: a.Value})
	}
	return out, nil
}

func parseOID(s string) (asn1.ObjectIdentifier, error) {
	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return nil, fmt.Errorf("invalid OID %q", s)
	}
	oid := make(asn1.ObjectIdentifier, len(parts))
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid OID %q: %w", s, err)
		}
		oid[i] = n
	}
	return oid, nil
}
