package cmd

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"os"
	"syscall"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/docseal/sigkit/pkcs12"
)

var infoPassword string
var infoJWK bool

var infoCmd = &cobra.Command{
	Use:   "info <file.p12>",
	Short: "Display the contents of a PKCS#12 container",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		pfx, err := pkcs12.ParsePFX(data)
		if err != nil {
			return err
		}
		fmt.Printf("File: %s\n", args[0])
		fmt.Printf("Size: %d bytes\n", len(data))
		fmt.Printf("Version: %d\n", pfx.Version)
		fmt.Printf("Has MAC: %v\n", pfx.MacData != nil)
		if pfx.MacData != nil {
			fmt.Printf("MAC Algorithm: %s\n", pfx.MacData.Algorithm)
			fmt.Printf("MAC Iterations: %d\n", pfx.MacData.Iterations)
		}

		password := infoPassword
		if password == "" {
			password, err = promptPassword("Enter password: ")
			if err != nil {
				return err
			}
		}

		container, err := pkcs12.ParseContainer(data, password, pkcs12.Options{})
		if err != nil {
			return err
		}

		cert, err := x509.ParseCertificate(container.Leaf)
		if err != nil {
			return err
		}
		fmt.Printf("\nLeaf Certificate:\n")
		if container.FriendlyName != "" {
			fmt.Printf("  FriendlyName: %s\n", container.FriendlyName)
		}
		fmt.Printf("  Subject: %s\n", cert.Subject)
		fmt.Printf("  Issuer: %s\n", cert.Issuer)
		fmt.Printf("  Serial: %s\n", cert.SerialNumber)
		fmt.Printf("  Not Before: %s\n", cert.NotBefore.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Not After: %s\n", cert.NotAfter.Format("2006-01-02 15:04:05 MST"))
		fmt.Printf("  Key Type: %s\n", publicKeyType(cert.PublicKey))

		fmt.Printf("\nChain: %d certificate(s)\n", len(container.Chain))
		for i, der := range container.Chain {
			extra, err := x509.ParseCertificate(der)
			if err != nil {
				fmt.Printf("  #%d: error parsing: %v\n", i+1, err)
				continue
			}
			fmt.Printf("  #%d: %s\n", i+1, extra.Subject)
		}

		fmt.Printf("\nPrivate Key: %d bytes (PKCS#8 DER)\n", len(container.Key))

		if infoJWK {
			key, err := jwk.FromRaw(cert.PublicKey)
			if err != nil {
				return fmt.Errorf("converting public key to JWK: %w", err)
			}
			encoded, err := json.MarshalIndent(key, "", "  ")
			if err != nil {
				return err
			}
			fmt.Printf("\nPublic Key JWK:\n%s\n", encoded)
		}
		return nil
	},
}

func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	pw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

func publicKeyType(pub any) string {
	switch pub.(type) {
	case *rsa.PublicKey:
		return "RSA"
	case *ecdsa.PublicKey:
		return "ECDSA"
	default:
		return fmt.Sprintf("%T", pub)
	}
}

func init() {
	infoCmd.Flags().StringVar(&infoPassword, "password", "", "container password (prompted when omitted)")
	infoCmd.Flags().BoolVar(&infoJWK, "jwk", false, "print the public key as a JWK")
	rootCmd.AddCommand(infoCmd)
}
