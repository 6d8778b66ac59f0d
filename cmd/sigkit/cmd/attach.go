package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docseal/sigkit/cms"
)

var attachAttrs []string
var attachOutput string

var attachCmd = &cobra.Command{
	Use:   "attach <signed.p7s>",
	Short: "Attach unauthenticated attributes to an existing SignedData",
	Long: `Attach merges attributes into the unauthenticated set of every
SignerInfo in an existing SignedData. The signature is not recomputed,
so the operation needs no key material.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(attachAttrs) == 0 {
			return fmt.Errorf("at least one --attr is required")
		}

		var attributes []cms.Attribute
		for _, spec := range attachAttrs {
			oidStr, value, found := strings.Cut(spec, "=")
			if !found {
				return fmt.Errorf("invalid --attr %q, want oid=value", spec)
			}
			oid, err := parseOID(oidStr)
			if err != nil {
				return err
			}
			attributes = append(attributes, cms.Attribute{Type: oid, Value: value})
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		extended, err := cms.AppendUnauthenticatedAttributes(data, attributes)
		if err != nil {
			return err
		}

		output := attachOutput
		if output == "" {
			output = args[0]
		}
		if err := os.WriteFile(output, extended, 0644); err != nil {
			return err
		}

		slog.Info("attributes attached",
			"input", args[0],
			"output", output,
			"attributes", len(attributes))
		return nil
	},
}

func init() {
	attachCmd.Flags().StringArrayVar(&attachAttrs, "attr", nil, "attribute as oid=value, repeatable")
	attachCmd.Flags().StringVarP(&attachOutput, "output", "o", "", "output file (default: overwrite input)")
	rootCmd.AddCommand(attachCmd)
}
