package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/docseal/sigkit/cms"
	"github.com/docseal/sigkit/dgst"
	"github.com/docseal/sigkit/pkcs12"
	"github.com/docseal/sigkit/pkcs8"
)

var signProfile string
var signOutput string

var signCmd = &cobra.Command{
	Use:   "sign <content-file>",
	Short: "Sign a file into a CMS SignedData",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		profile, err := LoadProfile(signProfile)
		if err != nil {
			return err
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		containerData, err := os.ReadFile(profile.ContainerPath())
		if err != nil {
			return err
		}

		password := profile.Password
		if password == "" {
			password, err = promptPassword("Enter container password: ")
			if err != nil {
				return err
			}
		}

		container, err := pkcs12.ParseContainer(containerData, password, pkcs12.Options{})
		if err != nil {
			return err
		}
		slog.Debug("container parsed",
			"container", profile.ContainerPath(),
			"chain", len(container.Chain))

		key, err := pkcs8.Parse(container.Key)
		if err != nil {
			return err
		}

		var digest dgst.Algorithm
		if profile.Digest != "" {
			digest, err = dgst.Parse(profile.Digest)
			if err != nil {
				return err
			}
		}

		attributes, err := profile.CMSAttributes()
		if err != nil {
			return err
		}

		signed, err := cms.BuildSignedData(cms.SignRequest{
			Content:    content,
			Leaf:       container.Leaf,
			Chain:      container.Chain,
			Key:        key,
			Digest:     digest,
			Attributes: attributes,
			Detached:   profile.Detached,
		}, cms.SignerOptions{})
		if err != nil {
			return err
		}

		output := signOutput
		if output == "" {
			output = args[0] + ".p7s"
		}
		if err := os.WriteFile(output, signed, 0644); err != nil {
			return err
		}

		slog.Info("signed",
			"content", args[0],
			"output", output,
			"detached", profile.Detached,
			"size", len(signed))
		return nil
	},
}

func init() {
	signCmd.Flags().StringVarP(&signProfile, "profile", "p", "sigkit.yaml", "signing profile")
	signCmd.Flags().StringVarP(&signOutput, "output", "o", "", "output file (default <content-file>.p7s)")
	rootCmd.AddCommand(signCmd)
}
