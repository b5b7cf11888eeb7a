package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/knes1/elktail-release/internal/domain-adapters/gateways"
	"github.com/knes1/elktail-release/internal/domain/interfaces"
	"github.com/knes1/elktail-release/internal/domain/services"
	"github.com/knes1/elktail-release/internal/external-adapters/gpg"
)

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a release directory: completeness, checksums and signatures",
		Example: `  elktail-release verify
  elktail-release verify --output-dir dist --public-key release.pub.asc`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			mustBind(a.v, "output_dir", cmd.Flags().Lookup("output-dir"))
			mustBind(a.v, "public_key", cmd.Flags().Lookup("public-key"))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runVerify(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringP("output-dir", "o", "", "release directory to verify (default from release definition: release)")
	cmd.Flags().String("public-key", "", "armored OpenPGP public key; verifies .asc signatures when set")
	return cmd
}

func (a *app) runVerify(ctx context.Context, out io.Writer) error {
	def, err := a.loadDefinition(ctx)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(def.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to read release directory: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files = append(files, filepath.Join(def.OutputDir, e.Name()))
		}
	}

	verified, failed := 0, 0
	check := func(label string, err error) {
		if err != nil {
			fmt.Fprintf(out, "❌ %s: %v\n", label, err)
			failed++
			return
		}
		fmt.Fprintf(out, "✅ %s\n", label)
		verified++
	}

	fmt.Fprintf(out, "🔍 Verifying %s\n\n", def.OutputDir)

	validation := services.NewReleaseService().ValidateRelease(def, files)
	if validation.IsReady() {
		check(fmt.Sprintf("All %d archives present", len(validation.ExpectedArchives)), nil)
	} else {
		check("Archive set", errors.New(validation.ErrorMessage()))
	}

	verifier := gateways.NewChecksumVerifier()
	sumsPath := filepath.Join(def.OutputDir, gateways.ChecksumFileName)
	sums, err := verifier.ParseChecksumFile(sumsPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		fmt.Fprintf(out, "⚠️  %s not found, skipping checksums\n", gateways.ChecksumFileName)
	case err != nil:
		check(gateways.ChecksumFileName, err)
	default:
		names := make([]string, 0, len(sums))
		for name := range sums {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			check("Checksum "+name, verifier.VerifyChecksum(ctx, filepath.Join(def.OutputDir, name), sums[name]))
		}
	}

	if keyPath := a.v.GetString("public_key"); keyPath != "" {
		gpgVerifier := gateways.NewGPGVerifier()
		if err := gpgVerifier.ImportGPGKeyFromFile(keyPath); err != nil {
			return err
		}
		a.log().Debug("Imported public key", interfaces.F("path", keyPath), interfaces.F("keys", gpgVerifier.GetKeyringSize()))
		signed := append([]string(nil), validation.AvailableArchives...)
		if sums != nil {
			signed = append(signed, gateways.ChecksumFileName)
		}
		if provenance := services.ProvenancePath(def.OutputDir, def.ProjectName); fileExists(provenance) {
			signed = append(signed, filepath.Base(provenance))
		}
		for _, name := range signed {
			path := filepath.Join(def.OutputDir, name)
			check("Signature "+name, gpgVerifier.VerifyGPGSignatureFromFile(path, path+gpg.SignatureExtension))
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "✅ Verified: %d checks\n", verified)
	if failed > 0 {
		fmt.Fprintf(out, "❌ Failed: %d checks\n", failed)
		return fmt.Errorf("%d verification checks failed", failed)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
