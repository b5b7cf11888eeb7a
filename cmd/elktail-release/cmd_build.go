package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/knes1/elktail-release/internal/domain-adapters/gateways"
	orchestrators "github.com/knes1/elktail-release/internal/domain-orchestrators"
	"github.com/knes1/elktail-release/internal/domain/interfaces"
	domaingw "github.com/knes1/elktail-release/internal/domain/interfaces/gateways"
	"github.com/knes1/elktail-release/internal/domain/services"
)

func newBuildCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile and package every release target",
		Long: `Compile elktail for each target and package it into the release directory.

A target whose compile or packaging step fails is reported and skipped; the
remaining targets still build and the command exits non-zero.`,
		Example: `  elktail-release build
  elktail-release build --only linux --only windows/amd64
  elktail-release build --config release.yml --output-dir dist
  ELKTAIL_RELEASE_SIGN_PASSPHRASE=secret elktail-release build --sign-key release.key.asc`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			mustBind(a.v, "output_dir", flags.Lookup("output-dir"))
			mustBind(a.v, "only", flags.Lookup("only"))
			mustBind(a.v, "go", flags.Lookup("go"))
			mustBind(a.v, "dir", flags.Lookup("dir"))
			mustBind(a.v, "timeout", flags.Lookup("timeout"))
			mustBind(a.v, "sign_key", flags.Lookup("sign-key"))
			mustBind(a.v, "export_public_key", flags.Lookup("export-public-key"))
			mustBind(a.v, "no_checksums", flags.Lookup("no-checksums"))
			mustBind(a.v, "provenance", flags.Lookup("provenance"))
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runBuild(cmd)
		},
	}

	flags := cmd.Flags()
	flags.StringP("output-dir", "o", "", "output directory for archives (default from release definition: release)")
	flags.StringSlice("only", nil, "build only targets matching os, os/arch or suffix (repeatable)")
	flags.String("go", "go", "go toolchain executable")
	flags.String("dir", "", "module directory go build runs in (default: current directory)")
	flags.Duration("timeout", 10*time.Minute, "timeout for a single compile")
	flags.String("sign-key", "", "armored OpenPGP secret key used to sign archives")
	flags.String("export-public-key", "", "write the signing key's armored public key to this path")
	flags.Bool("no-checksums", false, "skip writing SHA256SUMS")
	flags.Bool("provenance", false, "write an in-toto provenance statement (<project>.intoto.json)")

	return cmd
}

func (a *app) runBuild(cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := a.log()

	def, err := a.loadDefinition(ctx)
	if err != nil {
		return err
	}
	def, err = services.NewReleaseService().SelectTargets(def, a.v.GetStringSlice("only"))
	if err != nil {
		return err
	}

	goBinary := a.v.GetString("go")
	if goBinary == "" {
		goBinary = "go"
	}
	compiler := gateways.NewGoCompiler(
		gateways.WithGoBinary(goBinary),
		gateways.WithWorkingDir(a.v.GetString("dir")),
		gateways.WithTimeout(a.v.GetDuration("timeout")),
	)

	var checksummer domaingw.Checksummer
	if !a.v.GetBool("no_checksums") {
		checksummer = gateways.NewChecksumVerifier()
	}

	signer, err := a.loadSigner(def.Signing.Enabled, def.Signing.KeyFile, logger)
	if err != nil {
		return err
	}
	if out := a.v.GetString("export_public_key"); out != "" {
		if signer == nil {
			return fmt.Errorf("--export-public-key requires a signing key")
		}
		if err := signer.ExportPublicKey(out); err != nil {
			return err
		}
		logger.Info("Exported public key", interfaces.F("path", out))
	}

	config := orchestrators.ReleaseOrchestratorConfig{BuilderVersion: Version}
	if a.v.GetBool("provenance") {
		config.Provenance = services.NewProvenanceService()
	}

	orch := orchestrators.NewReleaseOrchestrator(
		compiler,
		gateways.NewPackager(),
		checksummer,
		signer,
		logger,
		config,
	)

	logger.Info("Starting release",
		interfaces.F("project", def.ProjectName),
		interfaces.F("targets", len(def.Targets())),
		interfaces.F("output_dir", def.OutputDir),
		interfaces.F("version", Version),
	)

	report, runErr := orch.Run(ctx, def)
	if report != nil {
		fmt.Fprint(cmd.OutOrStdout(), report.Summary())
	}
	return runErr
}

// releaseSigner is the signing gateway plus the key operations the CLI needs
type releaseSigner interface {
	domaingw.Signer
	Fingerprint() string
	ExportPublicKey(path string) error
}

// loadSigner returns nil when signing is not requested.
// An explicit --sign-key / ELKTAIL_RELEASE_SIGN_KEY wins over the definition's key file.
func (a *app) loadSigner(enabled bool, keyFile string, logger interfaces.Logger) (releaseSigner, error) {
	if key := a.v.GetString("sign_key"); key != "" {
		keyFile = key
		enabled = true
	}
	if !enabled {
		return nil, nil
	}

	signer, err := gateways.NewGPGSigner(keyFile, []byte(a.v.GetString("sign_passphrase")))
	if err != nil {
		return nil, err
	}
	logger.Info("Signing enabled", interfaces.F("fingerprint", signer.Fingerprint()))
	return signer, nil
}
