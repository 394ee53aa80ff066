package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/kokukuma/vical-verifier/internal/certstore"
	"github.com/kokukuma/vical-verifier/internal/config"
	"github.com/kokukuma/vical-verifier/internal/logger"
	"github.com/kokukuma/vical-verifier/vical"
)

var (
	verifyRoot         string
	verifyIntermediate string
	verifySigner       string
	verifyVICALPath    string
	verifyOutDir       string
	verifySQLite       string
	verifySkipPayload  bool
	verifyDump         bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Verify a VICAL and extract its issuer certificates",
	Long: `Verify the root -> intermediate -> VICAL signer chain, check the VICAL
signature and write every listed issuing authority certificate as a PEM file.
Existing files are never overwritten; colliding names get a 1_, 2_, ... prefix.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVar(&verifyRoot, "root", "", "Root CA certificate (PEM or DER)")
	verifyCmd.Flags().StringVar(&verifyIntermediate, "intermediate", "", "Intermediate CA certificate (PEM or DER)")
	verifyCmd.Flags().StringVar(&verifySigner, "signer", "", "VICAL signer certificate (PEM or DER)")
	verifyCmd.Flags().StringVar(&verifyVICALPath, "vical", "", "VICAL file (CBOR)")
	verifyCmd.Flags().StringVarP(&verifyOutDir, "out", "o", config.DefaultOutDir, "Directory to write extracted certificates to")
	verifyCmd.Flags().StringVar(&verifySQLite, "sqlite", "", "Write certificates to this SQLite catalog instead of a directory")
	verifyCmd.Flags().BoolVar(&verifySkipPayload, "skip-payload-verification", false, "INSECURE: extract without checking the VICAL signature")
	verifyCmd.Flags().BoolVar(&verifyDump, "dump", false, "Dump the decoded protected header and VICAL metadata")
	_ = verifyCmd.MarkFlagRequired("vical")
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, map[string]*string{
		"root":         &verifyRoot,
		"intermediate": &verifyIntermediate,
		"signer":       &verifySigner,
		"out":          &verifyOutDir,
		"sqlite":       &verifySQLite,
	})
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("skip-payload-verification") {
		cfg.SkipPayloadVerification = verifySkipPayload
	}
	l := logger.SetupLogger(cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		return err
	}

	trust, err := vical.LoadTrustChain(cfg.Root, cfg.Intermediate, cfg.Signer)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(verifyVICALPath)
	if err != nil {
		return fmt.Errorf("failed to read VICAL: %w", err)
	}
	if verifyDump {
		dumpEnvelope(cmd.OutOrStdout(), raw)
	}

	sink, where, closeSink, err := openSink(cfg, l)
	if err != nil {
		return err
	}
	defer closeSink()

	opts := []vical.VerifierOption{
		vical.WithRenames(cfg.RenameMap()),
		vical.WithLogger(l),
	}
	if cfg.SkipPayloadVerification {
		opts = append(opts, vical.SkipVerifyPayload())
	}
	result, err := trust.NewVerifier(opts...).Process(raw, sink)
	if err != nil {
		return err
	}

	if verifyDump {
		spew.Fdump(cmd.OutOrStdout(), result.Info)
	}
	printResult(cmd.OutOrStdout(), result, where)
	return nil
}

func openSink(cfg *config.Config, l *slog.Logger) (vical.Sink, string, func(), error) {
	if cfg.SQLitePath != "" {
		catalog, err := certstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, "", nil, err
		}
		closeFn := func() {
			if err := catalog.Close(); err != nil {
				l.Warn("failed to close catalog", "error", err)
			}
		}
		return catalog, cfg.SQLitePath, closeFn, nil
	}
	dir, err := certstore.NewDirStore(cfg.OutDir)
	if err != nil {
		return nil, "", nil, err
	}
	return dir, dir.Dir(), func() {}, nil
}

func dumpEnvelope(w io.Writer, raw []byte) {
	env, err := vical.DecodeEnvelope(raw)
	if err != nil {
		fmt.Fprintf(w, "envelope: %v\n", err)
		return
	}
	header, err := vical.DecodeProtectedHeader(env.ProtectedHeaderBytes)
	if err != nil {
		fmt.Fprintf(w, "protected header: %v\n", err)
		return
	}
	spew.Fdump(w, header)
	fmt.Fprintf(w, "profile: %s, signature: %d bytes, payload: %d bytes\n",
		header.Profile(), len(env.SignatureBytes), len(env.PayloadBytes))
}

func printResult(w io.Writer, result *vical.Result, where string) {
	if !result.PayloadVerified {
		fmt.Fprintln(w, "WARNING: VICAL signature was NOT verified")
	}
	if result.Degraded {
		fmt.Fprintf(w, "WARNING: signature checked under an assumed algorithm (%s)\n", result.Profile.Reason)
	}
	fmt.Fprintf(w, "VICAL %s issue %d from %q: %d certificates extracted to %s\n",
		result.Info.Version, result.Info.IssueID, result.Info.Provider, len(result.Files), where)
	for _, f := range result.Files {
		if f.Renamed() {
			fmt.Fprintf(w, "  %-40s %s (renamed from %s)\n", f.Name, f.Subject, f.DerivedName)
			continue
		}
		fmt.Fprintf(w, "  %-40s %s\n", f.Name, f.Subject)
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintf(w, "  skipped %s\n", d.Error())
	}
}
