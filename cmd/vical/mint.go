package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veraison/go-cose"

	"github.com/kokukuma/vical-verifier/internal/cryptoroot"
	"github.com/kokukuma/vical-verifier/internal/logger"
)

const mintedVICALFile = "vical.cbor"

var (
	mintOutDir      string
	mintProvider    string
	mintIssueID     uint
	mintCommonNames []string
	mintTagged      bool
)

var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Generate a throwaway trust chain and a signed demo VICAL",
	Args:  cobra.NoArgs,
	RunE:  runMint,
}

func init() {
	mintCmd.Flags().StringVarP(&mintOutDir, "out", "o", "vical-demo", "Output directory")
	mintCmd.Flags().StringVar(&mintProvider, "provider", "Demo VICAL Provider", "vicalProvider value")
	mintCmd.Flags().UintVar(&mintIssueID, "issue-id", 1, "vicalIssueID value")
	mintCmd.Flags().StringSliceVar(&mintCommonNames, "cn", []string{
		"Colorado Root Certificate",
		"Alaska DMV IACA",
		"IACA-Utah-USA",
		"Demo Issuing Authority",
	}, "Common names of the issuing authority certificates to list")
	mintCmd.Flags().BoolVar(&mintTagged, "tagged", false, "Wrap the envelope in the COSE_Sign1 tag")
}

func runMint(cmd *cobra.Command, args []string) error {
	logger.SetupLogger(logLevel)

	chain, err := cryptoroot.GenerateChain()
	if err != nil {
		return err
	}
	if err := chain.WriteChain(mintOutDir); err != nil {
		return err
	}

	records := make([]map[string]interface{}, 0, len(mintCommonNames))
	for _, cn := range mintCommonNames {
		iaca, err := cryptoroot.GenerateIACA(cn, "")
		if err != nil {
			return fmt.Errorf("failed to generate IACA %q: %w", cn, err)
		}
		records = append(records, cryptoroot.IssuerRecord(iaca, "certificate"))
	}
	payload, err := cryptoroot.BuildPayload(mintProvider, mintIssueID, records)
	if err != nil {
		return fmt.Errorf("failed to build payload: %w", err)
	}

	sign := cryptoroot.SignEnvelope
	if mintTagged {
		sign = cryptoroot.SignTaggedEnvelope
	}
	envelope, err := sign(payload, chain.SignerKey, cose.AlgorithmES256)
	if err != nil {
		return err
	}
	vicalPath := filepath.Join(mintOutDir, mintedVICALFile)
	if err := os.WriteFile(vicalPath, envelope, 0o644); err != nil {
		return fmt.Errorf("failed to write VICAL: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote trust chain and %s with %d certificates to %s\n", mintedVICALFile, len(records), mintOutDir)
	fmt.Fprintf(out, "Verify with:\n  vical verify --root %s --intermediate %s --signer %s --vical %s\n",
		filepath.Join(mintOutDir, cryptoroot.RootCertFile),
		filepath.Join(mintOutDir, cryptoroot.IntermediateCertFile),
		filepath.Join(mintOutDir, cryptoroot.SignerCertFile),
		vicalPath)
	return nil
}
