// Command gpg-download-verifier verifies a downloaded artifact against a
// detached signature or a signed checksum manifest found next to it,
// trusting each package's signing key on first use and pinning it for every
// verification after that.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jsha/gpg-download-verifier/config"
	"github.com/jsha/gpg-download-verifier/verify"
	"github.com/jsha/gpg-download-verifier/verify/entities"
	"github.com/jsha/gpg-download-verifier/verify/evidence"
	"github.com/jsha/gpg-download-verifier/verify/gatekeeper"
	"github.com/jsha/gpg-download-verifier/verify/ports"
	"github.com/jsha/gpg-download-verifier/verify/signing"
	"github.com/jsha/gpg-download-verifier/verify/truststore"
	"github.com/jsha/gpg-download-verifier/verify/values"
)

var version = "dev" // set via ldflags during build

type cliFlags struct {
	configPath    string
	keyserver     string
	trustRoot     string
	keyserverCert string
	timeout       time.Duration
	interactive   bool
	legacyMatch   bool
	verbose       bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, entities.ErrVerificationFailed) {
			fmt.Println("NOT VERIFIED")
			fmt.Fprintln(os.Stderr, err)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &cliFlags{}

	cmd := &cobra.Command{
		Use:     "gpg-download-verifier <artifact>",
		Short:   "Verify a downloaded file against its colocated signature or signed checksum manifest",
		Args:    cobra.ExactArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), flags, args[0])
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default ~/.gpg-download-verifier/config.yaml)")
	cmd.PersistentFlags().StringVar(&flags.trustRoot, "trust-root", "", "trust store root directory")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&flags.keyserver, "keyserver", "", "keyserver URL for first-contact key retrieval")
	cmd.Flags().StringVar(&flags.keyserverCert, "keyserver-cert", "", "PEM certificate the keyserver must present")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "network timeout")
	cmd.Flags().BoolVarP(&flags.interactive, "interactive", "i", false, "confirm before trusting a new package")
	cmd.Flags().BoolVar(&flags.legacyMatch, "legacy-substring", false, "use the historical substring manifest match")

	cmd.AddCommand(newKeysCmd(flags))
	return cmd
}

func runVerify(ctx context.Context, flags *cliFlags, artifactPath string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}

	logger := newLogger(flags.verbose)

	store, err := truststore.NewStore(cfg.TrustRoot, truststore.WithLogger(logger))
	if err != nil {
		return err
	}

	retriever, err := newRetriever(cfg, logger)
	if err != nil {
		return err
	}

	gpg := signing.NewGPGVerifier(
		signing.WithKeyRetriever(retriever),
		signing.WithLogger(logger),
	)

	opts := []verify.ServiceOption{
		verify.WithLocator(evidence.NewLocator(
			evidence.WithLegacySubstringMatch(cfg.LegacySubstringMatch),
			evidence.WithLogger(logger),
		)),
		verify.WithPinOnFailure(cfg.PinOnFailure),
		verify.WithLogger(logger),
	}
	if cfg.Interactive {
		opts = append(opts, verify.WithPrompter(gatekeeper.NewTerminalPrompter()))
	}
	svc := verify.NewService(store, gpg, opts...)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout())
	defer cancel()

	result, err := svc.Verify(ctx, artifactPath)
	if err != nil {
		return err
	}

	logger.Info("verification succeeded",
		"package", result.Package.String(),
		"evidence", result.Evidence.Kind().String(),
		"signer", result.Signature.SignerKeyID,
		"bootstrapped", result.Bootstrapped)
	fmt.Println("VERIFIED")
	return nil
}

func newKeysCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "keys <package-or-filename>",
		Short: "List the signing keys pinned for a package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}

			pkg, err := values.NewPackageID(args[0])
			if err != nil {
				return err
			}

			store, err := truststore.NewStore(cfg.TrustRoot)
			if err != nil {
				return err
			}

			keyringPath := filepath.Join(store.Root(), pkg.String(), truststore.KeyringFile)
			keys, err := signing.ListKeys(keyringPath)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				fmt.Printf("no keys pinned for package %q\n", pkg.String())
				return nil
			}
			for _, k := range keys {
				fmt.Printf("%s  %s  created %s\n", k.KeyID, k.UserID, k.CreatedAt.Format(time.DateOnly))
			}
			return nil
		},
	}
}

func loadConfig(flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.keyserver != "" {
		cfg.Keyserver = flags.keyserver
	}
	if flags.trustRoot != "" {
		cfg.TrustRoot = flags.trustRoot
	}
	if flags.keyserverCert != "" {
		cfg.KeyserverCert = flags.keyserverCert
	}
	if flags.timeout > 0 {
		cfg.TimeoutSeconds = int(flags.timeout / time.Second)
	}
	if flags.interactive {
		cfg.Interactive = true
	}
	if flags.legacyMatch {
		cfg.LegacySubstringMatch = true
	}
	return cfg, nil
}

func newRetriever(cfg *config.Config, logger *slog.Logger) (ports.KeyRetriever, error) {
	opts := []signing.HKPOption{
		signing.WithTimeout(cfg.Timeout()),
		signing.WithHKPLogger(logger),
	}
	if cfg.KeyserverCert != "" {
		pem, err := os.ReadFile(cfg.KeyserverCert)
		if err != nil {
			return nil, fmt.Errorf("read keyserver certificate: %w", err)
		}
		opts = append(opts, signing.WithPinnedCertificate(pem))
	}
	return signing.NewHKPClient(cfg.Keyserver, opts...)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
