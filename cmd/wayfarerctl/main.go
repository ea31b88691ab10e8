package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/AnshRaj112/wayfarer-backend/internal/bootstrap"
	"github.com/AnshRaj112/wayfarer-backend/internal/config"
	"github.com/AnshRaj112/wayfarer-backend/internal/services"
	"github.com/AnshRaj112/wayfarer-backend/pkg/utils"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

const opTimeout = 30 * time.Second

func main() {
	_ = godotenv.Load()

	var verbose bool
	root := &cobra.Command{
		Use:     "wayfarerctl",
		Short:   "Inspect and manage the anonymous identity of this device",
		Version: version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if !verbose {
				log.SetOutput(io.Discard)
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Print connection and service logs to stderr")

	root.AddCommand(
		fingerprintCmd(),
		resolveCmd(),
		statusCmd(),
		forceRecoveryCmd(),
		clearDataCmd(),
	)

	if err := root.Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func fingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the device fingerprint without contacting any backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			gen := services.NewFingerprintGenerator(bootstrap.DeviceSource(cfg), services.FingerprintMode(cfg.FingerprintMode))
			fp, info, err := gen.Generate()
			if err != nil {
				return codeError(3, "generate fingerprint: %s", err)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"fingerprint":  fp,
				"mode":         gen.Mode(),
				"device_model": info.DeviceModel,
				"os_version":   info.OSVersion,
			})
		},
	}
}

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Resolve the identity of this install, recovering it when possible",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *services.AppContext) error {
				app.Recovery.CheckRecovery(ctx)
				return printJSON(cmd.OutOrStdout(), app.Recovery.Status())
			})
		},
	}
}

func statusCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the cached identity and recent recovery events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			var key []byte
			if cfg.EncryptionKey != "" {
				k, err := utils.ParseEncryptionKey(cfg.EncryptionKey)
				if err != nil {
					return codeError(3, "ENCRYPTION_KEY: %s", err)
				}
				key = k
			}
			cache := services.NewFileIdentityStore(cfg.IdentityCachePath(), key)
			identity, ok, err := cache.Get(cmd.Context())
			if err != nil {
				return codeError(2, "read identity cache: %s", err)
			}

			return withApp(func(ctx context.Context, app *services.AppContext) error {
				events, err := app.Recovery.Audit().Recent(ctx, limit)
				if err != nil {
					return codeError(2, "read recovery events: %s", err)
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"cache_path": cfg.IdentityCachePath(),
					"cached":     ok,
					"identity":   identity,
					"events":     events,
				})
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of recovery events to show")
	return cmd
}

func forceRecoveryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "force-recovery",
		Short: "Switch to the identity mapped to this device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(func(ctx context.Context, app *services.AppContext) error {
				if !app.Recovery.ForceRecovery(ctx) {
					st := app.Recovery.Status()
					if st.LastError != "" {
						return codeError(2, "force recovery: %s", st.LastError)
					}
					return codeError(4, "no identity is mapped to this device")
				}
				return printJSON(cmd.OutOrStdout(), app.Recovery.Status())
			})
		},
	}
}

func clearDataCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-data",
		Short: "Delete every record of this identity and forget it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return codeError(3, "refusing to delete all data without --yes")
			}
			return withApp(func(ctx context.Context, app *services.AppContext) error {
				if err := app.Recovery.ClearAllData(ctx); err != nil {
					return codeError(2, "clear data: %s", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "All data deleted")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}

func withApp(fn func(ctx context.Context, app *services.AppContext) error) error {
	rt, err := bootstrap.Start(config.Load())
	if err != nil {
		return codeError(2, "%s", err)
	}
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	return fn(ctx, rt.App)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
