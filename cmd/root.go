package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	mtp "github.com/modeltoolsprotocol/go-sdk"
	"github.com/seastarlegal/seastar/internal/config"
	"github.com/seastarlegal/seastar/internal/store"
	"github.com/seastarlegal/seastar/internal/workspace"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	dataDir string
	verbose bool
	cfg     *config.Config
	logger  *zap.Logger

	// st is opened by the root command unless already set (tests inject
	// their own). ownsStore records which.
	st        *store.Store
	ownsStore bool
)

// noStore marks commands that run without opening the database.
const noStore = "no-store"

var rootCmd = &cobra.Command{
	Use:     "seastar",
	Short:   "Local case, client and session records for a law office",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cwd, _ := os.Getwd()
		dir, err := workspace.Resolve(dataDir, cwd)
		if err != nil {
			return err
		}
		dataDir = dir
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		cfg, err = config.Load(dataDir)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if logger, err = newLogger(cfg, verbose); err != nil {
			return err
		}

		if cmd.Annotations[noStore] == "true" || st != nil {
			return nil
		}
		return openStore(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if logger != nil {
			_ = logger.Sync()
		}
		if ownsStore && st != nil {
			err := st.Close()
			st, ownsStore = nil, false
			return err
		}
		return nil
	},
	SilenceUsage: true,
}

func newLogger(c *config.Config, verbose bool) (*zap.Logger, error) {
	lvl, err := c.Level()
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return l, nil
}

func openStore(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	s, err := store.Open(ctx, cfg.DatabasePath(dataDir),
		store.WithLogger(logger.Named("store")),
		store.WithLocation(loc),
		store.WithSchemaVersion(cfg.SchemaVersion),
		store.WithAdmin(cfg.Admin.Username, cfg.Admin.InitialPassword),
	)
	if err != nil {
		return err
	}
	st, ownsStore = s, true
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory path (default: linked workspace or ~/.seastar)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	mtpOpts := &mtp.DescribeOptions{
		Commands: map[string]*mtp.CommandAnnotation{
			"record add": {
				Stdin: &mtp.IODescriptor{
					ContentType: "application/json",
					Description: "JSON object with the record's fields",
				},
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Reference of the new record (e.g. cases/12)",
				},
				Examples: []mtp.Example{
					{Description: "Add a case", Command: "seastar record add cases --set caseNumber=2026/41 --set status=جارية --set feesAmount=1500"},
					{Description: "Add a client from JSON", Command: "echo '{\"name\":\"Ahmed\",\"phone\":\"0501\"}' | seastar record add clients"},
				},
			},
			"record list": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Table of records, or JSON with --json",
				},
				Examples: []mtp.Example{
					{Description: "List closed cases through the status index", Command: "seastar record list cases --index status --value منتهية"},
				},
			},
			"record update": {
				Examples: []mtp.Example{
					{Description: "Record a payment", Command: "seastar record update cases/12 --set feesPaid=700"},
				},
			},
			"record delete": {
				Examples: []mtp.Example{
					{Description: "Delete a session (interactive confirm)", Command: "seastar record delete sessions/3"},
					{Description: "Delete a session (skip confirm)", Command: "seastar record delete sessions/3 --force"},
				},
			},
			"record search": {
				Examples: []mtp.Example{
					{Description: "Find clients by name or phone", Command: "seastar record search clients ahmed --fields name,phone"},
				},
			},
			"record checkout": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Local file path where the record was checked out (e.g. .seastar-checkout/cases-12.md)",
				},
				Examples: []mtp.Example{
					{Description: "Checkout a case for local editing", Command: "seastar record checkout cases/12"},
				},
			},
			"record checkin": {
				Examples: []mtp.Example{
					{Description: "Check in a locally edited case", Command: "seastar record checkin cases/12"},
				},
			},
			"stats": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "Dashboard counters: cases, clients, sessions and revenue",
				},
			},
			"sessions upcoming": {
				Examples: []mtp.Example{
					{Description: "Scheduled sessions in the next two weeks", Command: "seastar sessions upcoming --days 14"},
				},
			},
			"report": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/markdown",
					Description: "Full report as markdown with --raw, rendered otherwise",
				},
			},
			"backup create": {
				Stdout: &mtp.IODescriptor{
					ContentType: "text/plain",
					Description: "ID and per-collection record counts of the new backup",
				},
			},
			"backup restore": {
				Examples: []mtp.Example{
					{Description: "Restore a backup (interactive confirm)", Command: "seastar backup restore 4"},
					{Description: "Restore a backup (skip confirm)", Command: "seastar backup restore 4 --force"},
				},
			},
			"settings set": {
				Examples: []mtp.Example{
					{Description: "Switch off sync", Command: "seastar settings set autoSync false"},
				},
			},
			"user register": {
				Examples: []mtp.Example{
					{Description: "Register a lawyer", Command: "seastar user register --username sara --name \"Sara\" --role محامي"},
				},
			},
			"sync": {
				Examples: []mtp.Example{
					{Description: "Build the sync payload even when autoSync is off", Command: "seastar sync --force"},
				},
			},
			"workspace link": {
				Examples: []mtp.Example{
					{Description: "Use a shared office data directory below the current directory", Command: "seastar workspace link /srv/seastar"},
				},
			},
		},
	}

	mtp.WithDescribe(rootCmd, mtpOpts)
}

func Execute() error {
	return rootCmd.Execute()
}

// readInput returns piped stdin, or "" when stdin is a terminal.
func readInput(cmd *cobra.Command) string {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok {
		info, err := f.Stat()
		if err != nil {
			return ""
		}
		// Only read if stdin is explicitly a pipe (not a terminal, not a socket)
		if info.Mode()&os.ModeNamedPipe == 0 && info.Size() == 0 {
			return ""
		}
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return ""
	}
	return string(data)
}

// confirm asks before a destructive action unless --force is set.
func confirm(cmd *cobra.Command, msg string) error {
	if force, _ := cmd.Flags().GetBool("force"); force {
		return nil
	}
	var ok bool
	if err := huh.NewConfirm().Title(msg).Value(&ok).Run(); err != nil || !ok {
		return fmt.Errorf("cancelled")
	}
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func splitList(s string) []string {
	var out []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
