package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/daviddao/mailrules/internal/auth"
	"github.com/daviddao/mailrules/internal/config"
	"github.com/daviddao/mailrules/internal/db"
	"github.com/daviddao/mailrules/internal/display"
	"github.com/daviddao/mailrules/internal/gmail"
)

// Version is set via ldflags at build time.
var Version = "dev"

var (
	configPath  string
	dbPath      string
	jsonOutput  bool
	quietFlag   bool
	verboseFlag bool

	cfg    *config.Config
	store  db.Store
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:           "mr",
	Short:         "mr - rule-based Gmail triage",
	Long:          "mailrules: fetch Gmail into a local store, match messages with rule trees, and apply label actions.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := initLogger(); err != nil {
			return err
		}

		if skipsConfig(cmd) {
			return nil
		}

		var err error
		if cfg, err = loadConfig(); err != nil {
			return err
		}

		// check and logout never touch the store.
		switch cmd.Name() {
		case "check", "logout":
			return nil
		}

		store, err = openStore(cmd.Context())
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			store.Close()
		}
		_ = logger.Sync()
	},
}

// skipsConfig reports whether cmd runs without config or a store.
func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "help", "version", "init", cobra.ShellCompRequestCmd, cobra.ShellCompNoDescRequestCmd:
		return true
	}
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "completion" {
			return true
		}
	}
	return false
}

func initLogger() error {
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	switch {
	case verboseFlag:
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case quietFlag:
		zc.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		zc.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	}
	l, err := zc.Build()
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	logger = l
	return nil
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		path = config.Discover()
	}
	c, err := config.Resolve(path, os.LookupEnv)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		c.Database.Driver = "sqlite"
		c.Database.Path = dbPath
	}
	logger.Debug("loaded config", zap.String("path", path), zap.String("driver", c.Database.Driver))
	return c, nil
}

func openStore(ctx context.Context) (db.Store, error) {
	dbc := cfg.Database
	if dbc.Driver == "sqlite" && dbc.Path == "" {
		dbc.Path = db.DiscoverDB()
		if dbc.Path == "" {
			return nil, fmt.Errorf("no mailrules database found; run 'mr init' first")
		}
	}
	s, err := db.Open(ctx, dbc)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// gmailClient authenticates with the configured credentials, running the
// browser consent flow when no token is stored yet.
func gmailClient(ctx context.Context) (gmail.Client, error) {
	svc, err := auth.LoadGmailService(ctx, auth.Options{
		CredentialsPath: cfg.Gmail.Credentials,
		TokenPath:       cfg.Gmail.Token,
		Interactive:     true,
		Prompt:          os.Stderr,
		Logger:          logger,
	})
	if err != nil {
		return nil, err
	}
	return gmail.NewClient(svc), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mr version %s\n", Version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize .mailrules/ in the project root",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := config.FindProjectRoot()
		if root == "" {
			return fmt.Errorf("could not find project root (no .git directory found)")
		}
		dir := filepath.Join(root, config.DirName)

		dbFile := filepath.Join(dir, db.FileName)
		s, err := db.OpenSQLite(cmd.Context(), dbFile)
		if err != nil {
			return err
		}
		s.Close()

		cfgFile := filepath.Join(dir, "config.toml")
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			if err := os.WriteFile(cfgFile, []byte(config.DefaultFile), 0o644); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
		}

		ensureGitignore(root)

		if !quietFlag {
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized mailrules at %s\n", dir)
			fmt.Fprintf(cmd.OutOrStdout(), "Place your OAuth client file at %s\n", filepath.Join(dir, "credentials.json"))
		}
		return nil
	},
}

// ensureGitignore adds .mailrules/ to .gitignore if not already present.
func ensureGitignore(root string) {
	gitignorePath := filepath.Join(root, ".gitignore")
	entry := config.DirName + "/"

	data, err := os.ReadFile(gitignorePath)
	if err == nil {
		scanner := bufio.NewScanner(strings.NewReader(string(data)))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == entry || line == config.DirName {
				return
			}
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return // silently skip if can't write
	}
	defer f.Close()

	if len(data) > 0 && data[len(data)-1] != '\n' {
		f.WriteString("\n")
	}
	fmt.Fprintf(f, "\n# mailrules database, config and OAuth token\n%s\n", entry)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: auto-discover .mailrules/config.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (default: auto-discover .mailrules/mail.db)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		display.ErrorMsg(os.Stderr, "%v", err)
		os.Exit(1)
	}
}
