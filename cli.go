package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type cliOptions struct {
	configPath string
	verbose    bool

	driver   string
	path     string
	host     string
	port     int
	database string
	user     string
	password string
}

// applyFlags overlays explicitly-set connection flags on the loaded config.
func (o *cliOptions) applyFlags(flags *pflag.FlagSet, cfg *Config) {
	if flags.Changed("driver") {
		cfg.Driver = o.driver
		cfg.Port = 0 // let the driver default apply unless --port is set
	}
	if flags.Changed("path") {
		cfg.Path = o.path
	}
	if flags.Changed("host") {
		cfg.Host = o.host
	}
	if flags.Changed("port") {
		cfg.Port = o.port
	}
	if flags.Changed("database") {
		cfg.Database = o.database
	}
	if flags.Changed("user") {
		cfg.User = o.user
	}
	if flags.Changed("password") {
		cfg.Password = o.password
	}
	cfg.applyDefaults()
}

func (o *cliOptions) logger() *slog.Logger {
	level := slog.LevelInfo
	if o.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func (o *cliOptions) loadConfig(cmd *cobra.Command) (Config, error) {
	cfg, err := LoadConfig(o.configPath)
	if err != nil {
		return Config{}, err
	}
	o.applyFlags(cmd.Flags(), &cfg)
	return cfg, nil
}

func (o *cliOptions) connect(cmd *cobra.Command, logger *slog.Logger) (*Engine, Config, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, Config{}, err
	}
	backend, err := backendFor(cfg.Driver)
	if err != nil {
		return nil, Config{}, err
	}
	engine, err := connectEngine(cmd.Context(), backend, cfg, logger)
	if err != nil {
		return nil, Config{}, err
	}
	return engine, cfg, nil
}

// tryConnect brings up an engine for the server, treating any failure as
// non-fatal: the server starts unconnected and the connect tool can fix the
// configuration later. Both a bad driver name and an unreachable database are
// logged.
func tryConnect(ctx context.Context, cfg Config, logger *slog.Logger) *Engine {
	backend, err := backendFor(cfg.Driver)
	if err != nil {
		logger.Warn("starting without a connection", "error", err)
		return nil
	}
	engine, err := connectEngine(ctx, backend, cfg, logger)
	if err != nil {
		logger.Warn("starting without a connection", "error", err)
		return nil
	}
	return engine
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:           AppName,
		Short:         "Read-only SQL workbench for safe database exploration",
		Version:       AppVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "config file (default schemascope.yaml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&opts.driver, "driver", "", "database driver (sqlite, postgres, mysql, sqlserver)")
	flags.StringVar(&opts.path, "path", "", "database file path (sqlite)")
	flags.StringVar(&opts.host, "host", "", "server host")
	flags.IntVar(&opts.port, "port", 0, "server port")
	flags.StringVar(&opts.database, "database", "", "database name")
	flags.StringVar(&opts.user, "user", "", "username")
	flags.StringVar(&opts.password, "password", "", "password")

	root.AddCommand(
		newServeCmd(opts),
		newQueryCmd(opts),
		newDiscoverCmd(opts),
		newTablesCmd(opts),
	)
	return root
}

func newServeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the workbench over JSON-RPC on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := opts.logger()

			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}

			engine := tryConnect(cmd.Context(), cfg, logger)

			server := NewServer(cmd.Context(), engine, cfg, logger)
			defer server.Close()

			go func() {
				<-cmd.Context().Done()
				server.Shutdown()
			}()

			logger.Info("server started (read-only mode)")
			if err := server.Run(); err != nil && cmd.Context().Err() == nil {
				return err
			}
			logger.Info("server shutdown")
			return nil
		},
	}
}

func newQueryCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a single read-only SELECT and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := opts.connect(cmd, opts.logger())
			if err != nil {
				return err
			}
			defer engine.Close()

			outcome := engine.RunSelect(cmd.Context(), args[0])
			renderOutcome(cmd.OutOrStdout(), outcome)
			if outcome.Status == OutcomeError {
				return fmt.Errorf("query failed")
			}
			return nil
		},
	}
}

func newDiscoverCmd(opts *cliOptions) *cobra.Command {
	var (
		dialectFlag string
		whereFlag   string
		runFlag     bool
	)

	cmd := &cobra.Command{
		Use:   "discover <terms>",
		Short: "Resolve business terms against the schema and draft SQL",
		Long: `Resolve comma-separated business concepts against the connected schema,
find a join path between the matched tables, and draft a runnable SELECT.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, cfg, err := opts.connect(cmd, opts.logger())
			if err != nil {
				return err
			}
			defer engine.Close()

			dialect := engine.Dialect()
			if dialectFlag != "" {
				dialect, err = ParseDialect(dialectFlag)
				if err != nil {
					return err
				}
			}

			var terms []string
			for _, arg := range args {
				for _, t := range strings.Split(arg, ",") {
					if t = strings.TrimSpace(t); t != "" {
						terms = append(terms, t)
					}
				}
			}

			schema := engine.Schema(cmd.Context())
			draft := buildDraft(schema, dialect, terms, cfg.DraftRowLimit)

			out := cmd.OutOrStdout()
			for _, term := range terms {
				for _, note := range draft.Notes[term] {
					fmt.Fprintf(out, "%s: %s\n", term, note)
				}
			}
			if len(draft.Unmatched) > 0 {
				fmt.Fprintf(out, "Unmatched terms: %s\n", strings.Join(draft.Unmatched, ", "))
			}
			if draft.SQL == "" {
				return fmt.Errorf("no tables discovered for the given terms")
			}

			sql := draft.SQL
			if whereFlag != "" && draft.Runnable {
				sql = refineDraft(sql, dialect, whereFlag, cfg.DraftRowLimit, cfg.RefineRowLimit)
			}
			fmt.Fprintln(out, sql)

			if runFlag && draft.Runnable {
				renderOutcome(out, engine.RunSelect(cmd.Context(), sql))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dialectFlag, "dialect", "", "render SQL for a specific dialect")
	cmd.Flags().StringVar(&whereFlag, "where", "", "refine the draft with WHERE conditions")
	cmd.Flags().BoolVar(&runFlag, "run", false, "execute the drafted query")
	return cmd
}

func newTablesCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables with column and foreign-key counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, _, err := opts.connect(cmd, opts.logger())
			if err != nil {
				return err
			}
			defer engine.Close()

			renderTables(cmd.OutOrStdout(), engine.Schema(cmd.Context()))
			return nil
		},
	}
}
