package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pavelanni/contestreport/internal/export"
	"github.com/pavelanni/contestreport/internal/handler"
	appI18n "github.com/pavelanni/contestreport/internal/i18n"
	"github.com/pavelanni/contestreport/internal/metrics"
	"github.com/pavelanni/contestreport/internal/model"
	"github.com/pavelanni/contestreport/internal/report"
	"github.com/pavelanni/contestreport/internal/store"
	"github.com/pavelanni/contestreport/internal/table"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "contestreport",
		Short:        "Build CodeChef Starters participation reports",
		SilenceUsage: true,
	}

	serve := serveCmd()
	root.AddCommand(serve, generateCmd(), cleanupCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `contestreport --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func addLogFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the report upload web form",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "contestreport.db", "SQLite database path for the export registry")
	f.StringP("out-dir", "o", "reports", "Directory for exported workbooks")
	f.String("prefix", export.DefaultPrefix, "Export filename prefix")
	f.Duration("export-ttl", time.Hour, "How long download links stay valid")
	f.Duration("cleanup-interval", 10*time.Minute, "How often expired exports are removed (0 disables)")
	f.StringP("lang", "l", "en", "Default UI language (en, ru)")
	f.String("base-path", "", "URL prefix for sub-path deployments (e.g. /reports)")
	f.Int64("max-upload", 32<<20, "Maximum upload size in bytes")
	addLogFlags(cmd)
	return cmd
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a report from local files",
		RunE:  runGenerate,
	}
	f := cmd.Flags()
	f.String("results", "", "Contest results workbook (.xlsx) (required, or CONTESTREPORT_RESULTS)")
	f.String("roster", "", "Members list (.csv) (required, or CONTESTREPORT_ROSTER)")
	f.String("feedback", "", "Feedback/absence log workbook (.xlsx) (required, or CONTESTREPORT_FEEDBACK)")
	f.String("handles", "", "CodeChef handles workbook (.xlsx) (required, or CONTESTREPORT_HANDLES)")
	f.IntP("event", "e", 0, "Starters contest number (required, or CONTESTREPORT_EVENT)")
	f.StringP("out-dir", "o", ".", "Directory for the exported workbook")
	f.String("prefix", export.DefaultPrefix, "Export filename prefix")
	addLogFlags(cmd)
	return cmd
}

func cleanupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove expired exports and their files",
		RunE:  runCleanup,
	}
	cmd.Flags().String("db", "contestreport.db", "SQLite database path for the export registry")
	addLogFlags(cmd)
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CONTESTREPORT")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("contestreport")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/contestreport")
	v.AddConfigPath("/etc/contestreport")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	// Normalize base path.
	basePath := strings.TrimRight(v.GetString("base-path"), "/")
	if basePath != "" && !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	cfg := model.ServerConfig{
		OutDir:    v.GetString("out-dir"),
		Prefix:    v.GetString("prefix"),
		ExportTTL: v.GetDuration("export-ttl"),
		BasePath:  basePath,
		MaxUpload: v.GetInt64("max-upload"),
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	m := metrics.New()
	h, err := handler.New(db, m, cfg)
	if err != nil {
		return fmt.Errorf("create handler: %w", err)
	}

	if interval := v.GetDuration("cleanup-interval"); interval > 0 {
		go sweepExports(db, interval)
	}

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware())
	r.Method(http.MethodGet, "/metrics", m.Handler())

	if basePath != "" {
		r.Route(basePath, func(sub chi.Router) {
			sub.Use(h.BasePathMiddleware)
			h.Routes(sub)
		})
		r.Get(basePath, func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, basePath+"/", http.StatusMovedPermanently)
		})
	} else {
		r.Use(h.BasePathMiddleware)
		h.Routes(r)
	}

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"lang", lang,
		"out_dir", cfg.OutDir,
		"export_ttl", cfg.ExportTTL,
		"base_path", basePath,
	)
	return http.ListenAndServe(addr, r)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	// Checked here rather than by cobra so env vars and the config file count.
	var missing []string
	for _, name := range []string{"results", "roster", "feedback", "handles"} {
		if v.GetString(name) == "" {
			missing = append(missing, name)
		}
	}
	if v.GetInt("event") == 0 {
		missing = append(missing, "event")
	}
	if len(missing) > 0 {
		return fmt.Errorf("required flag(s) %q not set", missing)
	}

	sources := []struct {
		source model.Source
		path   string
	}{
		{model.SourceResults, v.GetString("results")},
		{model.SourceRoster, v.GetString("roster")},
		{model.SourceFeedback, v.GetString("feedback")},
		{model.SourceHandles, v.GetString("handles")},
	}
	tables := make([]*table.Table, 0, len(sources))
	for _, s := range sources {
		t, err := readTable(s.source, s.path)
		if err != nil {
			return err
		}
		tables = append(tables, t)
	}

	rep, err := report.Generate(tables[0], tables[1], tables[2], tables[3], v.GetInt("event"))
	if err != nil {
		if col, ok := report.MissingColumn(err); ok {
			return fmt.Errorf("missing required column %q: %w", col, err)
		}
		if src, key, ok := report.DuplicateKey(err); ok {
			return fmt.Errorf("generate report: %w (remove the repeated %q rows from the %s file; for form exports keep only the latest submission)", err, key, src)
		}
		return fmt.Errorf("generate report: %w", err)
	}

	_, path, err := export.Save(v.GetString("out-dir"), v.GetString("prefix"), rep)
	if err != nil {
		return fmt.Errorf("export report: %w", err)
	}
	slog.Info("wrote report", "path", path, "rows", len(rep.Rows))
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func readTable(source model.Source, path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s file: %w", source, err)
	}
	defer f.Close()
	t, err := table.Read(string(source), filepath.Base(path), f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	slog.Debug("loaded table", "source", source, "path", path, "rows", t.Len(), "columns", len(t.Columns))
	return t, nil
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	removed, err := cleanupExports(db)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired exports\n", removed)
	return nil
}

// cleanupExports drops expired registry rows and their files.
func cleanupExports(db *store.Store) (int, error) {
	paths, err := db.CleanupExpiredExports()
	if err != nil {
		return 0, fmt.Errorf("cleanup exports: %w", err)
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("failed to remove expired export", "path", p, "error", err)
		}
	}
	if len(paths) > 0 {
		slog.Info("removed expired exports", "count", len(paths))
	}
	return len(paths), nil
}

func sweepExports(db *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		if _, err := cleanupExports(db); err != nil {
			slog.Error("export sweep failed", "error", err)
		}
	}
}
