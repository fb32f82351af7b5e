package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/cognicore/keyclust/internal/metrics"
	"github.com/cognicore/keyclust/internal/server"
	"github.com/cognicore/keyclust/pkg/keyclust"
	"github.com/cognicore/keyclust/pkg/keyclust/config"
	"github.com/cognicore/keyclust/pkg/keyclust/export"
	"github.com/cognicore/keyclust/pkg/keyclust/ingest"
	"github.com/cognicore/keyclust/pkg/keyclust/sheet"
	"github.com/cognicore/keyclust/pkg/keyclust/store"
	"github.com/cognicore/keyclust/pkg/keyclust/store/sqlstore"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "keyclust:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	rulesFlag := &cli.StringFlag{Name: "rules", Usage: "YAML rules file overriding the built-in defaults", EnvVars: []string{"KEYCLUST_RULES"}}
	sqliteFlag := &cli.StringFlag{Name: "sqlite", Usage: "record runs in this SQLite database"}
	postgresFlag := &cli.StringFlag{Name: "postgres", Usage: "record runs in PostgreSQL (lib/pq DSN)", EnvVars: []string{"KEYCLUST_POSTGRES"}}

	return &cli.App{
		Name:  "keyclust",
		Usage: "deduplicate and cluster Persian keyword lists into a content plan",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "only log errors"},
			&cli.BoolFlag{Name: "verbose", Usage: "log pipeline stages"},
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "text or json"},
		},
		Commands: []*cli.Command{
			{
				Name:      "cluster",
				Usage:     "cluster a keyword sheet and write the plan",
				ArgsUsage: "[input]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "input", Aliases: []string{"i"}, Usage: "input .xlsx or .csv (or first argument)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output path (default <input>-clusters.<format>)"},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "xlsx, csv, json or html (default from --output, else xlsx)"},
					rulesFlag,
					&cli.StringFlag{Name: "phrase-column", Usage: "header of the phrase column"},
					&cli.StringFlag{Name: "volume-column", Usage: "header of the volume column"},
					&cli.BoolFlag{Name: "detect-language", Usage: "report the language mix of the input"},
					sqliteFlag,
					postgresFlag,
					&cli.StringFlag{Name: "s3-bucket", Usage: "upload the output to this bucket", EnvVars: []string{"KEYCLUST_S3_BUCKET"}},
					&cli.StringFlag{Name: "s3-region", Value: "us-east-1", EnvVars: []string{"KEYCLUST_S3_REGION"}},
					&cli.StringFlag{Name: "s3-endpoint", Usage: "custom endpoint for S3-compatible stores", EnvVars: []string{"KEYCLUST_S3_ENDPOINT"}},
					&cli.StringFlag{Name: "s3-prefix", Value: "reports"},
					&cli.BoolFlag{Name: "s3-path-style", Usage: "path-style addressing (MinIO)"},
				},
				Action: clusterAction,
			},
			{
				Name:  "serve",
				Usage: "run the HTTP clustering service",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "addr", Value: ":8080", EnvVars: []string{"KEYCLUST_ADDR"}},
					rulesFlag,
					&cli.Int64Flag{Name: "max-jobs", Value: 4, Usage: "concurrent clustering jobs", EnvVars: []string{"KEYCLUST_MAX_JOBS"}},
					&cli.DurationFlag{Name: "job-timeout", Value: 2 * time.Minute, EnvVars: []string{"KEYCLUST_JOB_TIMEOUT"}},
					&cli.Int64Flag{Name: "max-upload", Value: 32 << 20, Usage: "upload size limit in bytes"},
					sqliteFlag,
					postgresFlag,
				},
				Action: serveAction,
			},
			{
				Name:   "rules",
				Usage:  "print the effective rules as YAML",
				Flags:  []cli.Flag{rulesFlag},
				Action: rulesAction,
			},
		},
	}
}

func newLogger(c *cli.Context) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case c.Bool("quiet"):
		level = slog.LevelError
	case c.Bool("verbose"):
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.String("log-format") == "json" {
		return slog.New(slog.NewJSONHandler(c.App.ErrWriter, opts))
	}
	return slog.New(slog.NewTextHandler(c.App.ErrWriter, opts))
}

func clusterAction(c *cli.Context) error {
	logger := newLogger(c)
	slog.SetDefault(logger)

	input := c.String("input")
	if input == "" {
		input = c.Args().First()
	}
	if input == "" {
		return errors.New("--input required")
	}

	format, output, err := resolveOutput(input, c.String("output"), c.String("format"))
	if err != nil {
		return err
	}

	comps, err := (&config.Loader{RulesPath: c.String("rules")}).Load()
	if err != nil {
		return err
	}
	engine := buildEngine(comps, logger, c.Bool("detect-language"))

	opts := sheet.ReadOptions{PhraseColumn: comps.Rules.Columns.Phrase, VolumeColumn: comps.Rules.Columns.Volume}
	if v := c.String("phrase-column"); v != "" {
		opts.PhraseColumn = v
	}
	if v := c.String("volume-column"); v != "" {
		opts.VolumeColumn = v
	}
	raw, err := sheet.ReadFile(input, opts)
	if err != nil {
		return fmt.Errorf("read %s: %w", input, err)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := engine.RunRaw(ctx, filepath.Base(input), raw)
	if err != nil {
		return err
	}
	rep := res.Report

	var buf bytes.Buffer
	if err := sheet.Write(&buf, format, rep); err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}
	if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return err
	}

	st, cleanup, err := openStore(ctx, c.String("sqlite"), c.String("postgres"))
	if err != nil {
		return err
	}
	defer cleanup()
	if st != nil {
		if err := st.SaveRun(ctx, rep); err != nil {
			return fmt.Errorf("save run: %w", err)
		}
		logger.Info("run recorded", "run", rep.ID)
	}

	if bucket := c.String("s3-bucket"); bucket != "" {
		uploader, err := export.NewS3Uploader(ctx, export.S3Config{
			Endpoint:        c.String("s3-endpoint"),
			Region:          c.String("s3-region"),
			Bucket:          bucket,
			Prefix:          c.String("s3-prefix"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle:    c.Bool("s3-path-style"),
		})
		if err != nil {
			return err
		}
		uri, err := uploader.Upload(ctx, uploader.Key(rep, string(format)), buf.Bytes(), format.ContentType())
		if err != nil {
			return err
		}
		logger.Info("report uploaded", "run", rep.ID, "uri", uri)
	}

	m := rep.Metrics
	fmt.Fprintf(c.App.Writer, "%d phrases merged, %d categories, %d groups -> %s\n",
		m.Merged, m.Categories, m.Groups, output)
	if m.DroppedRows > 0 {
		fmt.Fprintf(c.App.Writer, "%d rows dropped for an unusable volume\n", m.DroppedRows)
	}
	return nil
}

// resolveOutput picks the output format and path. An explicit format wins
// over the output extension; without either the plan is written as xlsx
// next to the input.
func resolveOutput(input, output, formatName string) (sheet.Format, string, error) {
	var (
		format sheet.Format
		err    error
	)
	switch {
	case formatName != "":
		format, err = sheet.ParseFormat(formatName)
	case output != "":
		format, err = sheet.FormatFromPath(output)
	default:
		format = sheet.XLSX
	}
	if err != nil {
		return "", "", err
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + "-clusters." + string(format)
	}
	return format, output, nil
}

func buildEngine(comps *config.Components, logger *slog.Logger, detectLanguage bool) *keyclust.Engine {
	opts := keyclust.Options{Components: comps, Logger: logger}
	if detectLanguage {
		opts.Profiler = ingest.NewLinguaProfiler()
	}
	return keyclust.New(opts)
}

// openStore opens at most one run store. Both empty means no store.
func openStore(ctx context.Context, sqlitePath, postgresDSN string) (store.Store, func(), error) {
	noop := func() {}
	var (
		st  store.Store
		err error
	)
	switch {
	case sqlitePath != "" && postgresDSN != "":
		return nil, noop, errors.New("use either --sqlite or --postgres, not both")
	case sqlitePath != "":
		st, err = sqlstore.OpenSQLite(ctx, sqlitePath)
	case postgresDSN != "":
		st, err = sqlstore.OpenPostgres(ctx, postgresDSN)
	default:
		return nil, noop, nil
	}
	if err != nil {
		return nil, noop, fmt.Errorf("open store: %w", err)
	}
	return st, func() { st.Close() }, nil
}

func serveAction(c *cli.Context) error {
	logger := newLogger(c)
	slog.SetDefault(logger)

	comps, err := (&config.Loader{RulesPath: c.String("rules")}).Load()
	if err != nil {
		return err
	}
	engine := buildEngine(comps, logger, false)

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, cleanup, err := openStore(ctx, c.String("sqlite"), c.String("postgres"))
	if err != nil {
		return err
	}
	defer cleanup()

	srv := server.New(engine, metrics.New(nil), st, server.Config{
		MaxJobs:        c.Int64("max-jobs"),
		JobTimeout:     c.Duration("job-timeout"),
		MaxUploadBytes: c.Int64("max-upload"),
	})

	httpServer := &http.Server{
		Addr:              c.String("addr"),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("keyclust service listening", "addr", httpServer.Addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func rulesAction(c *cli.Context) error {
	rules := config.Default()
	if path := c.String("rules"); path != "" {
		loaded, err := config.LoadRules(path)
		if err != nil {
			return err
		}
		rules = loaded
	}
	data, err := rules.Marshal()
	if err != nil {
		return err
	}
	_, err = c.App.Writer.Write(data)
	return err
}
