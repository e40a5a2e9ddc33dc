package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"vnsheet/internal/cache"
	"vnsheet/internal/config"
	"vnsheet/internal/filewalker"
	"vnsheet/internal/glossary"
	"vnsheet/internal/parser"
	"vnsheet/internal/settings"
	"vnsheet/internal/sheet"
	"vnsheet/internal/textenc"
	"vnsheet/internal/textutil"
	"vnsheet/internal/worker"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Execute runs the CLI application.
func Execute() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var verbose bool
	rootCmd := &cobra.Command{
		Use:   "vnsheet",
		Short: "Dialogue extraction and reinsertion for game scripts",
		Long: `vnsheet pulls translatable dialogue out of visual novel scripts,
subtitles and e-books into translation sheets, and writes completed
sheets back into the original files without disturbing their layout.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			if verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(injectCmd())
	rootCmd.AddCommand(glossaryCmd())
	rootCmd.AddCommand(tmCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type extractOptions struct {
	settingsPath   string
	format         string
	out            string
	namesPath      string
	namesFromGraph bool
	encoding       string
	onlyJP         bool
	useTM          bool
	workers        int
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <path>",
		Short: "Parse scripts and write a translation sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts extractOptions
			opts.settingsPath, _ = cmd.Flags().GetString("settings")
			opts.format, _ = cmd.Flags().GetString("format")
			opts.out, _ = cmd.Flags().GetString("out")
			opts.namesPath, _ = cmd.Flags().GetString("names")
			opts.namesFromGraph, _ = cmd.Flags().GetBool("names-from-graph")
			opts.encoding, _ = cmd.Flags().GetString("encoding")
			opts.onlyJP, _ = cmd.Flags().GetBool("only-jp")
			opts.useTM, _ = cmd.Flags().GetBool("tm")
			opts.workers, _ = cmd.Flags().GetInt("workers")
			return runExtract(args[0], opts)
		},
	}

	cmd.Flags().String("settings", "", "parse settings file (default: <input>.ini when present)")
	cmd.Flags().String("format", "", "force a parser: script, ddsystem, srt, vnt, epub")
	cmd.Flags().String("out", "sheet.tsv", "output sheet path (.tsv or .json)")
	cmd.Flags().String("names", "", "character glossary CSV")
	cmd.Flags().Bool("names-from-graph", false, "read the character glossary from Neo4j")
	cmd.Flags().String("encoding", "", "input encoding tag (utf-8, shift-jis)")
	cmd.Flags().Bool("only-jp", false, "keep only paragraphs containing Japanese text")
	cmd.Flags().Bool("tm", false, "prefill translations from the translation memory")
	cmd.Flags().Int("workers", 0, "concurrent files (0 = WORKERS env)")
	cmd.MarkFlagsMutuallyExclusive("names", "names-from-graph")

	return cmd
}

type injectOptions struct {
	settingsPath   string
	format         string
	out            string
	namesPath      string
	namesFromGraph bool
	encoding       string
	sheetPath      string
	reportPath     string
	saveTM         bool
	workers        int
}

func injectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inject <path>",
		Short: "Write a completed sheet back into the original files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts injectOptions
			opts.settingsPath, _ = cmd.Flags().GetString("settings")
			opts.format, _ = cmd.Flags().GetString("format")
			opts.out, _ = cmd.Flags().GetString("out")
			opts.namesPath, _ = cmd.Flags().GetString("names")
			opts.namesFromGraph, _ = cmd.Flags().GetBool("names-from-graph")
			opts.encoding, _ = cmd.Flags().GetString("encoding")
			opts.sheetPath, _ = cmd.Flags().GetString("sheet")
			opts.reportPath, _ = cmd.Flags().GetString("report")
			opts.saveTM, _ = cmd.Flags().GetBool("save-tm")
			opts.workers, _ = cmd.Flags().GetInt("workers")
			return runInject(args[0], opts)
		},
	}

	cmd.Flags().String("settings", "", "parse settings file (default: <input>.ini when present)")
	cmd.Flags().String("format", "", "force a parser: script, ddsystem, srt, vnt, epub")
	cmd.Flags().String("out", "translated", "output directory, input layout is mirrored under it")
	cmd.Flags().String("names", "", "character glossary CSV")
	cmd.Flags().Bool("names-from-graph", false, "read the character glossary from Neo4j")
	cmd.Flags().String("encoding", "", "input and output encoding tag (utf-8, shift-jis)")
	cmd.Flags().String("sheet", "", "completed translation sheet (.tsv or .json)")
	cmd.Flags().String("report", "mismatches.tsv", "where to write the strict-mode mismatch report")
	cmd.Flags().Bool("save-tm", false, "bank the sheet's pairs into the translation memory")
	cmd.Flags().Int("workers", 0, "concurrent files (0 = WORKERS env)")
	cmd.MarkFlagRequired("sheet")
	cmd.MarkFlagsMutuallyExclusive("names", "names-from-graph")

	return cmd
}

func glossaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "glossary",
		Short: "Manage the character name glossary in Neo4j",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "seed <csv>",
			Short: "Load a character CSV into the graph",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGlossarySeed(args[0])
			},
		},
		&cobra.Command{
			Use:   "export <csv>",
			Short: "Dump the graph back to a character CSV",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGlossaryExport(args[0])
			},
		},
	)
	return cmd
}

func tmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tm",
		Short: "Manage the translation memory in PostgreSQL",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "import <sheet>",
			Short: "Bank a completed sheet's pairs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTMImport(args[0])
			},
		},
		&cobra.Command{
			Use:   "export <path>",
			Short: "Dump all pairs as a sheet (.tsv or .json)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTMExport(args[0])
			},
		},
	)
	return cmd
}

// setupContext creates a cancellable context with signal handling.
func setupContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Warn().Msg("Received shutdown signal, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// initPostgres connects the translation memory database.
func initPostgres(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	pgPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pgPool.Ping(ctx); err != nil {
		pgPool.Close()
		return nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}
	log.Info().Msg("Connected to PostgreSQL")
	return pgPool, nil
}

// initNeo4j connects the glossary graph database.
func initNeo4j(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.Neo4jURI, neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""))
	if err != nil {
		return nil, fmt.Errorf("connect Neo4j: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("verify Neo4j connectivity: %w", err)
	}
	log.Info().Msg("Connected to Neo4j")
	return driver, nil
}

// loadNames resolves the character substitution mapping, either from a
// CSV file or from the glossary graph.
func loadNames(ctx context.Context, cfg *config.Config, csvPath string, fromGraph bool) (map[string]string, error) {
	if fromGraph {
		driver, err := initNeo4j(ctx, cfg)
		if err != nil {
			return nil, err
		}
		defer driver.Close(ctx)
		return glossary.NewStore(driver).NameMap(ctx)
	}
	if csvPath == "" {
		return nil, nil
	}
	entries, err := glossary.LoadCSV(csvPath)
	if err != nil {
		return nil, err
	}
	return glossary.Map(entries), nil
}

// buildWalker assembles the parser set for one run and wraps it in a
// walker. Configuration problems (bad encoding tag, unknown format,
// broken settings file) are fatal here, before any file is touched.
func buildWalker(input, settingsPath, format, encoding string, names map[string]string) (*filewalker.Walker, error) {
	if _, err := textenc.Normalize(encoding); err != nil {
		return nil, err
	}

	prof, err := resolveSettings(input, settingsPath)
	if err != nil {
		return nil, err
	}

	script := parser.NewScriptParser(prof, names)
	script.Encoding = encoding
	ddsystem := parser.NewDDSystemParser(names)
	ddsystem.Encoding = encoding

	parsers := []parser.Parser{
		parser.NewVNTParser(names),
		parser.NewSRTParser(),
		parser.NewEPUBParser(),
		ddsystem,
		script,
	}

	w := filewalker.NewWalker(parsers)
	if format != "" {
		forced := parser.ByName(parsers, format)
		if forced == nil {
			return nil, fmt.Errorf("unknown format %q (script, ddsystem, srt, vnt, epub)", format)
		}
		w.Force = forced
	}
	return w, nil
}

// resolveSettings loads the parse settings profile: an explicit path,
// else a file found next to the input, else the line-per-entry default.
func resolveSettings(input, settingsPath string) (*settings.Settings, error) {
	if settingsPath == "" {
		settingsPath = settings.FindFor(input)
	}
	if settingsPath == "" {
		log.Debug().Msg("No settings file, using the line-per-entry profile")
		return settings.Default(), nil
	}
	prof, err := settings.Load(settingsPath)
	if err != nil {
		return nil, err
	}
	log.Info().Str("settings", settingsPath).Msg("Loaded parse settings")
	return prof, nil
}

// runExtract handles the `extract` command.
func runExtract(input string, opts extractOptions) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	workers := opts.workers
	if workers < 1 {
		workers = cfg.Workers
	}

	names, err := loadNames(ctx, cfg, opts.namesPath, opts.namesFromGraph)
	if err != nil {
		return err
	}
	w, err := buildWalker(input, opts.settingsPath, opts.format, opts.encoding, names)
	if err != nil {
		return err
	}
	entries, err := w.Walk(input)
	if err != nil {
		return fmt.Errorf("walk input: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("input", input).Msg("No parseable files found")
		return nil
	}

	var tm *cache.TranslationCache
	if opts.useTM {
		pgPool, err := initPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		tm = cache.NewTranslationCache(pgPool)
		if err := tm.EnsureSchema(ctx); err != nil {
			return err
		}
		if err := tm.Preload(ctx); err != nil {
			log.Warn().Err(err).Msg("Failed to preload translation memory")
		}
	}

	parsePool := worker.NewPool[filewalker.FileEntry, *parser.ParseResult](workers,
		func(ctx context.Context, entry filewalker.FileEntry) (*parser.ParseResult, error) {
			return entry.Parser.Parse(entry.Path)
		},
	)
	results := parsePool.Execute(ctx, entries)

	var records []sheet.Record
	prefilled, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if r.Result == nil {
			continue
		}
		for _, u := range r.Result.Units {
			if opts.onlyJP && !textutil.ContainsJapanese(u.Text) {
				continue
			}
			end := u.EndLine
			if end < u.Line {
				end = u.Line
			}
			rec := sheet.Record{
				File:      r.Input.Rel,
				StartLine: u.Line,
				EndLine:   end,
				Speaker:   u.Speaker,
				Source:    u.Text,
			}
			if tm != nil {
				if translated, ok := tm.Get(ctx, u.Text); ok {
					rec.Translation = translated
					prefilled++
				}
			}
			records = append(records, rec)
		}
	}

	if err := sheet.Write(opts.out, records); err != nil {
		return err
	}

	log.Info().
		Int("files", len(entries)-failed).
		Int("records", len(records)).
		Int("prefilled", prefilled).
		Str("sheet", opts.out).
		Msg("Extraction complete")
	if failed > 0 {
		log.Warn().Int("files", failed).Msg("Some files failed to parse")
	}
	return nil
}

// injectOutcome is one file's reinsertion result.
type injectOutcome struct {
	rel string
	out *parser.Output
}

// runInject handles the `inject` command.
func runInject(input string, opts injectOptions) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	workers := opts.workers
	if workers < 1 {
		workers = cfg.Workers
	}

	records, err := sheet.Read(opts.sheetPath)
	if err != nil {
		return err
	}
	translations := sheet.TranslationMap(records)
	if len(translations) == 0 {
		log.Warn().Str("sheet", opts.sheetPath).Msg("Sheet has no completed translations")
	}

	names, err := loadNames(ctx, cfg, opts.namesPath, opts.namesFromGraph)
	if err != nil {
		return err
	}
	w, err := buildWalker(input, opts.settingsPath, opts.format, opts.encoding, names)
	if err != nil {
		return err
	}
	entries, err := w.Walk(input)
	if err != nil {
		return fmt.Errorf("walk input: %w", err)
	}
	if len(entries) == 0 {
		log.Warn().Str("input", input).Msg("No parseable files found")
		return nil
	}

	outRoot, err := filepath.Abs(opts.out)
	if err != nil {
		return fmt.Errorf("resolve output directory: %w", err)
	}

	injectPool := worker.NewPool[filewalker.FileEntry, *injectOutcome](workers,
		func(ctx context.Context, entry filewalker.FileEntry) (*injectOutcome, error) {
			result, err := entry.Parser.Parse(entry.Path)
			if err != nil {
				return nil, err
			}
			out, err := entry.Parser.Reconstruct(result, translations)
			if err != nil {
				return nil, fmt.Errorf("reconstruct %s: %w", entry.Rel, err)
			}

			outPath := filepath.Join(outRoot, entry.Rel)
			if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
				return nil, fmt.Errorf("create output directory: %w", err)
			}
			if err := os.WriteFile(outPath, out.Content, 0o644); err != nil {
				return nil, fmt.Errorf("write %s: %w", outPath, err)
			}
			return &injectOutcome{rel: entry.Rel, out: out}, nil
		},
	)
	results := injectPool.Execute(ctx, entries)

	translated, skipped, failed := 0, 0, 0
	var report []sheet.MismatchRow
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		if r.Result == nil {
			continue
		}
		translated += r.Result.out.Translated
		skipped += r.Result.out.Skipped
		for _, m := range r.Result.out.Mismatches {
			report = append(report, sheet.MismatchRow{File: r.Result.rel, Mismatch: m})
		}
	}

	if len(report) > 0 {
		if err := sheet.WriteMismatchTSV(opts.reportPath, report); err != nil {
			return err
		}
		log.Warn().
			Int("mismatches", len(report)).
			Str("report", opts.reportPath).
			Msg("Strict wrapping left paragraphs untouched")
	}

	if opts.saveTM && len(translations) > 0 {
		pgPool, err := initPostgres(ctx, cfg)
		if err != nil {
			return err
		}
		defer pgPool.Close()
		tm := cache.NewTranslationCache(pgPool)
		if err := tm.EnsureSchema(ctx); err != nil {
			return err
		}
		if _, err := tm.Import(ctx, translations); err != nil {
			return err
		}
	}

	log.Info().
		Int("files", len(entries)-failed).
		Int("translated", translated).
		Int("skipped", skipped).
		Int("mismatches", len(report)).
		Str("output", opts.out).
		Msg("Injection complete")
	if failed > 0 {
		log.Warn().Int("files", failed).Msg("Some files failed to process")
	}
	return nil
}

// runGlossarySeed handles `glossary seed`.
func runGlossarySeed(path string) error {
	ctx, cancel := setupContext()
	defer cancel()

	entries, err := glossary.LoadCSV(path)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		log.Warn().Str("path", path).Msg("Glossary CSV is empty")
		return nil
	}

	cfg := config.Load()
	driver, err := initNeo4j(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	store := glossary.NewStore(driver)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	return store.Upsert(ctx, entries)
}

// runGlossaryExport handles `glossary export`.
func runGlossaryExport(path string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	driver, err := initNeo4j(ctx, cfg)
	if err != nil {
		return err
	}
	defer driver.Close(ctx)

	entries, err := glossary.NewStore(driver).All(ctx)
	if err != nil {
		return err
	}
	return glossary.SaveCSV(path, entries)
}

// runTMImport handles `tm import`.
func runTMImport(sheetPath string) error {
	ctx, cancel := setupContext()
	defer cancel()

	records, err := sheet.Read(sheetPath)
	if err != nil {
		return err
	}
	pairs := sheet.TranslationMap(records)
	if len(pairs) == 0 {
		log.Warn().Str("sheet", sheetPath).Msg("Sheet has no completed translations, nothing to import")
		return nil
	}

	cfg := config.Load()
	pgPool, err := initPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	tm := cache.NewTranslationCache(pgPool)
	if err := tm.EnsureSchema(ctx); err != nil {
		return err
	}
	if _, err := tm.Import(ctx, pairs); err != nil {
		return err
	}
	return nil
}

// runTMExport handles `tm export`.
func runTMExport(outPath string) error {
	ctx, cancel := setupContext()
	defer cancel()

	cfg := config.Load()
	pgPool, err := initPostgres(ctx, cfg)
	if err != nil {
		return err
	}
	defer pgPool.Close()

	tm := cache.NewTranslationCache(pgPool)
	if err := tm.EnsureSchema(ctx); err != nil {
		return err
	}
	pairs, err := tm.Export(ctx)
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(pairs))
	for source := range pairs {
		sources = append(sources, source)
	}
	sort.Strings(sources)

	records := make([]sheet.Record, 0, len(sources))
	for _, source := range sources {
		records = append(records, sheet.Record{Source: source, Translation: pairs[source]})
	}
	return sheet.Write(outPath, records)
}
