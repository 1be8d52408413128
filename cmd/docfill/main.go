package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"docfill/internal/analyze"
	"docfill/internal/config"
	"docfill/internal/directive"
	"docfill/internal/docx"
	"docfill/internal/keyword"
	"docfill/internal/process"
	"docfill/internal/storage"
	"docfill/internal/summarize"
	"docfill/internal/tabular"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docfill",
		Short: "Expand {{...}} directives in Word documents",
	}
	configPath string

	workbookName string
	outPath      string
	setPairs     []string
	sessionName  string
	noAI         bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "docfill.yaml", "Path to the configuration file")

	for _, cmd := range []*cobra.Command{processCmd, watchCmd} {
		cmd.Flags().StringVarP(&workbookName, "workbook", "w", "", "Default workbook for XL directives without a file prefix")
		cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output path (default: processed_<name> next to the input)")
		cmd.Flags().StringArrayVar(&setPairs, "set", nil, "Input value as key=value (repeatable)")
		cmd.Flags().StringVar(&sessionName, "session", "", "Session name for persisted input values (default: a fresh UUID)")
		cmd.Flags().BoolVar(&noAI, "no-ai", false, "Skip summarizer setup; AI directives resolve to errors")
	}
	expandCmd.Flags().StringVarP(&workbookName, "workbook", "w", "", "Default workbook for XL directives without a file prefix")
	expandCmd.Flags().StringArrayVar(&setPairs, "set", nil, "Input value as key=value (repeatable)")
	expandCmd.Flags().BoolVar(&noAI, "no-ai", false, "Skip summarizer setup; AI directives resolve to errors")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(expandCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(watchCmd)
}

var logger *zap.Logger

// initLogger builds the shared zap logger on first use.
func initLogger() *zap.Logger {
	if logger == nil {
		l, err := zap.NewProduction()
		if err != nil {
			log.Fatalf("Failed to create logger: %v", err)
		}
		logger = l
	}
	return logger
}

// initEngine assembles the directive engine from configuration and flags. The
// returned registry owns workbook handles and must be closed by the caller.
func initEngine(ctx context.Context, cfg *config.Config) (*keyword.Engine, *tabular.Registry, error) {
	registry := tabular.NewRegistry(cfg.Paths.Data, initLogger())
	if workbookName != "" {
		registry.SetDefault(workbookName)
	}

	var summarizer summarize.Service
	if !noAI && cfg.AI.APIKey != "" {
		var err error
		summarizer, err = summarize.New(ctx, summarize.Options{
			Provider: cfg.AI.Provider,
			APIKey:   cfg.AI.APIKey,
			Model:    cfg.AI.Model,
			BaseURL:  cfg.AI.BaseURL,
		})
		if err != nil {
			registry.Close()
			return nil, nil, fmt.Errorf("failed to create summarizer: %w", err)
		}
	}

	engine := keyword.NewEngine(keyword.EngineOptions{
		Workbooks:   registry,
		Summarizer:  summarizer,
		TemplateDir: cfg.Paths.Templates,
		JSONDir:     cfg.Paths.JSON,
		AIDir:       cfg.Paths.AI,
		Regroup:     cfg.AI.Regroup,
		Logger:      initLogger(),
	})
	return engine, registry, nil
}

// parseSetPairs turns repeated --set key=value flags into input values.
func parseSetPairs(pairs []string) (keyword.Values, error) {
	vals := make(keyword.Values)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --set pair %q (want key=value)", pair)
		}
		vals[key] = value
	}
	return vals, nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <document.docx>",
	Short: "Inventory the directives in a document before filling it",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		doc, err := docx.Open(path)
		if err != nil {
			log.Fatalf("Failed to open document: %v", err)
		}

		report := analyze.Scan(doc)
		fmt.Printf("📄 %s: %d directives\n", filepath.Base(path), report.Total())
		if report.Total() == 0 {
			return
		}

		fmt.Println("\nCounts by type:")
		kinds := make([]directive.Kind, 0, len(report.Counts))
		for kind := range report.Counts {
			kinds = append(kinds, kind)
		}
		sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
		for _, kind := range kinds {
			fmt.Printf("  %-9s %d\n", kind, report.Counts[kind])
		}

		if len(report.XLSubtypes) > 0 {
			fmt.Println("\nExcel subtypes:")
			subtypes := make([]string, 0, len(report.XLSubtypes))
			for s := range report.XLSubtypes {
				subtypes = append(subtypes, s)
			}
			sort.Strings(subtypes)
			for _, s := range subtypes {
				fmt.Printf("  %-7s %d\n", s, report.XLSubtypes[s])
			}
		}

		if len(report.Workbooks) > 0 {
			fmt.Println("\nWorkbooks referenced:")
			for _, wb := range report.Workbooks {
				fmt.Printf("  - %s\n", wb)
			}
		}

		if len(report.Inputs) > 0 {
			fmt.Println("\nInput fields:")
			for _, in := range report.Inputs {
				if in.Default != "" {
					fmt.Printf("  - [%s] %s (default: %s)\n", in.InputKind, in.Label, in.Default)
				} else {
					fmt.Printf("  - [%s] %s\n", in.InputKind, in.Label)
				}
			}
		}

		fmt.Println()
		if report.NeedsWorkbook {
			fmt.Println("⚙️  Needs a workbook (pass --workbook to process)")
		}
		if report.NeedsSummarizer {
			fmt.Println("🤖 Needs an AI provider (configure ai.api_key)")
		}
	},
}

var processCmd = &cobra.Command{
	Use:   "process <document.docx>",
	Short: "Expand every directive in a document and save the result",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := runProcess(args[0]); err != nil {
			log.Fatalf("Processing failed: %v", err)
		}
	},
}

// runProcess expands one document. The watch command reuses it on every
// change, so failures return instead of exiting.
func runProcess(path string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	// 1. Session values persisted from earlier runs
	if sessionName == "" {
		sessionName = uuid.NewString()
		fmt.Printf("🆔 Session %s (reuse with --session)\n", sessionName)
	}
	store, err := storage.NewSessionStore(cfg.Session.DB)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer store.Close()

	inputs, err := store.LoadValues(ctx, sessionName)
	if err != nil {
		return fmt.Errorf("failed to load session values: %w", err)
	}

	// 2. Merge --set pairs over stored values
	setVals, err := parseSetPairs(setPairs)
	if err != nil {
		return err
	}
	for k, v := range setVals {
		inputs[k] = v
	}

	// 3. Build the engine
	engine, registry, err := initEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer registry.Close()

	// 4. Expand the document
	doc, err := docx.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open document: %w", err)
	}

	fmt.Printf("🚀 Processing %s...\n", filepath.Base(path))
	start := time.Now()

	proc := process.New(engine, initLogger())
	stats, err := proc.ProcessDocument(ctx, doc, inputs)
	if err != nil {
		return err
	}

	// 5. Save the result and the session
	out := outPath
	if out == "" {
		out = filepath.Join(filepath.Dir(path), "processed_"+filepath.Base(path))
	}
	if err := doc.Save(out); err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	if err := store.SaveValues(ctx, sessionName, inputs); err != nil {
		return fmt.Errorf("failed to save session values: %w", err)
	}

	fmt.Printf("✅ %d directives in %d paragraphs (%v)\n", stats.Directives, stats.Paragraphs, time.Since(start).Round(time.Millisecond))
	if stats.Tables > 0 || stats.SubDocs > 0 {
		fmt.Printf("📊 Inserted %d tables, %d sub-documents\n", stats.Tables, stats.SubDocs)
	}
	if stats.Errors > 0 {
		fmt.Printf("⚠️  %d directives resolved to errors (left in the text)\n", stats.Errors)
	}
	fmt.Printf("💾 Saved to %s\n", out)
	return nil
}

var expandCmd = &cobra.Command{
	Use:   "expand <text>",
	Short: "Expand a directive string and print the result",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		text := strings.Join(args, " ")

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		vals, err := parseSetPairs(setPairs)
		if err != nil {
			log.Fatalf("%v", err)
		}

		ctx := context.Background()
		engine, registry, err := initEngine(ctx, cfg)
		if err != nil {
			log.Fatalf("Setup failed: %v", err)
		}
		defer registry.Close()

		out := engine.Parse(ctx, text, vals)
		fmt.Println(out.Text)
	},
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "Print the directive reference",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(keywordReference)
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch <document.docx>",
	Short: "Re-process the document whenever it or the workbook changes",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := args[0]

		if err := runProcess(path); err != nil {
			log.Fatalf("Processing failed: %v", err)
		}

		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		w, err := fsnotify.NewWatcher()
		if err != nil {
			log.Fatalf("Failed to create watcher: %v", err)
		}
		defer w.Close()

		// Editors typically replace files on save, so watch the parent
		// directories and filter events down to the files we care about.
		watched := map[string]bool{filepath.Clean(path): true}
		if workbookName != "" {
			watched[workbookPath(cfg, workbookName)] = true
		}
		dirs := map[string]bool{}
		for file := range watched {
			dirs[filepath.Dir(file)] = true
		}
		for dir := range dirs {
			if err := w.Add(dir); err != nil {
				log.Fatalf("Failed to watch %s: %v", dir, err)
			}
		}

		fmt.Printf("👀 Watching %s (Ctrl+C to stop)\n", path)

		const debounce = 500 * time.Millisecond
		var mu sync.Mutex
		var timer *time.Timer

		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !watched[filepath.Clean(event.Name)] {
					continue
				}
				name := filepath.Base(event.Name)
				mu.Lock()
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounce, func() {
					fmt.Printf("🔄 %s changed, reprocessing...\n", name)
					if err := runProcess(path); err != nil {
						log.Printf("⚠️ Reprocess failed: %v", err)
					}
				})
				mu.Unlock()
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ Watcher error: %v", err)
			}
		}
	},
}

// workbookPath resolves a workbook name the same way the registry does.
func workbookPath(cfg *config.Config, name string) string {
	if cfg.Paths.Data != "" {
		if candidate := filepath.Join(cfg.Paths.Data, name); fileInfoExists(candidate) {
			return filepath.Clean(candidate)
		}
	}
	return filepath.Clean(name)
}

func fileInfoExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

const keywordReference = `Directives are {{TYPE!field1!field2!...}} spans in the document text.

EXCEL  {{XL!...}}  (values come from the default workbook, or name one first:
                    {{XL!budget.xlsx!CELL!A1}})
  {{XL!CELL!A1}}                   value of cell A1 on the active sheet
  {{XL!CELL!Sheet1!A1}}            value of cell A1 on Sheet1
  {{XL!LAST!A1}}                   last non-empty value scanning down from A1
  {{XL!LAST!Sheet1!A1}}            same, on Sheet1 (totals at column bottoms)
  {{XL!LAST!Sheet1!A1!Title}}      scan right from A1 for Title, then down
  {{XL!RANGE!A1:G13}}              the range as a formatted table
  {{XL!RANGE!Sheet1!A1:G13}}       same, on Sheet1
  {{XL!COLUMN!Sheet1!C4,E4,J4}}    named columns appended as one table
  {{XL!COLUMN!Sheet1!Item,Total!4}}  title-matched columns; titles on row 4

INPUT  {{INPUT!...}}  (values come from --set pairs or the saved session;
                       otherwise the default is used)
  {{INPUT!text!Label!default}}           single-line text
  {{INPUT!area!Label!default!height}}    multi-line text
  {{INPUT!date!Label!today!YYYY/MM/DD}}  date, rendered per the format
  {{INPUT!select!Label!opt1,opt2,opt3}}  choice list; first option is default
  {{INPUT!check!Label!true}}             checkbox, renders true/false

TEMPLATE  {{TEMPLATE!...}}  (files live in the templates directory)
  {{TEMPLATE!file.docx}}                         inject the whole document
  {{TEMPLATE!file.docx!section=Heading}}         one section, heading included
  {{TEMPLATE!file.docx!section=Heading&title=false}}   drop the heading
  {{TEMPLATE!file.docx!section=Start:End}}       sections Start through End
  {{TEMPLATE!LIBRARY!name!version}}              versioned library template

JSON  {{JSON!...}}  (files live in the json directory)
  {{JSON!!file.json}}                      whole file, pretty-printed
  {{JSON!file.json!$.key}}                 value at path (dots and [indexes])
  {{JSON!file.json!$.items[0].name}}       nested path example
  {{JSON!file.json!$.totals!SUM}}          sum the numbers at path
  {{JSON!file.json!$.names!JOIN(, )}}      join values with a delimiter
  {{JSON!file.json!$.active!BOOL(Yes/No)}} map a boolean to custom text

AI  {{AI!...}}  (sources live in the ai directory; needs ai.api_key)
  {{AI!source.docx!prompt.txt!words=100}}          summarize the document
  {{AI!source.docx!Focus on risks.!words=50}}      literal prompt text
  {{AI!source.docx!prompt.txt!section=Overview&words=100}}   one section
  {{AI!source.docx!prompt.txt!section=Start:End}}  a section range
`
