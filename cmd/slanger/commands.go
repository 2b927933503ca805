package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ZaguanLabs/slanger"
	"github.com/ZaguanLabs/slanger/processor"
	"github.com/ZaguanLabs/slanger/store"
)

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	termColor = color.New(color.Bold)
)

func newResolveCommand(g *globals) *cobra.Command {
	var (
		sentence   string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "resolve <term>",
		Short: "Explain a slang term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp, err := a.svc.Lookup(cmd.Context(), args[0], sentence)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(g.stdout, resp)
			}
			fmt.Fprintln(g.stdout, resp.MeaningLine)
			if slanger.IsFallback(resp.MeaningLine) {
				warnColor.Fprintln(g.stderr, "no interpretation available; it will be retried next time")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&sentence, "context", "c", "", "Sentence the term appeared in")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	return cmd
}

// scanResult is one scanned occurrence with its interpretation.
type scanResult struct {
	Term        string `json:"term"`
	Context     string `json:"context"`
	MeaningLine string `json:"meaning_line"`
}

func newScanCommand(g *globals) *cobra.Command {
	var (
		terms      []string
		annotate   bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "scan [file|-]",
		Short: "Find and explain slang terms in an HTML page",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			input, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			a, err := g.loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			known := terms
			if len(known) == 0 {
				if known, err = a.svc.Terms(ctx); err != nil {
					return err
				}
			}
			if len(known) == 0 {
				return fmt.Errorf("no known terms: pass --terms or import a seed file")
			}

			scanner := processor.NewHTMLScanner()
			matches, err := scanner.Scan(input, known)
			if err != nil {
				return err
			}

			// One batch per sentence so every term gets its own context.
			var sentences []string
			bySentence := make(map[string][]string)
			for _, m := range matches {
				if _, ok := bySentence[m.Context]; !ok {
					sentences = append(sentences, m.Context)
				}
				bySentence[m.Context] = append(bySentence[m.Context], m.Term)
			}

			results := make([]scanResult, 0, len(matches))
			lines := make(map[string]string)
			for _, sentence := range sentences {
				resolved, err := a.svc.ResolveMany(ctx, bySentence[sentence], sentence)
				if err != nil {
					return err
				}
				for _, term := range bySentence[sentence] {
					line := resolved[term]
					results = append(results, scanResult{Term: term, Context: sentence, MeaningLine: line})
					if _, seen := lines[term]; !seen || slanger.IsFallback(lines[term]) {
						lines[term] = line
					}
				}
			}

			switch {
			case annotate:
				out, err := scanner.Annotate(input, lines)
				if err != nil {
					return err
				}
				fmt.Fprintln(g.stdout, out)
			case jsonOutput:
				return writeJSON(g.stdout, results)
			default:
				for _, r := range results {
					termColor.Fprint(g.stdout, r.Term)
					fmt.Fprintf(g.stdout, "\t%s\n\t  %s\n", r.MeaningLine, r.Context)
				}
			}

			fmt.Fprintf(g.stderr, "%d matches, %d terms\n", len(results), len(lines))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&terms, "terms", "t", nil, "Terms to look for (default: every stored term)")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Output the page with terms wrapped in highlight spans")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

func newTermsCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "terms",
		Short: "List stored terms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			terms, err := a.svc.Terms(cmd.Context())
			if err != nil {
				return err
			}
			for _, term := range terms {
				fmt.Fprintln(g.stdout, term)
			}
			return nil
		},
	}
}

func newPurgeCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove every cached interpretation in the configured namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			n := a.svc.Purge(cmd.Context())
			okColor.Fprintf(g.stdout, "removed %d cache entries from %s\n", n, a.svc.Namespace())
			return nil
		},
	}
}

func newImportCommand(g *globals) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a JSON or YAML seed file into the record store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			importer := store.NewImporter(a.store)
			if dryRun {
				return planImport(cmd, g, importer, args[0])
			}

			result, err := importer.ImportFromFile(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("import failed: %w", err)
			}

			okColor.Fprintf(g.stdout, "imported %d", result.Imported)
			fmt.Fprintf(g.stdout, ", skipped %d", result.Skipped)
			if result.Failed > 0 {
				warnColor.Fprintf(g.stdout, ", failed %d", result.Failed)
			}
			fmt.Fprintln(g.stdout)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would change without writing")
	return cmd
}

func planImport(cmd *cobra.Command, g *globals, importer *store.Importer, path string) error {
	f, err := os.Open(path) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	diff, err := importer.Plan(cmd.Context(), f, store.FormatFromPath(path))
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	for _, e := range diff.Added {
		okColor.Fprint(g.stdout, "+ ")
		fmt.Fprintln(g.stdout, e.MeaningLine)
	}
	for _, m := range diff.Modified {
		warnColor.Fprint(g.stdout, "~ ")
		fmt.Fprintf(g.stdout, "%s\n    was: %s\n", m.New.MeaningLine, m.Old.MeaningLine)
	}

	stats := diff.Stats()
	fmt.Fprintf(g.stdout, "would import %d (%d new, %d changed), unchanged %d, skipped %d\n",
		stats.Added+stats.Modified, stats.Added, stats.Modified, stats.Unchanged, stats.Skipped)
	return nil
}

func newExportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the latest interpretation of every term as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.loadApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			metadata := map[string]string{
				"generator": slanger.UserAgent(),
				"namespace": a.svc.Namespace(),
			}
			exporter := store.NewExporter(a.store)
			if len(args) == 0 {
				return exporter.Export(cmd.Context(), g.stdout, metadata)
			}
			if err := exporter.ExportToFile(cmd.Context(), args[0], metadata); err != nil {
				return err
			}
			okColor.Fprintf(g.stderr, "exported to %s\n", args[0])
			return nil
		},
	}
}

// readInput reads the named file, or stdin for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0]) // #nosec G304 - CLI tool reads user-specified files
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
