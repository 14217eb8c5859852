package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vrsandeep/qa-harvest/internal/patterns"
)

var patternsImport string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Show the stored matching rules, or replace them from a JSON file",
	Args:  cobra.NoArgs,
	RunE:  runPatterns,
}

func init() {
	patternsCmd.Flags().StringVar(&patternsImport, "import", "", "replace the rules with the contents of this JSON file")
	rootCmd.AddCommand(patternsCmd)
}

func runPatterns(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		return err
	}
	defer app.Close()
	ctx := context.Background()

	if patternsImport != "" {
		data, err := os.ReadFile(patternsImport)
		if err != nil {
			return err
		}
		var set patterns.Set
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("parse %s: %w", patternsImport, err)
		}
		if err := app.Patterns.Replace(ctx, set); err != nil {
			return err
		}
	}

	set, err := app.Patterns.Get(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printRules(out, "Model", set.Model)
	printRules(out, "QA", set.QA)
	return nil
}

func printRules(w io.Writer, title string, rules []patterns.Rule) {
	fmt.Fprintf(w, "%s patterns:\n", title)
	for i, r := range rules {
		norm := make([]string, len(r.Normalize))
		for j, d := range r.Normalize {
			norm[j] = string(d)
		}
		fmt.Fprintf(w, "  %d. %s", i+1, r.Pattern)
		if len(norm) > 0 {
			fmt.Fprintf(w, "  [%s]", strings.Join(norm, ","))
		}
		fmt.Fprintln(w)
	}
}
