package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/piske-alex/mongoexpr/internal/expression"
)

var (
	analyzeOutput     string
	analyzeMethodOnly bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [expression...]",
	Short: "Extract collection and method from expressions",
	Long: `Analyze each expression given as an argument, or each non-empty line
of stdin when no arguments are given.

Examples:
  mongoexpr analyze "db.Cars.find({})"
  mongoexpr analyze --output yaml "db.Cars['insertOne']({})"
  mongoexpr analyze --method-only < history.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd.OutOrStdout(), cmd.InOrStdin(), args, analyzeOutput, analyzeMethodOnly)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "json", "Output format (json, yaml)")
	analyzeCmd.Flags().BoolVar(&analyzeMethodOnly, "method-only", false, "Print only the method name, or null")
}

// analysis is the CLI view of one expression; absent segments print as null
type analysis struct {
	Expression string          `json:"expression" yaml:"expression"`
	Recognized bool            `json:"recognized" yaml:"recognized"`
	Collection *string         `json:"collection" yaml:"collection"`
	Method     *string         `json:"method" yaml:"method"`
	Kind       expression.Kind `json:"kind,omitempty" yaml:"kind,omitempty"`
	View       expression.View `json:"view,omitempty" yaml:"view,omitempty"`
}

func analyzeOne(expr string) analysis {
	a := analysis{Expression: expr}
	if collection, ok := expression.CollectionName(expr); ok {
		a.Collection = &collection
	}
	if res, err := expression.Analyze(expr); err == nil {
		a.Recognized = true
		a.Method = &res.Method
		a.Kind = res.Kind
		a.View = res.View
	}
	return a
}

func runAnalyze(out io.Writer, in io.Reader, args []string, format string, methodOnly bool) error {
	if format != "json" && format != "yaml" {
		return fmt.Errorf("unknown output format %q", format)
	}

	exprs := args
	if len(exprs) == 0 {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				exprs = append(exprs, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
	}

	results := make([]analysis, 0, len(exprs))
	for _, expr := range exprs {
		results = append(results, analyzeOne(strings.TrimSpace(expr)))
	}

	if methodOnly {
		for _, a := range results {
			method := "null"
			if a.Method != nil {
				method = *a.Method
			}
			if _, err := fmt.Fprintln(out, method); err != nil {
				return err
			}
		}
		return nil
	}

	if format == "yaml" {
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(results); err != nil {
			return err
		}
		return enc.Close()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
