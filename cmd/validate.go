package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autoscraper/scrapervault/internal/fetch"
	"github.com/autoscraper/scrapervault/internal/repository"
)

// newValidateCmd creates the 'validate' subcommand running a stored scraper
// in the sandbox.
func newValidateCmd() *cobra.Command {
	var (
		url         string
		all         bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "validate [domain]",
		Short: "Execute a stored scraper in the sandbox and record the verdict",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			if all {
				results, err := appInstance.Validator().ValidateAll(cmd.Context(), concurrency)
				if err != nil {
					return err
				}
				return printJSON(cmd, results)
			}
			if len(args) != 1 {
				return fmt.Errorf("a domain argument is required unless --all is set")
			}

			result, err := appInstance.Validator().Validate(cmd.Context(), args[0], url)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.Verdict.Success {
				return fmt.Errorf("validation failed: %s", result.Verdict.ErrorKind)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "test URL (defaults to the stored example URL)")
	cmd.Flags().BoolVar(&all, "all", false, "validate every stored scraper")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "parallel sandbox processes with --all")
	return cmd
}

// newProbeCmd creates the 'probe' subcommand testing CSS selectors against a
// live page.
func newProbeCmd() *cobra.Command {
	var selectors string

	cmd := &cobra.Command{
		Use:   "probe <url>",
		Short: "Fetch a page and report how a selector map matches it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			var selectorMap repository.SelectorMap
			if err := json.Unmarshal([]byte(selectors), &selectorMap); err != nil {
				return fmt.Errorf("parse selectors: %w", err)
			}

			resp, err := appInstance.Fetcher().Fetch(cmd.Context(), fetch.Request{URL: args[0]})
			if err != nil {
				return fmt.Errorf("fetch page: %w", err)
			}
			results, err := fetch.ProbeSelectors(resp.Body, selectorMap)
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{
				"url":      resp.URL,
				"status":   resp.StatusCode,
				"rendered": resp.Rendered,
				"results":  results,
			})
		},
	}

	cmd.Flags().StringVar(&selectors, "selectors", "", "selector map as a JSON object")
	_ = cmd.MarkFlagRequired("selectors")
	return cmd
}
