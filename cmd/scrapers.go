package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/autoscraper/scrapervault/internal/repository"
)

// newSaveCmd creates the 'save' subcommand persisting a scraper artifact.
func newSaveCmd() *cobra.Command {
	var (
		codeFile    string
		url         string
		selectors   string
		siteName    string
		scraperType string
	)

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Persist a scraper artifact with its metadata",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			code, err := os.ReadFile(codeFile)
			if err != nil {
				return fmt.Errorf("read code file: %w", err)
			}

			var selectorMap repository.SelectorMap
			if selectors != "" {
				if err := json.Unmarshal([]byte(selectors), &selectorMap); err != nil {
					return fmt.Errorf("parse selectors: %w", err)
				}
			}

			saved, err := appInstance.Writer().SaveArtifact(cmd.Context(), repository.SaveRequest{
				Code:      string(code),
				URL:       url,
				Selectors: selectorMap,
				SiteName:  siteName,
				Type:      repository.ScraperType(scraperType),
			})
			if err != nil {
				return fmt.Errorf("save artifact: %w", err)
			}
			return printJSON(cmd, saved)
		},
	}

	cmd.Flags().StringVar(&codeFile, "code", "", "path to the scraper source file")
	cmd.Flags().StringVar(&url, "url", "", "example URL the scraper handles")
	cmd.Flags().StringVar(&selectors, "selectors", "", "selector map as a JSON object")
	cmd.Flags().StringVar(&siteName, "site-name", "", "human-readable site name")
	cmd.Flags().StringVar(&scraperType, "type", "", "scraper type (single, list, content)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("url")

	return cmd
}

// newGetCmd creates the 'get' subcommand printing a stored scraper.
func newGetCmd() *cobra.Command {
	var codeOnly bool

	cmd := &cobra.Command{
		Use:   "get <domain>",
		Short: "Print a stored scraper and its metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			artifact, err := appInstance.Resolver().GetArtifact(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if codeOnly {
				cmd.Print(artifact.Code)
				return nil
			}
			meta, err := appInstance.Resolver().GetMetadata(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]any{"metadata": meta, "code": artifact.Code})
		},
	}

	cmd.Flags().BoolVar(&codeOnly, "code-only", false, "print only the scraper source")
	return cmd
}

// newResolveCmd creates the 'resolve' subcommand matching a URL to a scraper.
func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <url>",
		Short: "Find the scraper responsible for a URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			artifact, err := appInstance.Resolver().GetArtifactForURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, map[string]string{
				"domain": artifact.Domain,
				"key":    artifact.Key,
				"code":   artifact.Code,
			})
		},
	}
}

// newListCmd creates the 'list' subcommand enumerating stored scrapers.
func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all stored scrapers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			metas, err := appInstance.Resolver().ListArtifacts(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, metas)
		},
	}
}

// newPipelinesCmd creates the 'pipelines' subcommand enumerating complete
// list/content pairs.
func newPipelinesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipelines",
		Short: "List domains with a complete list/content scraper pair",
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}

			pipelines, err := appInstance.Resolver().ListPipelines(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd, pipelines)
		},
	}
}

func printJSON(cmd *cobra.Command, payload any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
