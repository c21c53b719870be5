package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pitchforge-ai-api/internal/application/deck"
	"pitchforge-ai-api/internal/domain/entity"
	"pitchforge-ai-api/internal/wire"
	apperrors "pitchforge-ai-api/pkg/errors"
)

var (
	reqIdea        string
	reqCustomer    string
	reqRegion      string
	reqConstraints string
	outPath        string
)

func addRequestFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reqIdea, "idea", "", "business idea (required)")
	cmd.Flags().StringVar(&reqCustomer, "customer", "", "target customer")
	cmd.Flags().StringVar(&reqRegion, "region", "", "target region")
	cmd.Flags().StringVar(&reqConstraints, "constraints", "", "extra constraints for the model")
	_ = cmd.MarkFlagRequired("idea")
}

func deckRequest() entity.DeckRequest {
	return entity.DeckRequest{
		Idea:        reqIdea,
		Customer:    reqCustomer,
		Region:      reqRegion,
		Constraints: reqConstraints,
	}
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a deck and write the exported file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		rt, err := wire.InitializeDeckRuntime(ctx, cfg)
		if err != nil {
			return err
		}

		res, err := rt.Service.Generate(ctx, deckRequest())
		if err != nil {
			printFailure(cmd, res, err)
			return err
		}

		path := outPath
		if path == "" {
			path = res.Artifact.FileName
		}
		if err := os.WriteFile(path, res.Artifact.Data, 0o644); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "wrote %s (%d bytes, %s)\n", filepath.Clean(path), len(res.Artifact.Data), res.Artifact.MimeType)
		fmt.Fprintf(out, "company: %s\n", res.Content.CompanyName)
		fmt.Fprintf(out, "placeholders resolved: %d\n", res.Summary.PlaceholdersResolved)
		fmt.Fprintf(out, "charts refreshed: %d\n", res.Summary.ChartsRefreshed)
		if res.Handle != nil {
			fmt.Fprintf(out, "document: %s\n", res.Handle.DocumentID)
		}
		if len(res.Summary.RepairedFields) > 0 {
			fmt.Fprintf(out, "repaired fields: %v\n", res.Summary.RepairedFields)
		}
		if len(res.Summary.UnknownTokens) > 0 {
			fmt.Fprintf(out, "template tokens left as-is: %v\n", res.Summary.UnknownTokens)
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Print generated content and the placeholder table as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		rt, err := wire.InitializeDeckRuntime(ctx, cfg)
		if err != nil {
			return err
		}

		res, err := rt.Service.Preview(ctx, deckRequest())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Content      *entity.ContentModel `json:"content"`
			Placeholders []entity.Placeholder `json:"placeholders"`
			Summary      deck.Summary         `json:"summary"`
		}{
			Content:      res.Content,
			Placeholders: res.Placeholders.Entries(),
			Summary:      res.Summary,
		})
	},
}

// printFailure 输出失败阶段与残留副本，便于手工清理
func printFailure(cmd *cobra.Command, res *deck.Result, err error) {
	out := cmd.ErrOrStderr()
	if stage := apperrors.StageOf(err); stage != "" {
		fmt.Fprintf(out, "failed stage: %s\n", stage)
	}
	if res != nil && res.Handle != nil {
		fmt.Fprintf(out, "document copy left at: %s\n", res.Handle.DocumentID)
	}
}

func init() {
	addRequestFlags(generateCmd)
	generateCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to the exported file name)")
	addRequestFlags(previewCmd)
}
