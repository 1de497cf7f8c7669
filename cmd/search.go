// Package cmd provides command-line interface functionality for the ruleindex application.
/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"ruleindex/internal/adapter/outbound/openai"
	"ruleindex/internal/adapter/outbound/repository"
	"ruleindex/internal/application/common/slogger"
	"ruleindex/internal/application/dto"
	"ruleindex/internal/application/service"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var searchFlags struct {
	gameID    string
	method    string
	topK      int
	threshold float64
	fields    []string
}

// newSearchCmd creates and returns the search command.
func newSearchCmd() *cobra.Command {
	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a game's indexed rule content",
		Long: `Search the indexed rule booklet content of one game.

The query text is embedded and ranked against the stored vectors of the
selected extraction channel (ocr, description or labels). Results are
printed as JSON, ordered by similarity.`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			runSearch(cmd, args[0])
		},
	}

	searchCmd.Flags().StringVar(&searchFlags.gameID, "game-id", "", "game to search (required)")
	searchCmd.Flags().StringVar(&searchFlags.method, "method", "", "search method: ocr, description or labels")
	searchCmd.Flags().IntVar(&searchFlags.topK, "top-k", 0, "maximum number of results")
	searchCmd.Flags().Float64Var(&searchFlags.threshold, "threshold", 0, "minimum similarity score")
	searchCmd.Flags().StringSliceVar(&searchFlags.fields, "fields", nil, "content fields to include in results")
	_ = searchCmd.MarkFlagRequired("game-id")

	return searchCmd
}

func runSearch(cmd *cobra.Command, query string) {
	cfg := GetConfig()
	ctx := context.Background()

	// An explicit --threshold 0 is a valid request for unfiltered results,
	// so only a flag the user never touched falls back to the default.
	var threshold *float64
	if cmd.Flags().Changed("threshold") {
		threshold = &searchFlags.threshold
	}

	gameID, err := uuid.Parse(searchFlags.gameID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid game-id %q: %v\n", searchFlags.gameID, err)
		return
	}

	dbPool, err := repository.NewConnectionPool(ctx, cfg.Database)
	if err != nil {
		slogger.ErrorNoCtx("Failed to create database connection pool", slogger.Fields{"error": err.Error()})
		return
	}
	defer dbPool.Close()

	aiClient, err := openai.NewClient(openai.ClientConfig{
		Endpoint:            cfg.OpenAI.Endpoint,
		APIKey:              cfg.OpenAI.APIKey,
		VisionDeployment:    cfg.OpenAI.VisionDeployment,
		EmbeddingDeployment: cfg.OpenAI.EmbeddingDeployment,
		APIVersion:          cfg.OpenAI.APIVersion,
		Timeout:             cfg.OpenAI.Timeout,
		MaxRetries:          cfg.OpenAI.MaxRetries,
	})
	if err != nil {
		slogger.ErrorNoCtx("Failed to create OpenAI client", slogger.Fields{"error": err.Error()})
		return
	}

	searchService := service.NewVectorSearchService(
		repository.NewPostgreSQLGameVectorRepository(dbPool),
		aiClient,
	)

	response, err := searchService.Search(ctx, dto.SearchRequestDTO{
		GameID:              gameID,
		Query:               query,
		TopK:                searchFlags.topK,
		SimilarityThreshold: threshold,
		Method:              searchFlags.method,
		ContentFields:       searchFlags.fields,
	})
	if err != nil {
		slogger.ErrorNoCtx("Search failed", slogger.Fields{"error": err.Error()})
		return
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding results: %v\n", err)
	}
}

func init() { //nolint:gochecknoinits // Standard Cobra CLI pattern for command registration
	rootCmd.AddCommand(newSearchCmd())
}
