package scrape

import (
	"context"
	"fmt"
	"galmirror/config"
	"galmirror/crawler"
	"galmirror/log"
	"galmirror/mirror"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

// Scrape runs the mirror operations once against the live upstream and prints the result as JSON
var Scrape *cobra.Command

var kindFlag string
var pageFlag int
var recommendFlag bool
var boardLimitFlag int
var relatedLimitFlag int

func init() {
	Scrape = &cobra.Command{
		Use: "scrape",
	}

	boardCmd := &cobra.Command{
		Use:  "board [board id]",
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			service, logger := setup()
			posts := service.ListBoard(context.Background(), mirror.ListBoardQuery{
				BoardId:   args[0],
				Kind:      crawler.ParseKind(kindFlag),
				Recommend: recommendFlag,
				Page:      pageFlag,
				Limit:     boardLimitFlag,
			}, logger)
			printJson(posts)
		},
	}
	boardCmd.Flags().IntVar(&pageFlag, "page", 1, "")
	boardCmd.Flags().BoolVar(&recommendFlag, "recommend", false, "")
	boardCmd.Flags().IntVar(&boardLimitFlag, "limit", 0, "0 uses the configured index limit")

	readCmd := &cobra.Command{
		Use:  "read [board id] [post id]",
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			service, logger := setup()
			document, comments, images := service.ReadDocument(
				context.Background(), args[1], args[0], crawler.ParseKind(kindFlag), logger,
			)
			printJson(map[string]any{
				"missing":  mirror.IsMissingDocument(&document),
				"document": document,
				"comments": comments,
				"images":   images,
			})
		},
	}

	relatedCmd := &cobra.Command{
		Use:  "related [board id] [post id]",
		Args: cobra.ExactArgs(2),
		Run: func(_ *cobra.Command, args []string) {
			service, logger := setup()
			posts := service.RelatedPostsByPosition(
				context.Background(), args[1], args[0], crawler.ParseKind(kindFlag), relatedLimitFlag, logger,
			)
			printJson(posts)
		},
	}
	relatedCmd.Flags().IntVar(&relatedLimitFlag, "limit", mirror.DefaultRelatedLimit, "")

	rankingCmd := &cobra.Command{
		Use: "ranking",
		Run: func(_ *cobra.Command, _ []string) {
			service, logger := setup()
			items, updatedAt, err := service.CurrentTopGalleries(context.Background(), logger)
			if err != nil {
				fail(err)
			}
			printJson(map[string]any{
				"updatedAt": updatedAt,
				"items":     items,
			})
		},
	}

	searchCmd := &cobra.Command{
		Use:  "search [query]",
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			service, logger := setup()
			results, err := service.SearchGalleries(context.Background(), args[0], logger)
			if err != nil {
				fail(err)
			}
			printJson(results)
		},
	}

	Scrape.PersistentFlags().StringVar(&kindFlag, "kind", "", "normal, minor, mini or person")
	Scrape.AddCommand(boardCmd)
	Scrape.AddCommand(readCmd)
	Scrape.AddCommand(relatedCmd)
	Scrape.AddCommand(rankingCmd)
	Scrape.AddCommand(searchCmd)
}

func setup() (*mirror.Service, crawler.Logger) {
	cfg, err := config.Load()
	if err != nil {
		fail(err)
	}
	log.Setup(cfg.LogLevel, true)
	client := crawler.NewHttpClientImpl(cfg.Http.Timeout, cfg.Http.MaxContentLengthB)
	return mirror.NewService(client, cfg), crawler.NewZeroLogger(log.Base)
}

func printJson(value any) {
	bytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(bytes))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
