package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/sweetpotato0/govassist/app"
	"github.com/sweetpotato0/govassist/config"
	"github.com/sweetpotato0/govassist/service"
)

func newIndexCommand(configFile *string) *cobra.Command {
	var (
		svcName string
		opts    app.IndexOptions
	)
	cmd := &cobra.Command{
		Use:   "index <source-file>",
		Short: "Build one service collection from a cleaned text or HTML document",
		Long: "Splits the document on \"## SECTION_NAME\" headings, embeds every section " +
			"and replaces the service's collection in the configured index backend.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := service.Parse(svcName)
			if err != nil {
				return err
			}
			if svc == "" {
				return fmt.Errorf("--service is required")
			}

			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			content, err := app.ReadSource(args[0])
			if err != nil {
				return err
			}
			emb, closeEmb, err := app.NewEmbedder(cfg)
			if err != nil {
				return err
			}
			defer closeEmb()

			n, err := app.BuildIndex(cmd.Context(), cfg, emb, svc, content, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d passages for %s\n", n, svc.Title())
			return nil
		},
	}
	cmd.Flags().StringVarP(&svcName, "service", "s", "", "Service: ration_card, birth_certificate or unemployment_allowance")
	cmd.Flags().StringVar(&opts.Region, "region", "", "Region tag for every passage (default Kerala)")
	cmd.Flags().IntVar(&opts.MaxCharacters, "max-chars", 0, "Split sections longer than this many characters")
	cmd.Flags().IntVar(&opts.Overlap, "overlap", 0, "Characters shared between split pieces")
	return cmd
}
