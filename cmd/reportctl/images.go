package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/m1ll3r1337/incident-report-service/internal/generation"
)

func newImagesCmd(o *rootOptions) *cobra.Command {
	var req generation.ImageRequest

	cmd := &cobra.Command{
		Use:   "images",
		Short: "Request illustrative images for a generated report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			urls, err := o.client().GenerateImages(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, u := range urls {
				fmt.Fprintln(o.stdout, u)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&req.GeneratedText, "text", "", "generated report text")
	cmd.Flags().StringVar(&req.ImagePrompt, "prompt", "", "image prompt")
	return cmd
}
