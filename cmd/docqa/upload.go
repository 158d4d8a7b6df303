package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

func newUploadCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:         "upload <file.pdf>",
		Short:       "Upload a PDF document and print its document ID",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotationNeedsAPI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read %s: %w", args[0], err)
			}

			uploader := docqa.NewUploader(a.cfg.APIURL, a.executor, a.tokens, a.logger)
			fmt.Fprintln(a.out, "Uploading...")
			result := uploader.Upload(cmd.Context(), args[0], data)
			if !result.Outcome.IsSuccess() {
				return a.report(result.Outcome)
			}

			fmt.Fprintf(a.out, "Upload successful! Document ID: %s (%d pages)\n", result.DocumentID, result.Pages)
			return nil
		},
	}
}
