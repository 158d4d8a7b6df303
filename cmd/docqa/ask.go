package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	docqa "github.com/JohnPlummer/jp-go-docqa"
)

func newAskCommand(a *app) *cobra.Command {
	var docID string

	cmd := &cobra.Command{
		Use:   "ask --doc-id <id> [question...]",
		Short: "Ask a question about an uploaded document",
		Long: `Ask a question about an uploaded document. Without a question on the
command line, questions are read one per line from standard input and share a
single session, so document ID corrections carry over between questions.`,
		Annotations: map[string]string{annotationNeedsAPI: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			session := docqa.NewSession(a.cfg.APIURL, a.executor, a.tokens,
				docqa.WithDocumentID(docID),
				docqa.WithCorrector(a.corrector()),
				docqa.WithSessionLogger(a.logger),
			)

			if len(args) > 0 {
				return a.ask(cmd, session, strings.Join(args, " "))
			}

			scanner := bufio.NewScanner(a.in)
			fmt.Fprint(a.out, "> ")
			for scanner.Scan() {
				if question := strings.TrimSpace(scanner.Text()); question != "" {
					// Failures are already printed; keep the conversation going.
					_ = a.ask(cmd, session, question)
				}
				fmt.Fprint(a.out, "> ")
			}
			fmt.Fprintln(a.out)
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&docID, "doc-id", "", "document ID returned by upload")
	_ = cmd.MarkFlagRequired("doc-id")
	return cmd
}

func (a *app) ask(cmd *cobra.Command, session *docqa.Session, question string) error {
	result := session.Ask(cmd.Context(), question)
	for _, n := range result.Notices {
		fmt.Fprintf(a.out, "[%s correction] %s\n", n.Source, n.Message)
	}
	if !result.Outcome.IsSuccess() {
		return a.report(result.Outcome)
	}

	fmt.Fprintln(a.out, result.Answer)
	if result.IsFallback {
		fmt.Fprintln(a.out, "(Partial answer: full AI analysis was unavailable.)")
	}
	return nil
}
