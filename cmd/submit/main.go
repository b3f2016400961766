// Command submit drives the workflow service from the command line: save a
// draft, then submit it for review with bounded retries.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"eventdesk/pkg/client"
)

func main() {
	_ = godotenv.Load()

	var (
		baseURL string
		actorID int64
	)

	root := &cobra.Command{
		Use:           "submit",
		Short:         "Save and submit event proposals",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&baseURL, "server", envOr("EVENTDESK_SERVER_URL", "http://localhost:8080"), "workflow service base URL")
	root.PersistentFlags().Int64Var(&actorID, "actor", 0, "acting user id")

	draftCmd := &cobra.Command{
		Use:   "draft",
		Short: "Create a new draft proposal",
		RunE: func(cmd *cobra.Command, args []string) error {
			title, _ := cmd.Flags().GetString("title")
			description, _ := cmd.Flags().GetString("description")
			organization, _ := cmd.Flags().GetString("organization")

			c := client.New(baseURL)
			p, err := c.SaveDraft(cmd.Context(), map[string]any{
				"submitter_id": actorID,
				"title":        title,
				"description":  description,
				"organization": organization,
			})
			if err != nil {
				fmt.Fprintln(os.Stderr, client.FriendlyMessage(err))
				return err
			}
			return printJSON(cmd, p)
		},
	}
	draftCmd.Flags().String("title", "", "proposal title")
	draftCmd.Flags().String("description", "", "proposal description")
	draftCmd.Flags().String("organization", "", "submitting organization")
	_ = draftCmd.MarkFlagRequired("title")

	submitCmd := &cobra.Command{
		Use:   "send <proposal-uuid>",
		Short: "Submit a draft proposal for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid proposal uuid %q", args[0])
			}
			timeout, _ := cmd.Flags().GetDuration("timeout")

			c := client.New(baseURL)
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			p, err := c.Submit(ctx, id, actorID)
			if err != nil {
				fmt.Fprintln(os.Stderr, client.FriendlyMessage(err))
				return err
			}
			return printJSON(cmd, p)
		},
	}
	submitCmd.Flags().Duration("timeout", time.Minute, "overall submission deadline")

	root.AddCommand(draftCmd, submitCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
