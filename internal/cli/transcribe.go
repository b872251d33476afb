package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nikhilbhutani/speechtotext/internal/models"
)

func newTranscribeCmd(opts *options) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "transcribe FILE",
		Short: "Transcribe an audio file and save it to your history",
		Long: "Uploads FILE to the relay and prints the transcript. When logged in, the transcript " +
			"is also appended to your history; a failed append is reported but does not fail the command.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k := models.HistoryKind(kind)
			if !k.Valid() {
				return fmt.Errorf("--type must be %s or %s", models.HistoryKindUpload, models.HistoryKindLive)
			}
			rec, err := opts.client().TranscribeAndRecord(cmd.Context(), args[0], k)
			if err != nil {
				return fmt.Errorf("transcribe: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), rec.Text)
			if rec.HistoryErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: transcript not saved to history: %v\n", rec.HistoryErr)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "type", string(models.HistoryKindUpload), "History type: Upload or Live")
	return cmd
}

func newHistoryCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List your transcriptions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := opts.client().ListHistory(cmd.Context())
			if err != nil {
				return fmt.Errorf("history: %w", err)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transcriptions yet")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tTEXT")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.CreatedAt.Local().Format(time.DateTime), e.Type, e.Text)
			}
			return tw.Flush()
		},
	}
}
