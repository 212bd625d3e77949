package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docnexus/internal/adapter/tui/files"
	"docnexus/internal/domain"
	"docnexus/internal/usecase/ingest"
)

func newFilesCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Upload documents and inspect their processing",
	}
	cmd.AddCommand(
		newFilesListCmd(opts),
		newFilesUploadCmd(opts),
		newFilesChunksCmd(opts),
		newFilesStatusCmd(opts),
		newFilesMetadataCmd(opts),
	)
	return cmd
}

// withApp runs fn with a wired app that is closed afterwards.
func withApp(opts *rootOptions, fn func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newApp(ctx, opts, false)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd, args)
	}
}

func newFilesListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploaded files",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(ctx context.Context, a *app, cmd *cobra.Command, _ []string) error {
			records, err := a.files.ListFiles(ctx)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No files uploaded.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tSIZE\tSTATUS\tSTAGE\tUPLOADED")
			for _, f := range records {
				uploaded := ""
				if !f.UploadedAt.IsZero() {
					uploaded = f.UploadedAt.Local().Format("2006-01-02 15:04")
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					f.ID, f.Name, ingest.FormatFileSize(f.Size), f.Status, domain.StageLabels[f.Stage], uploaded)
			}
			return tw.Flush()
		}),
	}
}

func newFilesUploadCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "upload <path...>",
		Short: "Upload documents for processing",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			staging := ingest.NewStaging(a.cfg.Ingest.MaxUploadBytes)
			for _, p := range args {
				if _, err := staging.Add(p); err != nil {
					return err
				}
			}

			diag := cmd.ErrOrStderr()
			last := -1
			records, err := a.files.Upload(ctx, staging, func(pct int) {
				if pct/10 != last/10 || pct == 100 {
					fmt.Fprintf(diag, "\ruploading %3d%%", pct)
				}
				last = pct
			})
			if last >= 0 {
				fmt.Fprintln(diag)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			taskID := ""
			var names []string
			for _, r := range records {
				fmt.Fprintf(out, "%s\t%s\t%s\n", r.ID, r.Name, ingest.FormatFileSize(r.Size))
				if r.TaskID != "" {
					taskID = r.TaskID
				}
				names = append(names, r.Name)
			}
			if taskID == "" {
				return nil
			}
			fmt.Fprintf(out, "task: %s\n", taskID)
			if !watch {
				return nil
			}
			return watchTask(ctx, a, taskID, names, records, out, diag)
		}),
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Follow processing until it finishes")
	return cmd
}

func newFilesStatusCmd(opts *rootOptions) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "status <task-id>",
		Short: "Show an ingestion task's state",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if watch {
				return watchTask(ctx, a, args[0], nil, nil, cmd.OutOrStdout(), cmd.ErrOrStderr())
			}
			st, err := a.client.TaskStatus(ctx, args[0])
			if err != nil {
				return err
			}
			printTaskStatus(cmd.OutOrStdout(), *st)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&watch, "watch", false, "Poll until the task finishes")
	return cmd
}

// watchTask follows taskID, printing each stage change to diag and the final
// pipeline of every file to out.
func watchTask(ctx context.Context, a *app, taskID string, names []string, records []domain.FileRecord, out, diag io.Writer) error {
	var lastStage domain.Stage
	res, err := a.poller.Watch(ctx, taskID, names, func(st domain.TaskStatus) {
		if st.CurrentStage != lastStage {
			lastStage = st.CurrentStage
			label := domain.StageLabels[st.CurrentStage]
			if label == "" {
				label = string(st.State)
			}
			fmt.Fprintf(diag, "%s: %s\n", taskID, label)
		}
	})
	if res != nil {
		printTaskStatus(out, res.Status)
		for _, f := range records {
			f.Status = domain.FileCompleted
			if res.Status.State == domain.TaskFailure {
				f.Status = domain.FileFailed
			}
			fmt.Fprintln(out, files.RenderPipeline(f, &res.Status, res.Metadata[f.Name]))
		}
	}
	return err
}

func printTaskStatus(w io.Writer, st domain.TaskStatus) {
	fmt.Fprintf(w, "state: %s\n", st.State)
	if st.CurrentStage != "" {
		fmt.Fprintf(w, "stage: %s\n", domain.StageLabels[st.CurrentStage])
	}
	if st.Status != "" {
		fmt.Fprintf(w, "status: %s\n", st.Status)
	}
}

func newFilesChunksCmd(opts *rootOptions) *cobra.Command {
	var kind, query string
	cmd := &cobra.Command{
		Use:   "chunks <file-id>",
		Short: "Print a processed file's chunks",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			chunks, err := a.files.Chunks(ctx, args[0])
			if err != nil {
				return err
			}
			shown := ingest.FilterChunks(chunks, kind, query)
			out := cmd.OutOrStdout()
			for i, c := range shown {
				page := "-"
				if c.Page != nil {
					page = fmt.Sprint(*c.Page)
				}
				fmt.Fprintf(out, "[%d] %s  page %s  %d chars\n", i+1, c.Type, page, c.Chars)
				fmt.Fprintln(out, strings.TrimSpace(c.Content))
				fmt.Fprintln(out)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "showing %d of %d chunks (types: %s)\n",
				len(shown), len(chunks), strings.Join(ingest.ChunkTypes(chunks), ", "))
			return nil
		}),
	}
	cmd.Flags().StringVar(&kind, "type", "", "Only chunks of this type")
	cmd.Flags().StringVar(&query, "search", "", "Only chunks containing this text")
	return cmd
}

func newFilesMetadataCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <file-name>",
		Short: "Show a file's stored processing record",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			meta, err := a.files.Metadata(ctx, args[0])
			if err != nil {
				return err
			}
			f := domain.FileRecord{ID: meta.ID, Name: meta.Name, Status: meta.Status, Stage: meta.Stage, JobStats: meta.JobStats}
			fmt.Fprintln(cmd.OutOrStdout(), files.RenderPipeline(f, nil, meta))
			return nil
		}),
	}
}
