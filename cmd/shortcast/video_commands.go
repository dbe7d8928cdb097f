package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newUploadCommand(ctx *commandContext) *cobra.Command {
	var title string

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a video for subtitle processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			video, err := client.Upload(args[0], title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %q as video %d; processing queued\n", video.Title, video.ID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "Title for the uploaded video (defaults to the filename)")
	return cmd
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List videos known to the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			videos, err := client.ListVideos(statuses)
			if err != nil {
				return err
			}
			if len(videos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No videos")
				return nil
			}

			rows := make([][]string, 0, len(videos))
			for _, video := range videos {
				detail := video.YouTubeURL
				if detail == "" {
					detail = video.ErrorMessage
				}
				rows = append(rows, []string{
					strconv.FormatInt(video.ID, 10),
					video.Title,
					video.Status,
					yesNo(video.HasSubtitles),
					detail,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"ID", "Title", "Status", "Subtitled", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	return cmd
}

func newSaveCommand(ctx *commandContext) *cobra.Command {
	var nicheID int64
	var title string

	cmd := &cobra.Command{
		Use:   "save <video-id>",
		Short: "Queue a processed video for publishing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid video id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var niche *int64
			if cmd.Flags().Changed("niche") {
				niche = &nicheID
			}
			if err := client.Save(id, niche, strings.TrimSpace(title)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Publish queued for video %d\n", id)
			return nil
		},
	}
	cmd.Flags().Int64VarP(&nicheID, "niche", "n", 0, "Niche ID to assign before publishing")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Override the video title")
	return cmd
}

func newDiscardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "discard <video-id>",
		Short: "Delete a video and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(strings.TrimSpace(args[0]), 10, 64)
			if err != nil {
				return fmt.Errorf("invalid video id %q", args[0])
			}
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.Discard(id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Discarded video %d\n", id)
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show daemon health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			health, err := client.Health()
			if err != nil {
				return err
			}
			rows := [][]string{
				{"Total", strconv.Itoa(health.Total)},
				{"Uploaded", strconv.Itoa(health.Uploaded)},
				{"In flight", strconv.Itoa(health.InFlight)},
				{"Processed", strconv.Itoa(health.Processed)},
				{"Published", strconv.Itoa(health.Published)},
				{"Failed", strconv.Itoa(health.Failed)},
				{"Queued jobs", strconv.Itoa(health.QueuedJobs)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(out,
				[]string{"Metric", "Count"},
				rows,
				[]columnAlignment{alignLeft, alignRight},
			))
			return nil
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
