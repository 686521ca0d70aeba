package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/gdgt-databox/pkg/databox"
	"github.com/Sternrassler/gdgt-databox/pkg/warmup"
)

func newRefreshCmd(opts *rootOptions) *cobra.Command {
	var postsFile string

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Regenerate the databoxes of many posts",
		Long:  "refresh reads a JSON array of posts and regenerates each databox, bypassing the cached copy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			posts, err := readPosts(postsFile)
			if err != nil {
				return err
			}

			_, cfg, err := opts.load(ctx)
			if err != nil {
				return err
			}
			d, err := buildDeps(ctx, cfg)
			if err != nil {
				return err
			}
			defer d.Close()

			results, runErr := warmup.New(d.generator, cfg.Warmup).RefreshAll(ctx, posts, cfg.Display)

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "POST\tOUTCOME\tKEY")
			failed := 0
			for _, r := range results {
				if r.Outcome == databox.OutcomeFailed {
					failed++
				}
				outcome := string(r.Outcome)
				if outcome == "" {
					outcome = "not_run"
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", r.PostID, outcome, r.Key)
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			if runErr != nil {
				return runErr
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d posts failed to refresh", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&postsFile, "posts", "", "path to a JSON array of posts")
	_ = cmd.MarkFlagRequired("posts")

	return cmd
}

func readPosts(path string) ([]databox.PostContext, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read posts: %w", err)
	}
	var posts []databox.PostContext
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	if len(posts) == 0 {
		return nil, errors.New("no posts to refresh")
	}
	for i, p := range posts {
		if p.PostID <= 0 {
			return nil, fmt.Errorf("post %d: post_id required", i)
		}
	}
	return posts, nil
}
