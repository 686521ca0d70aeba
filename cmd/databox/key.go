package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Sternrassler/gdgt-databox/pkg/cache"
	"github.com/Sternrassler/gdgt-databox/pkg/databox"
	"github.com/Sternrassler/gdgt-databox/pkg/lock"
)

func newKeyCmd(opts *rootOptions) *cobra.Command {
	var (
		postID int64
		width  int
		feed   bool
	)

	cmd := &cobra.Command{
		Use:   "key",
		Short: "Print the cache keys of a post",
		RunE: func(cmd *cobra.Command, args []string) error {
			if postID <= 0 {
				return fmt.Errorf("--post must be positive")
			}
			// keys need the display settings only, so an incomplete config is fine
			cfg, err := opts.loader().Read(cmd.Context())
			if err != nil {
				return err
			}

			post := databox.PostContext{PostID: postID, ContentWidth: width, IsFeed: feed}.Normalize()
			keys := cache.NewKeyBuilder(cfg.Cache.MaxKeyLength)
			primary := keys.Build(post.PostID, cfg.Display.KeyConfig(), post.KeyContext())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "primary  %s\n", primary)
			fmt.Fprintf(out, "lkg      %s\n", keys.LastKnownGood(primary))
			fmt.Fprintf(out, "lock     %s\n", lock.Key(keys, primary))
			return nil
		},
	}
	cmd.Flags().Int64Var(&postID, "post", 0, "post id")
	cmd.Flags().IntVar(&width, "width", 0, "theme content width in pixels (0 = unknown)")
	cmd.Flags().BoolVar(&feed, "feed", false, "compute the feed variant")
	_ = cmd.MarkFlagRequired("post")

	return cmd
}
