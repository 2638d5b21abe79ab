package commands

import (
	"time"

	"github.com/spf13/cobra"
)

func newAutolockCmd(opts *rootOptions) *cobra.Command {
	var after time.Duration

	cmd := &cobra.Command{
		Use:   "autolock",
		Short: "Lock public articles whose first edit is older than the threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			if cmd.Flags().Changed("after") {
				cfg.Wiki.AutolockAfter = after
			}
			if cfg.Wiki.AutolockAfter <= 0 {
				cmd.Println("autolock is disabled, set wiki.autolock_after or --after")
				return nil
			}

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.autolock.LockStale(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("locked %d article(s)\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&after, "after", 0, "lock articles first edited at least this long ago")
	return cmd
}
