package commands

import (
	"wiki-engine/models"
	"wiki-engine/repositories"
	"wiki-engine/services"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// newRoleCmd is the only way to grant editor or admin roles; self
// registration always yields writers.
func newRoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "role <email> <writer|editor|admin>",
		Short: "Set the role of a registered user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			db, err := openDB(cfg, logger)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				defer sqlDB.Close()
			}

			auth := services.NewAuthService(repositories.NewUserRepository(db), cfg.JWT)
			user, err := auth.SetRole(cmd.Context(), args[0], models.UserRole(args[1]))
			if err != nil {
				return err
			}

			logger.Info("user.role", zap.Uint("user_id", user.ID), zap.String("role", string(user.Role)))
			cmd.Printf("%s is now %s\n", user.Email, user.Role)
			return nil
		},
	}
}
