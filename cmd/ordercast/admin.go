package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/ordercast-server/internal/app"
	"github.com/vovakirdan/ordercast-server/internal/auth"
	"github.com/vovakirdan/ordercast-server/internal/config"
	"github.com/vovakirdan/ordercast-server/internal/log"
)

func newAdminCmd(configPath *string) *cobra.Command {
	admin := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts directly in the store",
	}
	admin.AddCommand(newAdminCreateCmd(configPath))
	return admin
}

func newAdminCreateCmd(configPath *string) *cobra.Command {
	var (
		username   string
		password   string
		storeIDs   []string
		superAdmin bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a store admin or a superadmin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !superAdmin && len(storeIDs) == 0 {
				return fmt.Errorf("--store is required unless --superadmin is set")
			}

			logger := log.New("warn")
			cfg, _, err := config.Load(logger, *configPath)
			if err != nil {
				return err
			}

			st, err := app.OpenStore(cmd.Context(), cfg.Database)
			if err != nil {
				return fmt.Errorf("open store: %w", err)
			}
			defer st.Close()

			// Tokens are not issued here, so no JWT settings are needed.
			user, err := auth.NewService(st, nil).CreateAdmin(cmd.Context(), username, password, storeIDs, superAdmin)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (id %d, superadmin=%v, stores=%v)\n",
				user.Username, user.ID, user.SuperAdmin, user.StoreIDs)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "admin username")
	cmd.Flags().StringVar(&password, "password", "", "admin password")
	cmd.Flags().StringSliceVar(&storeIDs, "store", nil, "store id the admin may watch (repeatable)")
	cmd.Flags().BoolVar(&superAdmin, "superadmin", false, "allow watching every store and registering admins")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
