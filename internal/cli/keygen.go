package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arnavshah/orientation-scheduler/pkg/auth"
	"github.com/arnavshah/orientation-scheduler/pkg/database"
)

func (a *App) keygenCmd() *cobra.Command {
	var (
		save      bool
		rateLimit int
	)

	cmd := &cobra.Command{
		Use:   "keygen <user-id>",
		Short: "Generate an HMAC-signed API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.MasterSecret == "" {
				return errors.New("API_MASTER_SECRET is not set")
			}
			userID := args[0]
			key := auth.NewService(a.cfg.Auth, a.log).GenerateHMACKey(userID)

			if save {
				db, err := database.Open(a.cfg.Database)
				if err != nil {
					return err
				}
				if sqlDB, err := db.DB(); err == nil {
					defer sqlDB.Close()
				}
				err = database.NewStore(db).CreateKey(cmd.Context(), &database.APIKey{
					Key:        key,
					Name:       userID,
					KeyPreview: database.Preview(key),
					RateLimit:  rateLimit,
				})
				if err != nil {
					return fmt.Errorf("saving key: %w", err)
				}
			}

			w := cmd.OutOrStdout()
			header(w, "Generated key for %s:", userID)
			fmt.Fprintln(w, key)
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "store the key so usage is tracked from the first request")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", database.DefaultRateLimit, "daily request limit when saving")
	return cmd
}
