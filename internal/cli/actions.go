package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/shapescale/dialbox/internal/migrate"
)

func newMarkReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mark-read <contact>",
		Short: "Mark a conversation as read",
		Long:  "Flag every unread message for the contact as read.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			contact := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			n, err := st.MarkRead(cmd.Context(), contact)
			if err != nil {
				return fmt.Errorf("failed to mark read: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonAction{OK: true, Action: "mark-read", Contact: contact, Count: n})
			}

			if n == 0 {
				fmt.Println("No unread messages.")
				return nil
			}
			fmt.Printf("Marked %d message(s) read for %s\n", n, contactDisplay(contact))
			return nil
		},
	}
}

func newMigrateCmd() *cobra.Command {
	var fromFlag string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate a legacy JSON mailbox into the database",
		Long:  "Replay every message from a legacy JSON mailbox file into the configured store. Safe to re-run; already-stored messages are skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			legacyPath := fromFlag
			if legacyPath == "" {
				return fmt.Errorf("legacy mailbox path is required; pass --from")
			}

			log := logrus.New()
			if jsonFlag {
				log.SetLevel(logrus.ErrorLevel)
			}

			res, err := migrate.Run(cmd.Context(), legacyPath, st, log)
			if err != nil {
				return fmt.Errorf("failed to migrate: %w", err)
			}

			if jsonFlag {
				return printJSON(jsonMigration{
					OK:      true,
					Total:   res.Total,
					Created: res.Created,
					Skipped: res.Skipped,
				})
			}

			fmt.Printf("Migrated %d message(s): %d new, %d already present\n",
				res.Total, res.Created, res.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&fromFlag, "from", "", "path to the legacy JSON mailbox file")
	return cmd
}
