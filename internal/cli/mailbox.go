package cli

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/shapescale/dialbox/internal/domain"
)

func newConversationsCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "conversations",
		Short: "List conversations",
		Long:  "List per-contact conversation summaries, most recent first.",
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

			summaries, err := st.ListConversations(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list conversations: %w", err)
			}
			if limitFlag > 0 && len(summaries) > limitFlag {
				summaries = summaries[:limitFlag]
			}

			if jsonFlag {
				return printJSON(toJSONConversations(summaries))
			}

			if len(summaries) == 0 {
				fmt.Println("No conversations found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "UNREAD\tCONTACT\tLAST MESSAGE\tMSGS")
			for _, s := range summaries {
				unread := " "
				if s.UnreadCount > 0 {
					unread = unreadMark(s.UnreadCount)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n",
					unread,
					contactDisplay(s.Contact),
					s.LastMessage.Local().Format("Jan 2, 2006 3:04 PM"),
					s.MessageCount,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 0, "max conversations to show (0 = all)")
	return cmd
}

func newThreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "thread <contact>",
		Short: "Show a conversation thread",
		Long:  "Display all messages exchanged with a contact, oldest first.",
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

			msgs, err := st.GetThread(cmd.Context(), contact)
			if err != nil {
				return fmt.Errorf("failed to get thread: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONMessages(msgs))
			}

			if len(msgs) == 0 {
				fmt.Println("No messages found.")
				return nil
			}

			fmt.Printf("Contact: %s\n", contactDisplay(contact))
			fmt.Printf("Messages: %d\n", len(msgs))
			fmt.Println(strings.Repeat("─", 60))

			for i, m := range msgs {
				if i > 0 {
					fmt.Println()
				}
				arrow := "←"
				if m.Direction == domain.DirectionOutbound {
					arrow = "→"
				}
				status := "read"
				if !m.Read {
					status = "unread"
				}
				fmt.Printf("%s %s  [%s]\n", arrow,
					m.Timestamp.Local().Format("Mon, Jan 2 2006 3:04 PM"), status)
				fmt.Println(m.Body)
			}
			return nil
		},
	}
}

func newSearchCmd() *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search messages",
		Long:  "Full-text search across message bodies.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			msgs, err := st.Search(cmd.Context(), query)
			if err != nil {
				return fmt.Errorf("failed to search: %w", err)
			}
			if limitFlag > 0 && len(msgs) > limitFlag {
				msgs = msgs[:limitFlag]
			}

			if jsonFlag {
				return printJSON(toJSONMessages(msgs))
			}

			if len(msgs) == 0 {
				fmt.Println("No results found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CONTACT\tDIR\tDATE\tBODY")
			for _, m := range msgs {
				body := m.Body
				if len(body) > 60 {
					body = body[:57] + "..."
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					contactDisplay(m.Contact),
					m.Direction,
					m.Timestamp.Local().Format("Jan 2, 2006"),
					body,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limitFlag, "limit", 25, "max results to show")
	return cmd
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show mailbox statistics",
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

			stats, err := st.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			if jsonFlag {
				return printJSON(toJSONStats(stats))
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "Messages:\t%d\n", stats.Messages)
			fmt.Fprintf(w, "Contacts:\t%d\n", stats.Contacts)
			fmt.Fprintf(w, "Unread:\t%d\n", stats.Unread)
			return w.Flush()
		},
	}
}

// contactDisplay renders a contact number as (NXX) NXX-XXXX when it looks
// like a US number, otherwise verbatim.
func contactDisplay(contact string) string {
	if formatted := domain.FormatPhone(contact); len(formatted) == 14 {
		return formatted
	}
	return contact
}
