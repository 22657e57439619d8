package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/siherrmann/docqa/config"
	"github.com/siherrmann/docqa/model"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Index a .pdf or .txt file and open a session for it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDocQA()
		if err != nil {
			return err
		}
		defer d.Close()

		session, err := d.UploadFile(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]interface{}{
				"session_id":   session.ID,
				"filename":     session.Filename,
				"chunks_count": session.ChunksCount,
				"expires_at":   session.ExpiresAt,
			})
		}
		fmt.Printf("Session %s\n", color.GreenString(session.ID.String()))
		fmt.Printf("Indexed %s into %d chunks, valid until %s\n", session.Filename, session.ChunksCount, session.ExpiresAt.Format("2006-01-02 15:04"))
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [session-id] <question>",
	Short: "Answer a question, from a document if a session is given",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID := uuid.Nil
		question := args[0]
		if len(args) == 2 {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid session id %q: %w", args[0], err)
			}
			sessionID, question = id, args[1]
		}

		d, err := openDocQA()
		if err != nil {
			return err
		}
		defer d.Close()

		answer, err := d.Ask(cmd.Context(), sessionID, question)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(answer)
		}
		printAnswer(answer)
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <session-id> <question>",
	Short: "Show the chunks of a document relevant to a question",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}

		d, err := openDocQA()
		if err != nil {
			return err
		}
		defer d.Close()

		results, _, err := d.Search(cmd.Context(), sessionID, args[1])
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(results)
		}
		printResults(results)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "End a session and delete its document index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid session id %q: %w", args[0], err)
		}

		d, err := openDocQA()
		if err != nil {
			return err
		}
		defer d.Close()

		if err := d.DeleteSession(cmd.Context(), sessionID); err != nil {
			return err
		}
		fmt.Printf("Deleted session %s\n", sessionID)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired sessions and their indexes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDocQA()
		if err != nil {
			return err
		}
		defer d.Close()

		deleted, err := d.Cleanup(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Deleted %d expired sessions\n", deleted)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", configPath)
		return nil
	},
}

func printAnswer(answer *model.Answer) {
	fmt.Println(answer.Text)
	if answer.Failed {
		return
	}

	var footer []string
	if answer.UsedDocument {
		footer = append(footer, "from "+answer.Filename)
	}
	if answer.Model != "" {
		footer = append(footer, "by "+answer.Model)
	}
	if len(footer) > 0 {
		fmt.Println(color.HiBlackString("(%s)", strings.Join(footer, ", ")))
	}
}

func printResults(results []*model.RetrievalResult) {
	if len(results) == 0 {
		fmt.Println("No relevant chunks found")
		return
	}
	for i, result := range results {
		fmt.Printf("%s %s\n", color.CyanString("%d. [%s %.3f]", i+1, result.RetrievalMethod, result.Score), result.Text)
	}
}
