package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ngl-strategy/rim-assistant/internal/model"
	"github.com/ngl-strategy/rim-assistant/internal/store"
)

var (
	chatUser    string
	chatSession string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat with persistent history",
	Long:  "Starts an interactive session. History is stored per session; /history replays it, /clear deletes it, /quit exits.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("chat"); err != nil {
			return err
		}
		ctx := cmd.Context()

		st, err := store.New(ctx, cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		e, err := getEngine()
		if err != nil {
			return err
		}

		sess, err := openSession(ctx, st)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, greeting(chatUser))
		fmt.Fprintf(out, "(session %s)\n\n", sess.ID)

		scanner := bufio.NewScanner(cmd.InOrStdin())
		scanner.Buffer(make([]byte, 64*1024), 64*1024)

		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			switch line {
			case "/quit", "/exit":
				return nil
			case "/history":
				if err := replayHistory(ctx, st, sess.ID, cmd); err != nil {
					return err
				}
				continue
			case "/clear":
				if err := st.ClearSession(ctx, sess.ID); err != nil {
					return err
				}
				sess, err = st.CreateSession(ctx, chatUser)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "History cleared. New session %s.\n", sess.ID)
				continue
			}

			if _, err := st.AppendMessage(ctx, sess.ID, model.RoleUser, line, nil); err != nil {
				return err
			}

			answer, err := e.Query(ctx, line)
			if err != nil {
				// Keep the session usable after a failed turn.
				zap.L().Error("query failed", zap.Error(err))
				fmt.Fprintf(out, "Error: %v\n", err)
				continue
			}

			fmt.Fprintln(out, answer.Text)
			if _, err := st.AppendMessage(ctx, sess.ID, model.RoleAssistant, answer.Text, answer.Sources); err != nil {
				return err
			}
		}
		return eris.Wrap(scanner.Err(), "read input")
	},
}

func openSession(ctx context.Context, st store.Store) (*model.Session, error) {
	if chatSession != "" {
		return st.GetSession(ctx, chatSession)
	}
	return st.CreateSession(ctx, chatUser)
}

func greeting(username string) string {
	name := ""
	if username != "" {
		name = ", " + username
	}
	return fmt.Sprintf("Hello%s! I'm your NGL Strategy Assistant. Ask me anything about the submitted reports.", name)
}

func replayHistory(ctx context.Context, st store.Store, sessionID string, cmd *cobra.Command) error {
	messages, err := st.ListMessages(ctx, sessionID)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(messages) == 0 {
		fmt.Fprintln(out, "No messages yet.")
		return nil
	}
	for _, m := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Format("15:04"), m.Role, m.Content)
	}
	return nil
}

func init() {
	chatCmd.Flags().StringVar(&chatUser, "user", "", "username recorded on the session")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "resume an existing session by id")
	rootCmd.AddCommand(chatCmd)
}
