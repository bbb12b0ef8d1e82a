package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/MereWhiplash/jobmatch/internal/client"
	"github.com/MereWhiplash/jobmatch/internal/mcptypes"
	"github.com/MereWhiplash/jobmatch/internal/types"
)

const (
	chatCommandRecommend = "/recommend"
	chatCommandClose     = "/close"
	chatCommandQuit      = "/quit"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to a running jobmatch API to describe the job you are looking for",
	Long: "Start or continue a conversation. Type " + chatCommandRecommend + " for matching jobs, " +
		chatCommandClose + " to end the conversation and " + chatCommandQuit + " to leave it open.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		userID, _ := cmd.Flags().GetString("user")
		conversationID, _ := cmd.Flags().GetString("conversation")
		return runChat(ctxOrBackground(cmd.Context()), client.New(apiURL), userID, conversationID)
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("api-url", "http://localhost:8080", "jobmatch API URL")
	chatCmd.Flags().StringP("user", "u", "", "user id")
	chatCmd.Flags().StringP("conversation", "c", "", "conversation to continue (default starts a new one)")
	chatCmd.MarkFlagRequired("user")
}

func runChat(ctx context.Context, c *client.Client, userID, conversationID string) error {
	if _, err := c.Health(ctx); err != nil {
		return fmt.Errorf("jobmatch API is not reachable: %w", err)
	}

	if conversationID != "" {
		sess, err := c.GetConversation(ctx, userID, conversationID)
		if err != nil {
			return err
		}
		fmt.Printf("Continuing conversation %s (%s, %d messages)\n", sess.ID, sess.State, len(sess.Messages))
	}

	prompt := promptui.Prompt{
		Label: "you",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("say something")
			}
			return nil
		},
	}

	for {
		line, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch strings.TrimSpace(line) {
		case chatCommandQuit:
			return nil
		case chatCommandRecommend:
			if conversationID == "" {
				fmt.Println("Tell me what you are looking for first.")
				continue
			}
			results, err := c.RecommendForConversation(ctx, userID, conversationID, 0)
			if err != nil {
				fmt.Printf("recommend failed: %v\n", err)
				continue
			}
			fmt.Print(mcptypes.FormatMatches(string(types.KindCandidate), results))
			fmt.Println()
			continue
		case chatCommandClose:
			if conversationID == "" {
				return nil
			}
			if _, err := c.CloseConversation(ctx, userID, conversationID); err != nil {
				return err
			}
			fmt.Printf("Conversation %s closed.\n", conversationID)
			return nil
		}

		resp, err := c.Chat(ctx, userID, conversationID, line)
		if err != nil {
			if errors.Is(err, types.ErrProviderUnavailable) {
				fmt.Println("The assistant is unavailable right now, your message was kept. Try again.")
				continue
			}
			return err
		}
		conversationID = resp.ConversationID

		fmt.Printf("\n%s\n\n", resp.Reply)
		if len(resp.Recommendations) > 0 {
			fmt.Print(mcptypes.FormatMatches(string(types.KindCandidate), resp.Recommendations))
			fmt.Println()
		} else if resp.State == types.StateConfirming {
			fmt.Printf("(type %s to see matching jobs)\n\n", chatCommandRecommend)
		}
	}
}
