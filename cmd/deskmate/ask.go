package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/deskmate/internal/domain/chat"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	reply, err := a.assistant.Invoke(ctx, entities.AssistantRequest{
		Message:             strings.Join(args, " "),
		UserID:              userID,
		ForceRefreshContext: refresh,
	})
	if err != nil {
		classified := chat.ClassifyError(err)
		fmt.Fprintln(cmd.ErrOrStderr(), chat.UserMessage(classified))
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Message)
	if reply.Usage != nil && verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "tokens: prompt=%d completion=%d total=%d\n",
			reply.Usage.PromptTokens, reply.Usage.CompletionTokens, reply.Usage.TotalTokens)
	}
	return nil
}
