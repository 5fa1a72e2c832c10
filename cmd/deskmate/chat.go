package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/0xcro3dile/deskmate/internal/domain/chat"
	"github.com/0xcro3dile/deskmate/internal/domain/entities"
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.registry.Get(ctx, userID)
	if err != nil {
		return err
	}
	return repl(ctx, session, cmd.InOrStdin(), cmd.OutOrStdout())
}

// printer writes assistant messages as they appear or change and signals
// when a turn has fully settled.
type printer struct {
	mu      sync.Mutex
	out     io.Writer
	printed map[int]string
	sending bool
	idle    chan struct{}
}

func (p *printer) onState(st chat.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(st.Messages) == 0 {
		p.printed = make(map[int]string)
	}
	for i, m := range st.Messages {
		if m.Role != entities.RoleAssistant || p.printed[i] == m.Content {
			continue
		}
		p.printed[i] = m.Content
		fmt.Fprintf(p.out, "assistant> %s\n", m.Content)
	}

	switch {
	case st.IsSending:
		p.sending = true
	case p.sending && st.Phase == chat.PhaseIdle:
		p.sending = false
		select {
		case p.idle <- struct{}{}:
		default:
		}
	}
}

func (p *printer) markPrinted(st chat.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, m := range st.Messages {
		if m.Role == entities.RoleAssistant {
			p.printed[i] = m.Content
		}
	}
}

// repl reads lines from in until EOF or /quit. Each line is sent through the
// session and the reply is awaited before the next prompt.
func repl(ctx context.Context, session *chat.Controller, in io.Reader, out io.Writer) error {
	p := &printer{out: out, printed: make(map[int]string), idle: make(chan struct{}, 1)}

	state := session.State()
	for _, m := range state.Messages {
		fmt.Fprintf(out, "%s> %s\n", m.Role, m.Content)
	}
	p.markPrinted(state)

	dispose := session.Subscribe(p.onState)
	defer dispose()

	fmt.Fprintln(out, "Type a question. /clear resets the conversation, /quit exits.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			if err := session.Clear(ctx); err != nil {
				fmt.Fprintf(out, "could not clear history: %v\n", err)
			} else {
				fmt.Fprintln(out, "Conversation cleared.")
			}
			continue
		}

		session.SetInput(line)
		session.Send()

		select {
		case <-p.idle:
		case <-ctx.Done():
			return nil
		}
	}
}
