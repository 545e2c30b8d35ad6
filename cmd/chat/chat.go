package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"hmo-assistant-be/internal/dto"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Open a session and exchange messages with the assistant.

Type /new to start over and /quit (or Ctrl+D) to leave.
An expired session is replaced automatically.`,
	RunE: runChat,
}

var (
	assistantColor = color.New(color.FgCyan)
	phaseColor     = color.New(color.FgYellow)
	citationColor  = color.New(color.FgGreen)
	errorColor     = color.New(color.FgRed)
)

func runChat(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return repl(ctx, newAPIClient(apiURL), cmd.InOrStdin(), cmd.OutOrStdout())
}

type conversation struct {
	client    *apiClient
	out       io.Writer
	sessionID string
}

func (c *conversation) open(ctx context.Context) error {
	res, err := c.client.createSession(ctx)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	c.sessionID = res.SessionId
	assistantColor.Fprintln(c.out, res.Message)
	return nil
}

func (c *conversation) close(ctx context.Context) {
	if c.sessionID == "" {
		return
	}
	if err := c.client.deleteSession(ctx, c.sessionID); err != nil {
		errorColor.Fprintln(c.out, err)
	}
	c.sessionID = ""
}

func (c *conversation) say(ctx context.Context, text string) error {
	res, err := c.client.send(ctx, c.sessionID, text)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.sessionGone() {
		phaseColor.Fprintln(c.out, "Session expired, starting a new one.")
		c.sessionID = ""
		if err := c.open(ctx); err != nil {
			return err
		}
		res, err = c.client.send(ctx, c.sessionID, text)
	}
	if err != nil {
		return err
	}
	printReply(c.out, res)
	return nil
}

func printReply(out io.Writer, res *dto.SendMessageResponse) {
	phaseColor.Fprintf(out, "[%s] ", res.Phase)
	assistantColor.Fprintln(out, res.Message)
	for i, cite := range res.Citations {
		citationColor.Fprintf(out, "  [%d] %s (%s)\n", i+1, cite.Title, cite.SourceId)
	}
}

// repl reads one message per line until EOF, /quit or ctx is done.
func repl(ctx context.Context, client *apiClient, in io.Reader, out io.Writer) error {
	conv := &conversation{client: client, out: out}
	if err := conv.open(ctx); err != nil {
		return err
	}
	defer conv.close(context.WithoutCancel(ctx))

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		fmt.Fprint(out, "> ")
		var line string
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = strings.TrimSpace(l)
		}

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/new":
			conv.close(ctx)
			if err := conv.open(ctx); err != nil {
				return err
			}
			continue
		}

		if err := conv.say(ctx, line); err != nil {
			errorColor.Fprintln(out, err)
		}
	}
}
