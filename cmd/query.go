package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/claippy/claippy/internal/api"
	"github.com/claippy/claippy/internal/conversation"
	"github.com/claippy/claippy/internal/display"
	"github.com/claippy/claippy/internal/logging"
)

// runQuery sends text against the active conversation, auto-creating one
// when none exists. The user message and the response are persisted as a
// single atomic update after the executor succeeds, so an interrupted or
// failed call never leaves a half-written pair behind.
func (app *App) runQuery(text string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}

	conv, err := store.LoadCurrent()
	if errors.Is(err, conversation.ErrNoActiveConversation) {
		conv, err = store.Create(conversation.NewID(""))
		if err == nil {
			logging.Info("started conversation", logging.Fields{"id": conv.ID})
		}
	}
	if err != nil {
		return err
	}

	executor, err := app.ensureExecutor()
	if err != nil {
		return err
	}

	messages := make([]api.Message, 0, len(conv.Messages)+1)
	for _, msg := range conv.Messages {
		messages = append(messages, api.Message{Role: string(msg.Role), Content: msg.Content})
	}
	messages = append(messages, api.Message{Role: string(conversation.RoleUser), Content: text})
	req := api.BuildRequest(app.cfg.SystemPrompt, conv.Context, messages)

	// An interrupt during the executor call cancels the request; nothing
	// has been persisted at that point.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	response, err := app.generate(ctx, executor, req)
	if err != nil {
		return err
	}

	return store.AppendExchange(conv, text, response)
}

// generate runs the executor with spinner and streaming handling, returning
// the full response text. Output goes to app.out; when streaming without
// markdown rendering the chunks are printed as they arrive, otherwise the
// accumulated response is shown once at the end.
func (app *App) generate(ctx context.Context, executor api.QueryExecutor, req api.Request) (string, error) {
	sp := display.NewSpinner("Thinking...")
	sp.Start()

	streamPlain := app.cfg.Stream && !app.cfg.Render
	firstChunk := true
	onChunk := func(content string) {
		if firstChunk {
			firstChunk = false
			if streamPlain {
				sp.Stop()
			} else {
				sp.UpdateMessage("Receiving...")
			}
		}
		if streamPlain {
			fmt.Fprint(app.out, content)
		}
	}

	response, err := executor.Generate(ctx, req, onChunk)
	sp.Stop()
	if err != nil {
		return "", err
	}

	if streamPlain {
		fmt.Fprintln(app.out)
	} else if app.cfg.Render {
		display.ShowContentRendered(response)
	} else {
		fmt.Fprintln(app.out, response)
	}
	return response, nil
}
