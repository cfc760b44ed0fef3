package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/claippy/claippy/internal/conversation"
)

// ErrUnknownCommand is returned when a command token matches no table entry.
var ErrUnknownCommand = errors.New("unknown command")

// commandSpec describes one action in the shared dispatch table. Both the
// CLI subcommand surface and the REPL bang-command surface are generated
// from the same entries, so the two never drift apart.
type commandSpec struct {
	Name    string
	Aliases []string
	Usage   string // argument placeholder for help text
	Short   string
	MinArgs int
	Run     func(app *App, args []string) error
}

// commandTable is the single mapping from command name to action. Lookup is
// case-sensitive on the canonical name and aliases.
var commandTable []commandSpec

// The table is populated in init rather than in the var initializer to
// avoid an initialization cycle (commandTable -> runREPL -> Dispatch ->
// lookupCommand -> commandTable).
func init() {
	commandTable = []commandSpec{
		{
			Name:  "repl",
			Short: "Start an interactive session (default)",
			Run:   func(app *App, _ []string) error { return app.runREPL() },
		},
		{
			Name:    "query",
			Aliases: []string{"q"},
			Usage:   "<text...>",
			Short:   "Send a query to the active conversation",
			MinArgs: 1,
			Run: func(app *App, args []string) error {
				return app.runQuery(strings.Join(args, " "))
			},
		},
		{
			Name:    "new",
			Aliases: []string{"n"},
			Usage:   "[id]",
			Short:   "Create a conversation and make it active",
			Run:     cmdNew,
		},
		{
			Name:  "clear",
			Short: "Empty the active conversation's message history",
			Run:   cmdClear,
		},
		{
			Name:  "history",
			Short: "Show the active conversation's messages",
			Run:   cmdHistory,
		},
		{
			Name:    "add",
			Aliases: []string{"a"},
			Usage:   "<path-or-url...>",
			Short:   "Add files or URLs to the context set",
			MinArgs: 1,
			Run:     cmdAdd,
		},
		{
			Name:    "remove",
			Aliases: []string{"rm"},
			Usage:   "<path-or-url...>",
			Short:   "Remove entries from the context set",
			MinArgs: 1,
			Run:     cmdRemove,
		},
		{
			Name:  "ls",
			Short: "List the context set",
			Run:   cmdList,
		},
	}
}

// lookupCommand resolves a command token against the table.
func lookupCommand(name string) (*commandSpec, bool) {
	for i := range commandTable {
		spec := &commandTable[i]
		if spec.Name == name {
			return spec, true
		}
		for _, alias := range spec.Aliases {
			if alias == name {
				return spec, true
			}
		}
	}
	return nil, false
}

// Dispatch resolves and validates a command before running it, so an
// unknown or malformed invocation never mutates any state.
func (app *App) Dispatch(name string, args []string) error {
	spec, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if len(args) < spec.MinArgs {
		return fmt.Errorf("%s requires arguments: %s %s", spec.Name, spec.Name, spec.Usage)
	}
	return spec.Run(app, args)
}

func cmdNew(app *App, args []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	// An explicit descriptor becomes the id verbatim so the user can pick a
	// stable name; otherwise a timestamp-derived id is synthesized.
	id := strings.Join(args, "-")
	if id == "" {
		id = conversation.NewID("")
	}
	if _, err := store.Create(id); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Created conversation %s\n", id)
	return nil
}

func cmdClear(app *App, _ []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	conv, err := store.LoadCurrent()
	if err != nil {
		return err
	}
	if err := store.Clear(conv); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "Conversation cleared.")
	return nil
}

func cmdHistory(app *App, _ []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	conv, err := store.LoadCurrent()
	if err != nil {
		return err
	}
	if len(conv.Messages) == 0 {
		fmt.Fprintln(app.out, "No messages.")
		return nil
	}
	for _, msg := range conv.Messages {
		fmt.Fprintf(app.out, "%s: %s\n", msg.Role, msg.Content)
	}
	return nil
}

func cmdAdd(app *App, args []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	conv, err := store.LoadCurrent()
	if err != nil {
		return err
	}
	added, skipped := conv.Context.Add(args)
	if len(added) > 0 {
		if err := store.Save(conv); err != nil {
			return err
		}
		refs := make([]string, len(added))
		for i, entry := range added {
			refs[i] = entry.Ref
		}
		fmt.Fprintf(app.out, "Added context: %s\n", strings.Join(refs, ", "))
	} else {
		fmt.Fprintln(app.out, "No new context entries.")
	}
	for _, ref := range skipped {
		fmt.Fprintf(app.out, "Skipped invalid reference: %s\n", ref)
	}
	return nil
}

func cmdRemove(app *App, args []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	conv, err := store.LoadCurrent()
	if err != nil {
		return err
	}
	removed := conv.Context.Remove(args)
	if len(removed) == 0 {
		fmt.Fprintln(app.out, "No matching context entries.")
		return nil
	}
	if err := store.Save(conv); err != nil {
		return err
	}
	refs := make([]string, len(removed))
	for i, entry := range removed {
		refs[i] = entry.Ref
	}
	fmt.Fprintf(app.out, "Removed context: %s\n", strings.Join(refs, ", "))
	return nil
}

func cmdList(app *App, _ []string) error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}
	conv, err := store.LoadCurrent()
	if err != nil {
		return err
	}
	entries := conv.Context.List()
	if len(entries) == 0 {
		fmt.Fprintln(app.out, "Context is empty.")
		return nil
	}
	for _, entry := range entries {
		fmt.Fprintln(app.out, entry.String())
	}
	return nil
}
