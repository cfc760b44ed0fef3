package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/elk-language/go-prompt"
	istrings "github.com/elk-language/go-prompt/strings"

	"github.com/claippy/claippy/internal/conversation"
	"github.com/claippy/claippy/internal/display"
)

// replSession holds the state for one interactive session. It keeps only
// the active conversation id for the prompt; all conversation data stays
// owned by the store.
type replSession struct {
	app         *App
	exitFlag    bool
	inputBuffer []string // buffer for multiline input
}

// runREPL starts the interactive read-eval-print loop.
func (app *App) runREPL() error {
	store, err := app.ensureStore()
	if err != nil {
		return err
	}

	fmt.Fprintln(app.out, "claippy - interactive mode")
	fmt.Fprintf(app.out, "Model: %s\n", app.cfg.Model)
	if id, err := store.CurrentID(); err == nil {
		fmt.Fprintf(app.out, "Conversation: %s\n", id)
	} else {
		fmt.Fprintln(app.out, "No active conversation; the first query starts one.")
	}
	fmt.Fprintln(app.out, "Type !help for commands, Ctrl+C or Ctrl+D to quit")
	fmt.Fprintln(app.out, "End a line with \\ for multiline input")
	fmt.Fprintln(app.out)

	session := &replSession{app: app}

	p := prompt.New(
		session.execute,
		prompt.WithCompleter(session.completer),
		prompt.WithPrefixCallback(session.prefix),
		prompt.WithTitle("claippy"),
		prompt.WithPrefixTextColor(prompt.Green),
		prompt.WithMaxSuggestion(12),
		prompt.WithCompletionOnDown(),
		prompt.WithExitChecker(func(in string, breakline bool) bool {
			return session.exitFlag
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlC,
			Fn: func(p *prompt.Prompt) bool {
				fmt.Println("\nGoodbye!")
				session.exitFlag = true
				return false
			},
		}),
		prompt.WithKeyBind(prompt.KeyBind{
			Key: prompt.ControlD,
			Fn: func(p *prompt.Prompt) bool {
				if p.Buffer().Text() == "" {
					fmt.Println("Goodbye!")
					session.exitFlag = true
				}
				return false
			},
		}),
	)

	p.Run()
	return nil
}

// prefix renders the prompt tied to the active conversation.
func (s *replSession) prefix() string {
	if id, err := s.app.store.CurrentID(); err == nil {
		return id + "> "
	}
	return "> "
}

// execute handles one input line: bang-commands go through the dispatcher,
// anything else is an implicit query. Errors abort only the current action;
// the loop continues.
func (s *replSession) execute(input string) {
	if s.exitFlag {
		return
	}

	// Multiline input with backslash continuation.
	if strings.HasSuffix(input, "\\") {
		s.inputBuffer = append(s.inputBuffer, strings.TrimSuffix(input, "\\"))
		fmt.Print("... ")
		return
	}
	if len(s.inputBuffer) > 0 {
		s.inputBuffer = append(s.inputBuffer, input)
		input = strings.Join(s.inputBuffer, "\n")
		s.inputBuffer = nil
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return
	}

	var err error
	if strings.HasPrefix(input, "!") {
		name, args := parseBangLine(input)
		switch name {
		case "exit", "quit":
			fmt.Println("Goodbye!")
			s.exitFlag = true
			return
		case "help":
			s.showHelp()
			return
		default:
			err = s.app.Dispatch(name, args)
		}
	} else {
		err = s.app.runQuery(input)
	}

	if err != nil {
		display.ShowError(err.Error())
		if errors.Is(err, ErrUnknownCommand) {
			fmt.Println("Type !help for available commands")
		}
		if errors.Is(err, conversation.ErrNoActiveConversation) {
			fmt.Println("Start one with !new [id]")
		}
	}
}

// parseBangLine tokenizes a "!command rest of line" input.
func parseBangLine(input string) (name string, args []string) {
	fields := strings.Fields(strings.TrimPrefix(input, "!"))
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// completer suggests bang-commands; free text gets no suggestions.
func (s *replSession) completer(d prompt.Document) ([]prompt.Suggest, istrings.RuneNumber, istrings.RuneNumber) {
	text := d.TextBeforeCursor()
	endIndex := d.CurrentRuneIndex()
	w := d.GetWordBeforeCursor()
	startIndex := endIndex - istrings.RuneCountInString(w)

	if !strings.HasPrefix(text, "!") {
		return []prompt.Suggest{}, startIndex, endIndex
	}

	suggestions := make([]prompt.Suggest, 0, len(commandTable)+2)
	for _, spec := range commandTable {
		if spec.Name == "repl" {
			continue
		}
		suggestions = append(suggestions, prompt.Suggest{
			Text:        "!" + spec.Name,
			Description: spec.Short,
		})
	}
	suggestions = append(suggestions,
		prompt.Suggest{Text: "!help", Description: "Show available commands"},
		prompt.Suggest{Text: "!exit", Description: "Leave the session"},
	)

	return prompt.FilterHasPrefix(suggestions, w, true), startIndex, endIndex
}

func (s *replSession) showHelp() {
	fmt.Println("\nCommands:")
	for _, spec := range commandTable {
		if spec.Name == "repl" {
			continue
		}
		name := "!" + spec.Name
		for _, alias := range spec.Aliases {
			name += ", !" + alias
		}
		if spec.Usage != "" {
			name += " " + spec.Usage
		}
		fmt.Printf("  %-28s %s\n", name, spec.Short)
	}
	fmt.Printf("  %-28s %s\n", "!help", "Show this help")
	fmt.Printf("  %-28s %s\n", "!exit, !quit", "Leave the session")
	fmt.Println("\nAny other line is sent as a query to the active conversation.")
	fmt.Println()
}
