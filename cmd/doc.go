// Package cmd implements the CLI commands for claippy.
//
// # Architecture
//
// This package is organized into the following logical groups:
//
// ## Core CLI
//
//   - root.go: App struct, cobra command setup, and flags
//   - dispatch.go: the shared command table and action handlers
//   - query.go: query execution against the active conversation
//
// ## Interactive Mode
//
//   - repl.go: REPL session, bang-command routing, completion
//
// # Key Components
//
// ## App
//
// The App struct holds the configuration, the conversation store, and the
// query executor. It is created in Execute() and threaded through every
// command action, so the stores stay testable in isolation with an injected
// store root and a mock executor.
//
// ## Dispatch table
//
// commandTable is a single data-driven mapping from command name (and
// aliases) to action. The cobra subcommands and the REPL's bang-commands
// are both generated from it, so the two invocation surfaces cannot drift.
// Lookup and argument validation happen before any side effect; an unknown
// command never mutates conversation state.
//
// ## REPL session
//
// replSession reads lines via go-prompt. A line starting with "!" is
// tokenized into a command and routed through the dispatcher; any other
// non-empty line is an implicit query. Errors abort only the current
// action. Ctrl+C, or Ctrl+D on an empty line, ends the session.
package cmd
