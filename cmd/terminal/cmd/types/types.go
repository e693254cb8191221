package types

type contextKey string

// TerminalAppKey carries the wired *terminal.App through the command context.
const TerminalAppKey contextKey = "terminal-app"
