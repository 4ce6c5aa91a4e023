// Package messages provides a centralized schema for all NATS messaging contracts
// of the browser terminal.
//
// This package consolidates message types, subject patterns, and validation logic
// into a single source of truth, providing:
//
//   - Type-safe message construction
//   - Centralized subject constants to eliminate hardcoded strings
//   - Validation methods and JSON-Schema checks for untrusted payloads
//   - Type-safe publisher for command and event publishing
//
// # Message Types
//
//   - Commands: Input messages that request something to happen (TerminalCommandMessage)
//   - Events: Output messages that indicate something has happened (TerminalOutputEvent)
//   - Exec request/reply: synchronous evaluation over core NATS (ExecRequest, ExecReply)
//
// # Subject Patterns
//
// Pattern constants are used for consumer subscriptions, builder functions
// generate concrete subjects:
//
//	terminal.session.<sid>.command          command line typed in a browser terminal
//	event.terminal.session.<sid>.output     normalized output for that terminal
//	event.terminal.session.<sid>.context    the session switched command context
//	terminal.exec                           request/reply evaluation
//
// # Usage Example
//
//	cmd := messages.NewTerminalCommandMessage(sid, "help")
//	publisher := messages.NewPublisher(js)
//	if err := publisher.PublishCommand(ctx, cmd); err != nil {
//	    return err
//	}
package messages
