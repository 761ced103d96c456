package core

import (
	"errors"
	"sync"

	"phagebox/protocol"
)

var (
	// ErrUnknownCommand is returned for a frame whose kind is not registered
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMalformedFrame is returned for a recognized frame with missing or
	// non-numeric fields. The frame has had no effect.
	ErrMalformedFrame = errors.New("malformed frame")
)

// CommandHandler handles one frame. fields holds the frame's fields after
// the kind field; handlers decode them with the protocol field decoders.
type CommandHandler func(fields *[][]byte) error

// Command describes a registered message kind
type Command struct {
	Kind    byte
	Name    string
	Format  string // Field layout for the dictionary (e.g., "zone=%u cycles=%u")
	Fields  int    // Minimum field count including the kind field
	Handler CommandHandler
}

// CommandRegistry maps message-kind bytes to handlers
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[byte]*Command
	order    []byte
}

// NewCommandRegistry creates an empty registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[byte]*Command),
	}
}

// Register adds a handler for a message kind. Registering a kind twice
// replaces the earlier handler.
func (r *CommandRegistry) Register(kind byte, name string, format string, fields int, handler CommandHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.commands[kind]; !exists {
		r.order = append(r.order, kind)
	}
	r.commands[kind] = &Command{
		Kind:    kind,
		Name:    name,
		Format:  format,
		Fields:  fields,
		Handler: handler,
	}
}

// Lookup retrieves a command by kind
func (r *CommandRegistry) Lookup(kind byte) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[kind]
	return cmd, ok
}

// Count returns the number of registered commands
func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch decodes a frame interior and calls the handler selected by the
// first character of its first field. Field-count and field-decoding
// failures are reported as ErrMalformedFrame.
func (r *CommandRegistry) Dispatch(frame []byte) error {
	fields := protocol.SplitFields(frame)
	if len(fields) == 0 || len(fields[0]) == 0 {
		return ErrUnknownCommand
	}

	cmd, ok := r.Lookup(fields[0][0])
	if !ok || cmd.Handler == nil {
		return ErrUnknownCommand
	}
	if len(fields) < cmd.Fields {
		return ErrMalformedFrame
	}

	args := fields[1:]
	err := cmd.Handler(&args)
	if errors.Is(err, protocol.ErrMissingField) || errors.Is(err, protocol.ErrInvalidNumber) {
		return ErrMalformedFrame
	}
	return err
}

// Dictionary lists the registered commands, one per line, in registration
// order
func (r *CommandRegistry) Dictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dict := ""
	for _, kind := range r.order {
		cmd := r.commands[kind]
		dict += string(cmd.Kind) + " " + cmd.Name
		if cmd.Format != "" {
			dict += " " + cmd.Format
		}
		dict += "\n"
	}
	return dict
}
