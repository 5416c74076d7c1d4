package core

import (
	"errors"
	"sort"
	"sync"

	"stepgen/protocol"
)

var (
	ErrDuplicateCommand = errors.New("command ID or name already registered")
	ErrNotACommand      = errors.New("message is a response")
)

// CommandHandler decodes its own arguments from data.
type CommandHandler func(data *[]byte) error

// Command is one registered entry. Responses have no handler.
type Command struct {
	ID      uint16
	Name    string
	Format  string
	Handler CommandHandler
}

// CommandRegistry maps wire IDs to handlers.
type CommandRegistry struct {
	mu       sync.RWMutex
	commands map[uint16]*Command
	nameToID map[string]uint16
}

var globalRegistry = NewCommandRegistry()

func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[uint16]*Command),
		nameToID: make(map[string]uint16),
	}
}

// Register binds id to a handler. IDs come from the protocol table.
func (r *CommandRegistry) Register(id uint16, name, format string, handler CommandHandler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[id]; ok {
		return ErrDuplicateCommand
	}
	if _, ok := r.nameToID[name]; ok {
		return ErrDuplicateCommand
	}
	r.commands[id] = &Command{ID: id, Name: name, Format: format, Handler: handler}
	r.nameToID[name] = id
	return nil
}

func (r *CommandRegistry) GetCommand(id uint16) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[id]
	return cmd, ok
}

func (r *CommandRegistry) GetCommandByName(name string) (*Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.nameToID[name]
	if !ok {
		return nil, false
	}
	return r.commands[id], true
}

func (r *CommandRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.commands)
}

// Dispatch runs the handler for cmdID.
func (r *CommandRegistry) Dispatch(cmdID uint16, data *[]byte) error {
	cmd, ok := r.GetCommand(cmdID)
	if !ok {
		return protocol.ErrUnknownCommand
	}
	if cmd.Handler == nil {
		return ErrNotACommand
	}
	return cmd.Handler(data)
}

// Dictionary lists registered entries in ID order, one "name format" line
// each, in the layout of protocol.Dictionary.
func (r *CommandRegistry) Dictionary() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, int(id))
	}
	sort.Ints(ids)

	dict := ""
	for _, id := range ids {
		cmd := r.commands[uint16(id)]
		if cmd.Format != "" {
			dict += cmd.Name + " " + cmd.Format + "\n"
		} else {
			dict += cmd.Name + "\n"
		}
	}
	return dict
}

// RegisterCommand adds to the global registry.
func RegisterCommand(id uint16, name, format string, handler CommandHandler) error {
	return globalRegistry.Register(id, name, format, handler)
}

// DispatchCommand dispatches through the global registry.
func DispatchCommand(cmdID uint16, data *[]byte) error {
	return globalRegistry.Dispatch(cmdID, data)
}

func GetGlobalRegistry() *CommandRegistry {
	return globalRegistry
}
