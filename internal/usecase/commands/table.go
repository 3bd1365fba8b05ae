package commands

import (
	"slices"
	"strings"
)

// Table is an immutable name and alias index. Rebuild it to change it.
type Table struct {
	index    map[string]Command
	commands []Command
}

// NewTable indexes cmds in order. A later command with an already known
// name replaces the earlier one, aliases included.
func NewTable(cmds ...Command) *Table {
	byName := make(map[string]Command, len(cmds))
	var order []string
	for _, cmd := range cmds {
		if cmd == nil {
			continue
		}
		name := strings.ToLower(cmd.Name())
		if name == "" {
			continue
		}
		if _, ok := byName[name]; !ok {
			order = append(order, name)
		}
		byName[name] = cmd
	}

	t := &Table{index: make(map[string]Command, len(byName))}
	for _, name := range order {
		cmd := byName[name]
		t.commands = append(t.commands, cmd)
		for _, alias := range cmd.Aliases() {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if _, taken := byName[alias]; taken {
				continue
			}
			t.index[alias] = cmd
		}
	}
	// names always win over aliases
	for name, cmd := range byName {
		t.index[name] = cmd
	}
	return t
}

func (t *Table) Lookup(name string) (Command, bool) {
	if t == nil {
		return nil, false
	}
	cmd, ok := t.index[strings.ToLower(name)]
	return cmd, ok
}

func (t *Table) Commands() []Command {
	if t == nil {
		return nil
	}
	return slices.Clone(t.commands)
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.commands)
}

// Has reports whether name is taken by a command name or alias.
func (t *Table) Has(name string) bool {
	_, ok := t.Lookup(name)
	return ok
}
