package commands

// Describe returns the help metadata of every command in the table.
// Commands without metadata get a bare descriptor.
func Describe(table *Table) []Descriptor {
	cmds := table.Commands()
	out := make([]Descriptor, 0, len(cmds))
	for _, cmd := range cmds {
		if d, ok := cmd.(Described); ok {
			out = append(out, d.Describe())
			continue
		}
		out = append(out, Descriptor{Name: cmd.Name(), Aliases: cmd.Aliases(), Access: AccessEveryone})
	}
	return out
}

// BuiltinCatalog describes the shipped commands without a live table.
func (b *Builtins) Catalog() []Descriptor {
	return Describe(NewTable(b.Commands()...))
}
