package tools

// Generic passes a fixed argument vector through unchanged.
type Generic struct {
	Args []string
}

// BuildArgs returns a copy of the configured arguments.
func (g Generic) BuildArgs() []string {
	if len(g.Args) == 0 {
		return nil
	}
	out := make([]string, len(g.Args))
	copy(out, g.Args)
	return out
}
