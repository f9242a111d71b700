package watcher

// Action is what the server should do about a debounced manifest change.
type Action int

const (
	// ActionReload re-reads the manifest and swaps in the new graph.
	ActionReload Action = iota
	// ActionKeep leaves the current graph in place, e.g. while the manifest
	// is missing between an editor's delete and re-create.
	ActionKeep
)

func (a Action) String() string {
	if a == ActionKeep {
		return "keep"
	}
	return "reload"
}

// AnalyzeChanges decides how to react to a debounced change event
func AnalyzeChanges(event ChangeEvent) Action {
	if event.Type == ChangeTypeRemoved {
		return ActionKeep
	}
	return ActionReload
}
