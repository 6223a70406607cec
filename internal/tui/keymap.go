package tui

// GlobalKeyBindings lists the keys handled by the root model before
// dispatching to the log viewport. "f" must stay global: the viewport would
// otherwise swallow it as page-forward.
var GlobalKeyBindings = []string{"q", "ctrl+c", "f", "r", "g", "G", "home", "end"}

// IsGlobalKey reports whether key is handled by the root model.
func IsGlobalKey(key string) bool {
	for _, k := range GlobalKeyBindings {
		if k == key {
			return true
		}
	}
	return false
}

// keyHints is the footer help line.
const keyHints = "q quit  f follow  r reset  g/G top/bottom  ↑/↓ scroll"
