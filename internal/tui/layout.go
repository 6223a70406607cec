package tui

// Rect represents a rectangular region of the terminal.
type Rect struct {
	X, Y, Width, Height int
}

// Layout holds the computed panel geometry for a given terminal size.
type Layout struct {
	Header   Rect
	Stats    Rect // left half of the stat row
	Tools    Rect // right half of the stat row
	Log      Rect
	Footer   Rect
	TooSmall bool // true when terminal is below the minimum 80×20
}

// statRowHeight is the height of the stats/tools row including borders.
const statRowHeight = 8

// Calculate computes the panel layout for a terminal of the given
// dimensions. Returns a Layout with TooSmall=true if width < 80 or
// height < 20.
//
// Geometry:
//   - Header: full width, 1 row at top
//   - Footer: full width, 1 row at bottom
//   - Stats + Tools: side by side under the header, fixed height
//   - Log: remaining rows
func Calculate(width, height int) Layout {
	if width < 80 || height < 20 {
		return Layout{TooSmall: true}
	}

	bodyH := height - 2 // subtract header + footer rows
	logH := bodyH - statRowHeight

	statsW := width / 2
	if statsW < 40 {
		statsW = 40
	}
	if statsW > 60 {
		statsW = 60
	}
	toolsW := width - statsW

	return Layout{
		Header:   Rect{X: 0, Y: 0, Width: width, Height: 1},
		Stats:    Rect{X: 0, Y: 1, Width: statsW, Height: statRowHeight},
		Tools:    Rect{X: statsW, Y: 1, Width: toolsW, Height: statRowHeight},
		Log:      Rect{X: 0, Y: 1 + statRowHeight, Width: width, Height: logH},
		Footer:   Rect{X: 0, Y: height - 1, Width: width, Height: 1},
		TooSmall: false,
	}
}

// innerDims returns the content dimensions of a bordered rect.
func innerDims(r Rect) (w, h int) {
	w = r.Width - 2
	h = r.Height - 2
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}
