package app

import (
	"fmt"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/dshills/filestorm/internal/document"
	"github.com/dshills/filestorm/internal/progressview"
)

// Draw styles.
var (
	styleDefault  = tcell.StyleDefault
	styleTitle    = tcell.StyleDefault.Bold(true)
	styleHint     = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleLink     = tcell.StyleDefault.Foreground(tcell.ColorBlue).Underline(true)
	stylePending  = tcell.StyleDefault.Foreground(tcell.ColorGray).Italic(true)
	styleBar      = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleComplete = tcell.StyleDefault.Foreground(tcell.ColorGreen).Bold(true)
)

// screenBinder holds the transient decorations the presenter applies.
// Lifecycle goroutines write it; the draw pass reads it.
type screenBinder struct {
	mu    sync.RWMutex
	decos map[document.NodeID]progressview.Decoration
}

func newScreenBinder() *screenBinder {
	return &screenBinder{decos: make(map[document.NodeID]progressview.Decoration)}
}

// Apply implements the progressview.Binder interface.
func (b *screenBinder) Apply(node document.NodeID, d progressview.Decoration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decos[node] = d
}

// Clear implements the progressview.Binder interface.
func (b *screenBinder) Clear(node document.NodeID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.decos, node)
}

func (b *screenBinder) decoration(node document.NodeID) (progressview.Decoration, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.decos[node]
	return d, ok
}

func (b *screenBinder) active() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.decos)
}

// draw renders the document with its upload decorations.
func (app *Application) draw(screen tcell.Screen) {
	screen.Clear()
	_, height := screen.Size()

	drawText(screen, 0, 0, styleTitle, "filestorm · "+app.doc.ID())

	y := 2
	for _, block := range app.doc.Blocks() {
		if y >= height-1 {
			break
		}
		x := 0
		for _, run := range block.Runs {
			x = app.drawRun(screen, x, y, run)
		}
		y++
	}

	status := "u upload · z undo · q quit"
	if n := app.binder.active(); n > 0 {
		status = fmt.Sprintf("%d active · %s", n, status)
	}
	drawText(screen, 0, height-1, styleHint, status)

	screen.Show()
}

// drawRun renders one run and its decoration, returning the column
// after the rendered text.
func (app *Application) drawRun(screen tcell.Screen, x, y int, run document.Inline) int {
	style := styleDefault
	if _, ok := run.Attr(document.AttrLinkHref); ok {
		style = styleLink
	}

	deco, decorated := app.binder.decoration(run.ID)
	if decorated && deco.Appearing && !deco.CompleteGlyph {
		style = stylePending
	}

	x = drawText(screen, x, y, style, run.Text)
	if !decorated {
		return x
	}
	switch {
	case deco.CompleteGlyph:
		x = drawText(screen, x, y, styleComplete, " ✓")
	case deco.Bar:
		x = drawText(screen, x, y, styleBar, " "+progressBar(deco.Percent))
	}
	return x
}

// progressBar renders a ten-slot bar like [####------] 40%.
func progressBar(pct int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct / 10

	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < 10; i++ {
		if i < filled {
			sb.WriteByte('#')
		} else {
			sb.WriteByte('-')
		}
	}
	fmt.Fprintf(&sb, "] %d%%", pct)
	return sb.String()
}

// drawText writes s at (x, y), returning the column after the text.
func drawText(screen tcell.Screen, x, y int, style tcell.Style, s string) int {
	for _, r := range s {
		screen.SetContent(x, y, r, nil, style)
		x++
	}
	return x
}
