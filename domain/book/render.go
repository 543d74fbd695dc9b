package book

import (
	"fmt"
	"strings"
)

// Render draws the book as two side-by-side columns, best prices at
// the top: resting bids on the left, resting asks on the right.
func (b *Book) Render() string {
	lines := []string{b.symbol.String() + ":"}

	var bidLines []string
	bidWidth := 0
	for n := b.bids.head; n != none; n = b.arena.nodes[n].next {
		o := b.arena.nodes[n].order
		// quad spaces rather than a tab so column widths are stable
		s := fmt.Sprintf("%d    $%s", o.Amount, o.Price)
		if len(s) > bidWidth {
			bidWidth = len(s)
		}
		bidLines = append(bidLines, s)
	}
	for i, s := range bidLines {
		bidLines[i] = s + strings.Repeat(" ", bidWidth-len(s))
	}

	var askLines []string
	askWidth := 0
	for n := b.asks.head; n != none; n = b.arena.nodes[n].next {
		o := b.arena.nodes[n].order
		s := fmt.Sprintf("$%s\t%d", o.Price, o.Amount)
		if len(s) > askWidth {
			askWidth = len(s)
		}
		askLines = append(askLines, s)
	}
	for i, s := range askLines {
		askLines[i] = s + strings.Repeat(" ", askWidth-len(s))
	}

	rows := len(bidLines)
	if len(askLines) < rows {
		rows = len(askLines)
	}
	for i := 0; i < rows; i++ {
		lines = append(lines, bidLines[i]+" | "+askLines[i])
	}
	for i := rows; i < len(bidLines); i++ {
		lines = append(lines, bidLines[i]+" | ")
	}
	emptyBid := strings.Repeat(" ", bidWidth)
	for i := rows; i < len(askLines); i++ {
		lines = append(lines, emptyBid+" | "+askLines[i])
	}

	return strings.Join(lines, "\n")
}
