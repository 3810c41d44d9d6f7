// Package qr renders QR codes as terminal text and builds Wi-Fi join payloads.
package qr

import (
	"fmt"
	"strings"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
)

// Options controls rendering.
type Options struct {
	// Border is the quiet zone in modules.
	Border int
	// Invert swaps dark and light, which reads better on light terminals.
	Invert bool
	// Compact packs two module rows into each line with half blocks.
	Compact bool
}

// DefaultOptions returns a one-module border, no inversion, full size.
func DefaultOptions() Options {
	return Options{Border: 1}
}

// Matrix is a square grid of modules; true is dark.
type Matrix [][]bool

// Encode builds the module matrix for text at error-correction level L,
// surrounded by border light modules.
func Encode(text string, border int) (Matrix, error) {
	code, err := qr.Encode(text, qr.L, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}
	return toMatrix(code, max(border, 0)), nil
}

func toMatrix(code barcode.Barcode, border int) Matrix {
	b := code.Bounds()
	size := b.Dx() + 2*border
	m := make(Matrix, size)
	for y := range m {
		m[y] = make([]bool, size)
	}
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := code.At(b.Min.X+x, b.Min.Y+y).RGBA()
			m[y+border][x+border] = r < 0x8000
		}
	}
	return m
}

// Render encodes text and draws it with block characters.
func Render(text string, opts Options) (string, error) {
	m, err := Encode(text, opts.Border)
	if err != nil {
		return "", err
	}
	if opts.Compact {
		return m.Compact(opts.Invert), nil
	}
	return m.Blocks(opts.Invert), nil
}

// Blocks draws each module as two characters so it looks roughly square.
func (m Matrix) Blocks(invert bool) string {
	dark, light := "██", "  "
	if invert {
		dark, light = light, dark
	}
	lines := make([]string, len(m))
	for y, row := range m {
		var b strings.Builder
		for _, cell := range row {
			if cell {
				b.WriteString(dark)
			} else {
				b.WriteString(light)
			}
		}
		lines[y] = b.String()
	}
	return strings.Join(lines, "\n")
}

// Compact draws two module rows per line using half blocks. A missing
// bottom row on odd-sized matrices is drawn as blank.
func (m Matrix) Compact(invert bool) string {
	cell := func(y, x int) bool {
		if y >= len(m) {
			return false
		}
		return m[y][x] != invert
	}

	var lines []string
	for y := 0; y < len(m); y += 2 {
		var b strings.Builder
		for x := range m[y] {
			top, bottom := cell(y, x), cell(y+1, x)
			switch {
			case top && bottom:
				b.WriteString("█")
			case top:
				b.WriteString("▀")
			case bottom:
				b.WriteString("▄")
			default:
				b.WriteString(" ")
			}
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}
