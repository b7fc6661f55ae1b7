// Package textshape measures text runs with HarfBuzz shaping via
// go-text/typesetting. The document core stores pre-measured extents on
// text strokes so bounds queries and hit testing never touch font data;
// this package is where those extents come from.
package textshape

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// Extent is the shaped size of a single-line text run, in the same units
// as the font size. Width is the summed glyph advance; Ascent and Descent
// come from the font's horizontal metrics scaled to the run's size.
type Extent struct {
	Width   float64
	Ascent  float64
	Descent float64
}

// Height returns the run's total vertical extent.
func (e Extent) Height() float64 { return e.Ascent + e.Descent }

// Measurer shapes text runs against parsed fonts. Parsed font.Font values
// are cached per font-data slice (they are read-only and safe to share);
// HarfbuzzShaper instances carry mutable buffers and are pooled instead.
// A Measurer is safe for concurrent use.
type Measurer struct {
	shapers sync.Pool

	mu    sync.RWMutex
	fonts map[*byte]*font.Font
}

// NewMeasurer creates an empty Measurer.
func NewMeasurer() *Measurer {
	return &Measurer{
		shapers: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
		fonts: make(map[*byte]*font.Font),
	}
}

// Measure shapes a single-line run of text at the given size using the
// TTF/OTF font in fontData. An empty run measures to a zero-width extent
// that still carries the font's line metrics.
func (m *Measurer) Measure(fontData []byte, text string, size float64) (Extent, error) {
	f, err := m.fontFor(fontData)
	if err != nil {
		return Extent{}, err
	}

	runes := []rune(text)
	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(f),
		Size:      floatToFixed(size),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}

	shaper := m.shapers.Get().(*shaping.HarfbuzzShaper)
	out := shaper.Shape(input)
	m.shapers.Put(shaper)

	ext := Extent{
		Ascent:  fixedToFloat(out.LineBounds.Ascent),
		Descent: -fixedToFloat(out.LineBounds.Descent),
	}
	for _, g := range out.Glyphs {
		ext.Width += fixedToFloat(g.XAdvance)
	}
	return ext, nil
}

// ClearCache drops all cached parsed fonts.
func (m *Measurer) ClearCache() {
	m.mu.Lock()
	m.fonts = make(map[*byte]*font.Font)
	m.mu.Unlock()
}

// fontFor returns the parsed font for the data slice, keyed by the slice's
// backing array so repeated measurements of the same embedded font reuse
// one parse. font.Face is not concurrent-safe, so only the Font is cached.
func (m *Measurer) fontFor(data []byte) (*font.Font, error) {
	var key *byte
	if len(data) > 0 {
		key = &data[0]
	}

	m.mu.RLock()
	if f, ok := m.fonts[key]; ok {
		m.mu.RUnlock()
		return f, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.fonts[key]; ok {
		return f, nil
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	m.fonts[key] = face.Font
	return face.Font, nil
}

// detectScript returns the script of the first non-space rune. Mixed-script
// runs should be split upstream before shaping.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		switch r {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func floatToFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(v * 64) }

func fixedToFloat(v fixed.Int26_6) float64 { return float64(v) / 64 }
