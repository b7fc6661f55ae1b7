package inkstore

import "image"

// BitmapImage is an imported raster image. The core keeps the encoded bytes
// opaque; decoding happens inside render jobs so a malformed image fails a
// single render instead of poisoning the document (the cache entry is marked
// failed and a placeholder is drawn). Size is the intrinsic pixel size,
// read from the image header at import time.
type BitmapImage struct {
	// Data is the encoded image (PNG or JPEG).
	Data []byte
	// Size is the intrinsic size in pixels.
	Size Point
}

// NewBitmapImage wraps encoded image bytes with their intrinsic size.
// Callers typically obtain the size cheaply via image.DecodeConfig; the
// Session import path does this for them.
func NewBitmapImage(data []byte, size Point) *BitmapImage {
	return &BitmapImage{Data: data, Size: size}
}

// VectorImage is an imported vector image. The SVG bytes are opaque to the
// core — parsing them is the job of the external codec/renderer boundary.
// If the importer supplies a Preview raster, render jobs scale it; otherwise
// they draw a translucent placeholder over the image bounds.
type VectorImage struct {
	// SVG is the raw vector document.
	SVG []byte
	// Size is the intrinsic size in document units.
	Size Point
	// Preview is an optional pre-rasterized version of the image.
	Preview *image.RGBA
}

// NewVectorImage wraps vector image bytes with their intrinsic size.
func NewVectorImage(svg []byte, size Point) *VectorImage {
	return &VectorImage{SVG: svg, Size: size}
}

// WithPreview returns a copy carrying a pre-rasterized preview.
func (v *VectorImage) WithPreview(preview *image.RGBA) *VectorImage {
	c := *v
	c.Preview = preview
	return &c
}
