package chart

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	placeholderBg   = color.RGBA{R: 245, G: 245, B: 245, A: 255}
	placeholderText = color.RGBA{R: 90, G: 90, B: 90, A: 255}
)

// Placeholder renders a light gray PNG with a centered message, wrapped to
// the image width. It is shown in place of a chart that cannot be drawn.
func Placeholder(width, height int, message string) ([]byte, error) {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(placeholderBg), image.Point{}, draw.Src)

	face := basicfont.Face7x13
	dr := &font.Drawer{Dst: img, Src: image.NewUniform(placeholderText), Face: face}

	lines := wrap(dr, message, width-32)
	lineHeight := face.Metrics().Height.Ceil() + 4
	y := (height-len(lines)*lineHeight)/2 + face.Metrics().Ascent.Ceil()
	for _, line := range lines {
		tw := dr.MeasureString(line).Ceil()
		dr.Dot = fixed.Point26_6{X: fixed.I((width - tw) / 2), Y: fixed.I(y)}
		dr.DrawString(line)
		y += lineHeight
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode placeholder: %w", err)
	}
	return buf.Bytes(), nil
}

// wrap splits text on spaces so no line exceeds max pixels, except single
// words longer than max.
func wrap(dr *font.Drawer, text string, max int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var lines []string
	cur := words[0]
	for _, w := range words[1:] {
		next := cur + " " + w
		if dr.MeasureString(next).Ceil() > max {
			lines = append(lines, cur)
			cur = w
			continue
		}
		cur = next
	}
	return append(lines, cur)
}
