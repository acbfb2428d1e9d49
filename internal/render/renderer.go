// Package render runs page rasterization off the caller's goroutine, with one
// in-flight render per page key and a bounded number of workers.
package render

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"golang.org/x/image/draw"

	"github.com/hyperjump/folio/internal/models"
	"github.com/hyperjump/folio/internal/pdfdoc"
)

// Request describes one bitmap to produce.
type Request struct {
	Key      models.PageKey
	FilePath string
	Password string
	// TargetSize is the length in pixels of the bitmap's longer edge.
	TargetSize int
}

// Renderer rasterizes a page. Implementations must be safe for concurrent use and
// should return promptly once ctx is done.
type Renderer interface {
	Render(ctx context.Context, req Request) (image.Image, error)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(ctx context.Context, req Request) (image.Image, error)

// Render calls f(ctx, req).
func (f RendererFunc) Render(ctx context.Context, req Request) (image.Image, error) {
	return f(ctx, req)
}

// Blank renders white pages with each page's MediaBox proportions. It stands in for
// a rasterizer where only layout matters.
type Blank struct{}

// Render implements Renderer.
func (Blank) Render(ctx context.Context, req Request) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := pdfdoc.OpenFile(req.FilePath, req.Password)
	if err != nil {
		return nil, err
	}
	defer doc.Close()
	size, err := doc.PageSize(req.Key.Page)
	if err != nil {
		return nil, err
	}
	w, h := fit(size.Width, size.Height, req.TargetSize)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img, nil
}

// Downscale returns img scaled so its longer edge is at most maxEdge, keeping the
// aspect ratio. Images already small enough are returned as is.
func Downscale(img image.Image, maxEdge int) (image.Image, error) {
	if maxEdge < 1 {
		return nil, fmt.Errorf("invalid target size %d", maxEdge)
	}
	b := img.Bounds()
	if b.Dx() <= maxEdge && b.Dy() <= maxEdge {
		return img, nil
	}
	w, h := fit(float64(b.Dx()), float64(b.Dy()), maxEdge)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst, nil
}

// fit scales w x h so the longer edge is edge pixels. Neither side drops below 1.
func fit(w, h float64, edge int) (int, int) {
	if edge < 1 {
		edge = 1
	}
	if w <= 0 || h <= 0 {
		return edge, edge
	}
	scale := float64(edge) / max(w, h)
	return max(1, int(w*scale+0.5)), max(1, int(h*scale+0.5))
}
