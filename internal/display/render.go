package display

import (
	"fmt"
	"image"

	"github.com/BurntSushi/xgb/xproto"
	"golang.org/x/image/draw"

	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// putImageHeader is the fixed size of a PutImage request.
const putImageHeader = 24

// repaint draws the editor frame, scaled to the window when sizes differ.
func (o *Overlay) repaint() {
	o.mu.Lock()
	if !o.visible || o.closed {
		o.mu.Unlock()
		return
	}
	size := o.bounds.Size()
	o.mu.Unlock()

	frame := o.editor.Frame()
	if frame == nil {
		frame = image.NewRGBA(image.Rectangle{Max: size})
	}
	o.mu.Lock()
	o.frameSize = frame.Bounds().Size()
	o.mu.Unlock()
	if frame.Bounds().Size() != size {
		scaled := image.NewRGBA(image.Rectangle{Max: size})
		draw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), frame, frame.Bounds(), draw.Src, nil)
		frame = scaled
	}
	if err := o.putImage(frame); err != nil {
		logger.WithComponent("overlay").Warn().Err(err).Msg("Failed to paint overlay")
	}
}

// pixmapFormat is the server's layout for the root depth.
type pixmapFormat struct {
	depth        byte
	bitsPerPixel byte
	scanlinePad  byte
}

func (o *Overlay) format() (pixmapFormat, error) {
	setup := xproto.Setup(o.conn)
	for _, f := range setup.PixmapFormats {
		if f.Depth == o.screen.RootDepth {
			return pixmapFormat{depth: f.Depth, bitsPerPixel: f.BitsPerPixel, scanlinePad: f.ScanlinePad}, nil
		}
	}
	return pixmapFormat{}, fmt.Errorf("no pixmap format for depth %d", o.screen.RootDepth)
}

// putImage uploads img in horizontal strips that fit the server's maximum
// request length.
func (o *Overlay) putImage(img *image.RGBA) error {
	f, err := o.format()
	if err != nil {
		return err
	}
	data, stride, err := encodeZPixmap(img, f)
	if err != nil {
		return err
	}

	maxBytes := int(xproto.Setup(o.conn).MaximumRequestLength)*4 - putImageHeader
	rows := stripRows(stride, maxBytes)
	if rows == 0 {
		return fmt.Errorf("scanline of %d bytes exceeds request limit %d", stride, maxBytes)
	}

	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	for y := 0; y < h; y += rows {
		n := min(rows, h-y)
		err := xproto.PutImageChecked(
			o.conn,
			xproto.ImageFormatZPixmap,
			xproto.Drawable(o.window),
			o.gc,
			uint16(w), uint16(n),
			0, int16(y),
			0,
			f.depth,
			data[y*stride:(y+n)*stride],
		).Check()
		if err != nil {
			return fmt.Errorf("failed to put image rows %d-%d: %w", y, y+n, err)
		}
	}
	return nil
}

// stripRows returns how many scanlines fit in one request.
func stripRows(stride, maxBytes int) int {
	if stride <= 0 {
		return 0
	}
	return maxBytes / stride
}

// encodeZPixmap converts RGBA to the server's BGRx layout with padded
// scanlines. It returns the buffer and its stride.
func encodeZPixmap(img *image.RGBA, f pixmapFormat) ([]byte, int, error) {
	bpp := int(f.bitsPerPixel) / 8
	if bpp != 3 && bpp != 4 {
		return nil, 0, fmt.Errorf("unsupported bytes per pixel: %d", bpp)
	}
	pad := int(f.scanlinePad) / 8
	if pad == 0 {
		pad = 1
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := (w*bpp + pad - 1) / pad * pad
	data := make([]byte, stride*h)

	for y := 0; y < h; y++ {
		src := img.Pix[img.PixOffset(b.Min.X, b.Min.Y+y):]
		dst := data[y*stride:]
		for x := 0; x < w; x++ {
			s, d := x*4, x*bpp
			dst[d] = src[s+2]
			dst[d+1] = src[s+1]
			dst[d+2] = src[s]
			if bpp == 4 && f.depth == 32 {
				dst[d+3] = src[s+3]
			}
		}
	}
	return data, stride, nil
}
