package lookahead

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/deepteams/lookahead/internal/dsp"
)

// Picture defaults.
const (
	DefaultCUSize = 16 // full-resolution samples per coding-unit side (8x8 lowres blocks)
	DefaultMargin = 32
)

// PictureConfig describes the layout of a Picture.
type PictureConfig struct {
	Width, Height    int
	MarginX, MarginY int
	CUSize           int // 0 selects DefaultCUSize
}

// DefaultPictureConfig returns a config for a width x height frame with the
// default margins and coding-unit size.
func DefaultPictureConfig(width, height int) PictureConfig {
	return PictureConfig{
		Width:   width,
		Height:  height,
		MarginX: DefaultMargin,
		MarginY: DefaultMargin,
		CUSize:  DefaultCUSize,
	}
}

// Picture is an 8-bit full-resolution luma plane with extendable borders.
// It implements Source.
type Picture struct {
	cfg    PictureConfig
	stride int
	off    int
	buf    []byte
}

// NewPicture allocates a zeroed picture.
func NewPicture(cfg PictureConfig) (*Picture, error) {
	if cfg.CUSize == 0 {
		cfg.CUSize = DefaultCUSize
	}
	if cfg.Width < 1 || cfg.Height < 1 || cfg.MarginX < 0 || cfg.MarginY < 0 || cfg.CUSize < 1 {
		return nil, fmt.Errorf("%w: picture %dx%d, margins %dx%d, CU size %d",
			ErrGeometry, cfg.Width, cfg.Height, cfg.MarginX, cfg.MarginY, cfg.CUSize)
	}
	stride := dsp.AlignUp(cfg.Width+2*cfg.MarginX, dsp.StrideAlign)
	return &Picture{
		cfg:    cfg,
		stride: stride,
		off:    cfg.MarginY*stride + cfg.MarginX,
		buf:    make([]byte, stride*(cfg.Height+2*cfg.MarginY)),
	}, nil
}

// PictureFromImage converts img to luma and returns it as a picture with
// extended borders. The size in cfg is replaced by the image bounds.
func PictureFromImage(img image.Image, cfg PictureConfig) (*Picture, error) {
	b := img.Bounds()
	cfg.Width, cfg.Height = b.Dx(), b.Dy()
	p, err := NewPicture(cfg)
	if err != nil {
		return nil, err
	}
	gray, ok := img.(*image.Gray)
	if !ok || gray.Rect.Min != (image.Point{}) {
		gray = image.NewGray(image.Rect(0, 0, cfg.Width, cfg.Height))
		draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	}
	for y := 0; y < cfg.Height; y++ {
		copy(p.buf[p.off+y*p.stride:p.off+y*p.stride+cfg.Width], gray.Pix[y*gray.Stride:])
	}
	p.ExtendBorder()
	return p, nil
}

func (p *Picture) Width() int   { return p.cfg.Width }
func (p *Picture) Height() int  { return p.cfg.Height }
func (p *Picture) MarginX() int { return p.cfg.MarginX }
func (p *Picture) MarginY() int { return p.cfg.MarginY }

// CUSize returns the coding-unit side in samples.
func (p *Picture) CUSize() int { return p.cfg.CUSize }

// CURows returns the number of coding-unit rows, counting a partial one.
func (p *Picture) CURows() int {
	return (p.cfg.Height + p.cfg.CUSize - 1) / p.cfg.CUSize
}

// CUCols returns the number of coding-unit columns, counting a partial one.
func (p *Picture) CUCols() int {
	return (p.cfg.Width + p.cfg.CUSize - 1) / p.cfg.CUSize
}

// NumCUs returns the number of coding units in the frame.
func (p *Picture) NumCUs() int {
	return p.CUCols() * p.CURows()
}

// Stride returns the row stride of the luma plane.
func (p *Picture) Stride() int { return p.stride }

// Luma returns the plane buffer, the offset of sample (0, 0) and the stride.
func (p *Picture) Luma() (buf []byte, off, stride int) {
	return p.buf, p.off, p.stride
}

// At returns the sample at (x, y). Margin samples are addressable.
func (p *Picture) At(x, y int) byte {
	return p.buf[p.off+y*p.stride+x]
}

// Set stores v at (x, y).
func (p *Picture) Set(x, y int, v byte) {
	p.buf[p.off+y*p.stride+x] = v
}

// ExtendBorder replicates the edge samples into the margins. Call it after
// changing samples with Set and before handing the picture to Lowres.Init.
func (p *Picture) ExtendBorder() {
	dsp.ExtendBorder(p.buf, p.off, p.stride, p.cfg.Width, p.cfg.Height, p.cfg.MarginX, p.cfg.MarginY)
}
