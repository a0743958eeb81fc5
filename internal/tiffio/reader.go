// Package tiffio reads and writes the TIFF stacks the pipeline consumes.
//
// Microscopy stacks are frequently multi-page (one page per Z plane or time
// point) and often carry 32-bit float samples; golang.org/x/image/tiff
// decodes only the first directory of a file and no float sample format, so
// this package walks the IFD chain itself for grayscale pages (8/16-bit
// unsigned and 32-bit float, uncompressed or Deflate) and falls back to
// x/image/tiff for anything else it finds in a single-page file.
//
// Arrays are returned in their natural on-disk shape — (Y, X) for a single
// page, (pages, Y, X) for a stack — as float32; semantic axes are declared
// by the caller, not inferred from the file.
package tiffio

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// Common errors.
var (
	ErrNotTIFF     = errors.New("not a TIFF file")
	ErrUnsupported = errors.New("unsupported TIFF feature")
)

// TIFF tag IDs used by the reader and writer.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPredictor       = 317
	tagSampleFormat    = 339
)

// Compression and sample-format values.
const (
	compressionNone    = 1
	compressionDeflate = 8
	// Old-style Deflate tag written by some tools.
	compressionDeflateOld = 32946

	sampleFormatUint  = 1
	sampleFormatFloat = 3
)

// cursor is a bounds-checked reader over a fully loaded file.
type cursor struct {
	buf []byte
	bo  binary.ByteOrder
}

func (c *cursor) u16(off int) (uint16, error) {
	if off < 0 || off+2 > len(c.buf) {
		return 0, fmt.Errorf("%w: truncated file", ErrNotTIFF)
	}
	return c.bo.Uint16(c.buf[off:]), nil
}

func (c *cursor) u32(off int) (uint32, error) {
	if off < 0 || off+4 > len(c.buf) {
		return 0, fmt.Errorf("%w: truncated file", ErrNotTIFF)
	}
	return c.bo.Uint32(c.buf[off:]), nil
}

// field is one IFD entry.
type field struct {
	typ    uint16
	count  uint32
	valOff int // offset of the value bytes (inline or pointed to)
}

// ifd is a parsed image file directory.
type ifd struct {
	fields map[uint16]field
	next   int
}

// typeSize maps TIFF field types to their byte size.
func typeSize(typ uint16) int {
	switch typ {
	case 1, 2, 6, 7: // BYTE, ASCII, SBYTE, UNDEFINED
		return 1
	case 3, 8: // SHORT, SSHORT
		return 2
	case 4, 9, 11: // LONG, SLONG, FLOAT
		return 4
	case 5, 10, 12: // RATIONAL, SRATIONAL, DOUBLE
		return 8
	default:
		return 0
	}
}

func parseIFD(c *cursor, off int) (*ifd, error) {
	count, err := c.u16(off)
	if err != nil {
		return nil, err
	}
	out := &ifd{fields: make(map[uint16]field, count)}

	pos := off + 2
	for i := 0; i < int(count); i++ {
		tag, err := c.u16(pos)
		if err != nil {
			return nil, err
		}
		typ, _ := c.u16(pos + 2)
		n, err := c.u32(pos + 4)
		if err != nil {
			return nil, err
		}

		valOff := pos + 8
		if sz := typeSize(typ); sz == 0 || int(n)*sz > 4 {
			ptr, err := c.u32(pos + 8)
			if err != nil {
				return nil, err
			}
			valOff = int(ptr)
		}
		out.fields[tag] = field{typ: typ, count: n, valOff: valOff}
		pos += 12
	}

	next, err := c.u32(pos)
	if err != nil {
		return nil, err
	}
	out.next = int(next)
	return out, nil
}

// scalar returns the first value of a tag, or def when the tag is absent.
func (d *ifd) scalar(c *cursor, tag uint16, def int) (int, error) {
	f, ok := d.fields[tag]
	if !ok {
		return def, nil
	}
	switch f.typ {
	case 3:
		v, err := c.u16(f.valOff)
		return int(v), err
	case 4:
		v, err := c.u32(f.valOff)
		return int(v), err
	default:
		return 0, fmt.Errorf("%w: tag %d has field type %d", ErrUnsupported, tag, f.typ)
	}
}

// vector returns all values of a tag.
func (d *ifd) vector(c *cursor, tag uint16) ([]int, error) {
	f, ok := d.fields[tag]
	if !ok {
		return nil, fmt.Errorf("%w: missing required tag %d", ErrNotTIFF, tag)
	}
	out := make([]int, f.count)
	for i := range out {
		switch f.typ {
		case 3:
			v, err := c.u16(f.valOff + 2*i)
			if err != nil {
				return nil, err
			}
			out[i] = int(v)
		case 4:
			v, err := c.u32(f.valOff + 4*i)
			if err != nil {
				return nil, err
			}
			out[i] = int(v)
		default:
			return nil, fmt.Errorf("%w: tag %d has field type %d", ErrUnsupported, tag, f.typ)
		}
	}
	return out, nil
}

// Read loads a TIFF file as a float32 array of shape (Y, X) for a single
// page or (pages, Y, X) for a multi-page stack. Pixel values are converted
// to float32 without rescaling.
func Read(path string) (*tensor.Array, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decode(buf)
}

func decode(buf []byte) (*tensor.Array, error) {
	c, first, err := header(buf)
	if err != nil {
		return nil, err
	}

	var dirs []*ifd
	for off := first; off != 0; {
		d, err := parseIFD(c, off)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
		off = d.next
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w: no image directories", ErrNotTIFF)
	}

	pages := make([]*tensor.Array, len(dirs))
	for i, d := range dirs {
		page, err := decodePage(c, d)
		if err != nil {
			if len(dirs) == 1 {
				// Single-page files with features the native path does
				// not handle (LZW, PackBits, tiles, palette) go through
				// x/image/tiff.
				return decodeFallback(buf, err)
			}
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages[i] = page
	}

	if len(pages) == 1 {
		return pages[0], nil
	}

	// Stack pages along a new leading axis.
	pageShape := pages[0].Shape()
	for i, p := range pages[1:] {
		if !p.Shape().Equal(pageShape) {
			return nil, fmt.Errorf("%w: page %d has shape %v, page 0 has %v",
				ErrUnsupported, i+1, p.Shape(), pageShape)
		}
	}
	stack := tensor.New(append(tensor.Shape{len(pages)}, pageShape...))
	stride := pageShape.NumElements()
	for i, p := range pages {
		copy(stack.Data()[i*stride:(i+1)*stride], p.Data())
	}
	return stack, nil
}

func header(buf []byte) (*cursor, int, error) {
	if len(buf) < 8 {
		return nil, 0, fmt.Errorf("%w: too short", ErrNotTIFF)
	}
	c := &cursor{buf: buf}
	switch {
	case buf[0] == 'I' && buf[1] == 'I':
		c.bo = binary.LittleEndian
	case buf[0] == 'M' && buf[1] == 'M':
		c.bo = binary.BigEndian
	default:
		return nil, 0, fmt.Errorf("%w: bad byte-order mark", ErrNotTIFF)
	}

	magic, _ := c.u16(2)
	if magic == 43 {
		return nil, 0, fmt.Errorf("%w: BigTIFF", ErrUnsupported)
	}
	if magic != 42 {
		return nil, 0, fmt.Errorf("%w: bad magic %d", ErrNotTIFF, magic)
	}
	first, err := c.u32(4)
	if err != nil {
		return nil, 0, err
	}
	return c, int(first), nil
}

// decodePage decodes one grayscale directory into a (Y, X) array.
func decodePage(c *cursor, d *ifd) (*tensor.Array, error) {
	width, err := d.scalar(c, tagImageWidth, 0)
	if err != nil {
		return nil, err
	}
	height, err := d.scalar(c, tagImageLength, 0)
	if err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: bad dimensions %dx%d", ErrNotTIFF, width, height)
	}

	samples, err := d.scalar(c, tagSamplesPerPixel, 1)
	if err != nil {
		return nil, err
	}
	if samples != 1 {
		return nil, fmt.Errorf("%w: %d samples per pixel (grayscale required; channels come from the axes declaration)",
			ErrUnsupported, samples)
	}

	bits, err := d.scalar(c, tagBitsPerSample, 1)
	if err != nil {
		return nil, err
	}
	format, err := d.scalar(c, tagSampleFormat, sampleFormatUint)
	if err != nil {
		return nil, err
	}
	compression, err := d.scalar(c, tagCompression, compressionNone)
	if err != nil {
		return nil, err
	}
	predictor, err := d.scalar(c, tagPredictor, 1)
	if err != nil {
		return nil, err
	}
	if predictor != 1 {
		return nil, fmt.Errorf("%w: predictor %d", ErrUnsupported, predictor)
	}

	offsets, err := d.vector(c, tagStripOffsets)
	if err != nil {
		return nil, err
	}
	counts, err := d.vector(c, tagStripByteCounts)
	if err != nil {
		return nil, err
	}
	if len(offsets) != len(counts) {
		return nil, fmt.Errorf("%w: %d strip offsets but %d byte counts", ErrNotTIFF, len(offsets), len(counts))
	}

	raw := make([]byte, 0, width*height*bits/8)
	for i := range offsets {
		if offsets[i]+counts[i] > len(c.buf) {
			return nil, fmt.Errorf("%w: strip %d out of bounds", ErrNotTIFF, i)
		}
		strip := c.buf[offsets[i] : offsets[i]+counts[i]]
		switch compression {
		case compressionNone:
			raw = append(raw, strip...)
		case compressionDeflate, compressionDeflateOld:
			zr, err := zlib.NewReader(bytes.NewReader(strip))
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
			expanded, err := io.ReadAll(zr)
			zr.Close()
			if err != nil {
				return nil, fmt.Errorf("strip %d: %w", i, err)
			}
			raw = append(raw, expanded...)
		default:
			return nil, fmt.Errorf("%w: compression %d", ErrUnsupported, compression)
		}
	}

	n := width * height
	if len(raw) < n*bits/8 {
		return nil, fmt.Errorf("%w: %d bytes of pixel data for %d %d-bit samples", ErrNotTIFF, len(raw), n, bits)
	}

	out := tensor.New(tensor.Shape{height, width})
	data := out.Data()
	switch {
	case bits == 8 && format == sampleFormatUint:
		for i := 0; i < n; i++ {
			data[i] = float32(raw[i])
		}
	case bits == 16 && format == sampleFormatUint:
		for i := 0; i < n; i++ {
			data[i] = float32(c.bo.Uint16(raw[2*i:]))
		}
	case bits == 32 && format == sampleFormatFloat:
		for i := 0; i < n; i++ {
			data[i] = math.Float32frombits(c.bo.Uint32(raw[4*i:]))
		}
	case bits == 32 && format == sampleFormatUint:
		for i := 0; i < n; i++ {
			data[i] = float32(c.bo.Uint32(raw[4*i:]))
		}
	default:
		return nil, fmt.Errorf("%w: %d-bit samples with format %d", ErrUnsupported, bits, format)
	}
	return out, nil
}

// decodeFallback decodes a single-page file via x/image/tiff. nativeErr is
// attached when the fallback cannot handle the file either.
func decodeFallback(buf []byte, nativeErr error) (*tensor.Array, error) {
	img, err := tiff.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("%v (x/image/tiff: %w)", nativeErr, err)
	}
	return fromImage(img, nativeErr)
}

// fromImage converts a decoded grayscale image to a (Y, X) array.
func fromImage(img image.Image, nativeErr error) (*tensor.Array, error) {
	bounds := img.Bounds()
	out := tensor.New(tensor.Shape{bounds.Dy(), bounds.Dx()})
	data := out.Data()

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < bounds.Dy(); y++ {
			row := im.Pix[y*im.Stride:]
			for x := 0; x < bounds.Dx(); x++ {
				data[y*bounds.Dx()+x] = float32(row[x])
			}
		}
	case *image.Gray16:
		for y := 0; y < bounds.Dy(); y++ {
			row := im.Pix[y*im.Stride:]
			for x := 0; x < bounds.Dx(); x++ {
				data[y*bounds.Dx()+x] = float32(uint16(row[2*x])<<8 | uint16(row[2*x+1]))
			}
		}
	default:
		return nil, fmt.Errorf("%w: color image (%T); channels come from the axes declaration (%v)",
			ErrUnsupported, img, nativeErr)
	}
	return out, nil
}
