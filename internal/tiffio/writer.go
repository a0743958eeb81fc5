package tiffio

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"

	"golang.org/x/image/tiff"

	"github.com/careamics-ml/careamics/internal/tensor"
)

// Write stores arr as a little-endian TIFF with 32-bit float samples and no
// compression, preserving values exactly. arr must have shape (Y, X) or
// (pages, Y, X); a rank-3 array becomes a multi-page stack.
func Write(path string, arr *tensor.Array) error {
	shape := arr.Shape()
	var pages, height, width int
	switch arr.Rank() {
	case 2:
		pages, height, width = 1, shape[0], shape[1]
	case 3:
		pages, height, width = shape[0], shape[1], shape[2]
	default:
		return fmt.Errorf("tiffio: cannot write array of shape %v (want (Y, X) or (pages, Y, X))", shape)
	}

	const (
		numEntries = 10
		ifdSize    = 2 + numEntries*12 + 4
	)
	pageBytes := height * width * 4
	ifdStart := 8 + pages*pageBytes

	buf := make([]byte, ifdStart+pages*ifdSize)
	bo := binary.LittleEndian

	// Header.
	buf[0], buf[1] = 'I', 'I'
	bo.PutUint16(buf[2:], 42)
	bo.PutUint32(buf[4:], uint32(ifdStart))

	data := arr.Data()
	for p := 0; p < pages; p++ {
		dataOff := 8 + p*pageBytes
		for i, v := range data[p*height*width : (p+1)*height*width] {
			bo.PutUint32(buf[dataOff+4*i:], math.Float32bits(v))
		}

		ifdOff := ifdStart + p*ifdSize
		bo.PutUint16(buf[ifdOff:], numEntries)
		pos := ifdOff + 2
		entry := func(tag, typ uint16, value uint32) {
			bo.PutUint16(buf[pos:], tag)
			bo.PutUint16(buf[pos+2:], typ)
			bo.PutUint32(buf[pos+4:], 1)
			if typ == 3 { // SHORT: left-justified in the value field
				bo.PutUint16(buf[pos+8:], uint16(value))
			} else {
				bo.PutUint32(buf[pos+8:], value)
			}
			pos += 12
		}

		// Entries in ascending tag order, as the format requires.
		entry(tagImageWidth, 4, uint32(width))
		entry(tagImageLength, 4, uint32(height))
		entry(tagBitsPerSample, 3, 32)
		entry(tagCompression, 3, compressionNone)
		entry(tagPhotometric, 3, 1) // BlackIsZero
		entry(tagStripOffsets, 4, uint32(dataOff))
		entry(tagSamplesPerPixel, 3, 1)
		entry(tagRowsPerStrip, 4, uint32(height))
		entry(tagStripByteCounts, 4, uint32(pageBytes))
		entry(tagSampleFormat, 3, sampleFormatFloat)

		if p+1 < pages {
			bo.PutUint32(buf[pos:], uint32(ifdStart+(p+1)*ifdSize))
		} else {
			bo.PutUint32(buf[pos:], 0)
		}
	}

	return os.WriteFile(path, buf, 0o644)
}

// WriteGray16 exports a 2D array as a 16-bit grayscale TIFF via
// x/image/tiff, clamping values to [0, 65535]. Useful for handing stitched
// predictions to viewers that do not read float TIFFs.
func WriteGray16(path string, arr *tensor.Array) error {
	if arr.Rank() != 2 {
		return fmt.Errorf("tiffio: cannot export array of shape %v (want (Y, X))", arr.Shape())
	}
	height, width := arr.Shape()[0], arr.Shape()[1]

	img := image.NewGray16(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := arr.At(y, x)
			switch {
			case v < 0:
				v = 0
			case v > 65535:
				v = 65535
			}
			u := uint16(v + 0.5)
			img.Pix[y*img.Stride+2*x] = uint8(u >> 8)
			img.Pix[y*img.Stride+2*x+1] = uint8(u)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return err
	}
	return f.Close()
}
