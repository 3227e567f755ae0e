// Package geotiff writes uncompressed RGBA GeoTIFF files with the minimal
// tag set GIS tools need to georeference a raster in a projected CRS.
package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"
	"math"
	"sort"
)

const (
	dataTypeByte     = 1
	dataTypeASCII    = 2
	dataTypeShort    = 3
	dataTypeLong     = 4
	dataTypeRational = 5
	dataTypeDouble   = 12

	tagImageWidth                = 256
	tagImageLength               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometricInterpretation = 262
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagRowsPerStrip              = 278
	tagStripByteCounts           = 279
	tagXResolution               = 282
	tagYResolution               = 283
	tagResolutionUnit            = 296
	tagExtraSamples              = 338

	// GeoTIFF extension tags.
	TagModelPixelScale = 33550
	TagModelTiepoint   = 33922
	TagGeoKeyDirectory = 34735
	TagGeoAsciiParams  = 34737
)

var enc = binary.LittleEndian

// GeoReference ties the raster to EPSG:3857 model space: the model
// coordinate of pixel (0,0) and the size of one pixel in meters.
type GeoReference struct {
	OriginX    float64
	OriginY    float64
	PixelSizeX float64
	PixelSizeY float64
}

// Tags returns the GeoTIFF tag map for a Web Mercator raster.
func (g GeoReference) Tags() map[uint16]interface{} {
	scaleY := math.Abs(g.PixelSizeY)
	return map[uint16]interface{}{
		// GTModelType=Projected, GTRasterType=PixelIsArea, ProjectedCSType=3857.
		TagGeoKeyDirectory: []uint16{
			1, 1, 0, 3,
			1024, 0, 1, 1,
			1025, 0, 1, 1,
			3072, 0, 1, 3857,
		},
		TagModelPixelScale: []float64{g.PixelSizeX, scaleY, 0},
		TagModelTiepoint:   []float64{0, 0, 0, g.OriginX, g.OriginY, 0},
	}
}

type ifdEntry struct {
	tag      uint16
	datatype uint16
	count    uint32
	value    []byte
}

// Encode writes m to w as a single-strip uncompressed RGBA TIFF carrying
// the given extension tags. Supported tag value types are []uint16,
// []float64, and string.
func Encode(w io.Writer, m image.Image, extraTags map[uint16]interface{}) error {
	bounds := m.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	var pixels bytes.Buffer
	pixels.Grow(width * height * 4)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := m.At(x, y).RGBA()
			pixels.WriteByte(uint8(r >> 8))
			pixels.WriteByte(uint8(g >> 8))
			pixels.WriteByte(uint8(b >> 8))
			pixels.WriteByte(uint8(a >> 8))
		}
	}

	var entries []ifdEntry
	add := func(tag, datatype uint16, count uint32, value []byte) {
		entries = append(entries, ifdEntry{tag, datatype, count, value})
	}

	add(tagImageWidth, dataTypeLong, 1, encLong(uint32(width)))
	add(tagImageLength, dataTypeLong, 1, encLong(uint32(height)))
	add(tagBitsPerSample, dataTypeShort, 4, encShorts([]uint16{8, 8, 8, 8}))
	add(tagCompression, dataTypeShort, 1, encShort(1))
	add(tagPhotometricInterpretation, dataTypeShort, 1, encShort(2))
	add(tagSamplesPerPixel, dataTypeShort, 1, encShort(4))
	add(tagRowsPerStrip, dataTypeLong, 1, encLong(uint32(height)))
	add(tagXResolution, dataTypeRational, 1, encRational(72, 1))
	add(tagYResolution, dataTypeRational, 1, encRational(72, 1))
	add(tagResolutionUnit, dataTypeShort, 1, encShort(2))
	// Fourth sample is associated (premultiplied) alpha.
	add(tagExtraSamples, dataTypeShort, 1, encShort(1))
	// Filled in once the pixel offset is known.
	add(tagStripOffsets, dataTypeLong, 1, make([]byte, 4))
	add(tagStripByteCounts, dataTypeLong, 1, encLong(uint32(pixels.Len())))

	for tag, val := range extraTags {
		switch v := val.(type) {
		case []uint16:
			add(tag, dataTypeShort, uint32(len(v)), encShorts(v))
		case []float64:
			add(tag, dataTypeDouble, uint32(len(v)), encDoubles(v))
		case string:
			b := append([]byte(v), 0)
			add(tag, dataTypeASCII, uint32(len(b)), b)
		default:
			return fmt.Errorf("unsupported value type %T for tag %d", val, tag)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].tag < entries[j].tag })

	// Layout: 8-byte header, IFD, out-of-line values, pixel strip.
	ifdSize := 2 + 12*len(entries) + 4
	valueOffset := 8 + ifdSize

	var overflow bytes.Buffer
	for i := range entries {
		e := &entries[i]
		if len(e.value) > 4 {
			offset := uint32(valueOffset + overflow.Len())
			overflow.Write(e.value)
			e.value = encLong(offset)
		}
	}

	pixelOffset := uint32(valueOffset + overflow.Len())
	for i := range entries {
		if entries[i].tag == tagStripOffsets {
			entries[i].value = encLong(pixelOffset)
		}
	}

	// Little-endian header, magic 42, first IFD at byte 8.
	if _, err := w.Write([]byte{'I', 'I', 0x2A, 0x00, 0x08, 0x00, 0x00, 0x00}); err != nil {
		return err
	}
	if err := binary.Write(w, enc, uint16(len(entries))); err != nil {
		return err
	}
	for _, e := range entries {
		if err := binary.Write(w, enc, e.tag); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.datatype); err != nil {
			return err
		}
		if err := binary.Write(w, enc, e.count); err != nil {
			return err
		}
		var field [4]byte
		copy(field[:], e.value)
		if _, err := w.Write(field[:]); err != nil {
			return err
		}
	}
	if err := binary.Write(w, enc, uint32(0)); err != nil {
		return err
	}
	if _, err := overflow.WriteTo(w); err != nil {
		return err
	}
	_, err := pixels.WriteTo(w)
	return err
}

func encShort(v uint16) []byte {
	b := make([]byte, 2)
	enc.PutUint16(b, v)
	return b
}

func encLong(v uint32) []byte {
	b := make([]byte, 4)
	enc.PutUint32(b, v)
	return b
}

func encShorts(vs []uint16) []byte {
	b := make([]byte, 2*len(vs))
	for i, v := range vs {
		enc.PutUint16(b[i*2:], v)
	}
	return b
}

func encDoubles(vs []float64) []byte {
	b := make([]byte, 8*len(vs))
	for i, v := range vs {
		enc.PutUint64(b[i*8:], math.Float64bits(v))
	}
	return b
}

func encRational(num, den uint32) []byte {
	b := make([]byte, 8)
	enc.PutUint32(b[:4], num)
	enc.PutUint32(b[4:], den)
	return b
}
