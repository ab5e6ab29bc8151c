package pointcloud

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"math/bits"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/zhuyie/golzf"
)

// PCDType is the format of a pcd file.
type PCDType int

const (
	// PCDAscii ascii format for pcd.
	PCDAscii PCDType = 0
	// PCDBinary binary format for pcd.
	PCDBinary PCDType = 1
	// PCDCompressed lzf compressed binary format for pcd; values are stored field by field.
	PCDCompressed PCDType = 2
)

const pcdCommentChar = "#"

const (
	// maxPCDPoints bounds the POINTS field. The compressed format cannot describe more data
	// than fits in 32 bit sizes anyway.
	maxPCDPoints = math.MaxInt32
	// maxPCDCount bounds the number of elements of a single field.
	maxPCDCount = 1 << 16
	// maxPCDPrealloc bounds how many points are allocated up front, before the stream has
	// shown that it really holds them.
	maxPCDPrealloc = 1 << 16
	// maxLZFRatio bounds the expansion of lzf data. A back reference of at most 264 bytes
	// takes 3 bytes to encode.
	maxLZFRatio = 88
)

var pcdHeaderFields = []string{"VERSION", "FIELDS", "SIZE", "TYPE", "COUNT", "WIDTH", "HEIGHT", "VIEWPOINT", "POINTS", "DATA"}

type pcdValType string

const (
	pcdValFloat pcdValType = "F"
	pcdValInt   pcdValType = "I"
	pcdValUInt  pcdValType = "U"
)

type pcdHeader struct {
	fields []string
	size   []int
	type_  []pcdValType
	count  []int
	width  uint64
	height uint64
	points uint64
	data   PCDType

	// column of each known field, -1 if absent
	x, y, z, intensity int
}

func (h *pcdHeader) column(name string) int {
	for i, f := range h.fields {
		if f == name {
			return i
		}
	}
	return -1
}

func parsePCDHeaderLine(line string, index int, header *pcdHeader) error {
	var err error
	name := pcdHeaderFields[index]
	field, value, _ := strings.Cut(line, " ")
	tokens := strings.Fields(value)
	if field != name {
		return errors.Errorf("line is supposed to start with %s but is %s", name, line)
	}

	switch name {
	case "VERSION":
		if value != ".7" && value != "0.7" {
			return errors.Errorf("unsupported pcd version %s", value)
		}
	case "FIELDS":
		header.fields = tokens
		header.x, header.y, header.z = header.column("x"), header.column("y"), header.column("z")
		header.intensity = header.column("intensity")
		if header.x < 0 || header.y < 0 || header.z < 0 {
			return errors.Errorf("unsupported pcd fields %s", value)
		}
	case "SIZE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in SIZE line")
		}
		header.size = make([]int, len(tokens))
		for i, token := range tokens {
			header.size[i], err = strconv.Atoi(token)
			if err != nil {
				return errors.Errorf("invalid SIZE field %s", token)
			}
		}
	case "TYPE":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in TYPE line")
		}
		header.type_ = make([]pcdValType, len(tokens))
		for i, token := range tokens {
			header.type_[i] = pcdValType(token)
			if err := checkPCDType(header.type_[i], header.size[i]); err != nil {
				return err
			}
		}
	case "COUNT":
		if len(tokens) != len(header.fields) {
			return errors.New("unexpected number of fields in COUNT line")
		}
		header.count = make([]int, len(tokens))
		for i, token := range tokens {
			header.count[i], err = strconv.Atoi(token)
			if err != nil || header.count[i] < 1 || header.count[i] > maxPCDCount {
				return errors.Errorf("invalid COUNT field %s", token)
			}
		}
	case "WIDTH":
		header.width, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid WIDTH field %s", value)
		}
	case "HEIGHT":
		header.height, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid HEIGHT field %s", value)
		}
	case "VIEWPOINT":
		// the viewpoint is ignored, points are taken as they are
		if len(tokens) != 7 {
			return errors.Errorf("unexpected number of fields in VIEWPOINT line. Expected 7, got %d", len(tokens))
		}
	case "POINTS":
		var points uint64
		points, err = strconv.ParseUint(value, 10, 64)
		if err != nil {
			return errors.Wrapf(err, "invalid POINTS field %s", value)
		}
		hi, total := bits.Mul64(header.width, header.height)
		if hi != 0 {
			return errors.Errorf("WIDTH*HEIGHT of %d*%d overflows", header.width, header.height)
		}
		if points != total {
			return errors.Errorf("POINTS field %d does not match WIDTH*HEIGHT %d", points, total)
		}
		if points > maxPCDPoints {
			return errors.Errorf("POINTS field %d exceeds the supported maximum of %d", points, maxPCDPoints)
		}
		header.points = points
	case "DATA":
		switch value {
		case "ascii":
			header.data = PCDAscii
		case "binary":
			header.data = PCDBinary
		case "binary_compressed":
			header.data = PCDCompressed
		default:
			return errors.Errorf("unsupported pcd data type %s", value)
		}
	}

	return nil
}

func checkPCDType(t pcdValType, size int) error {
	switch t {
	case pcdValFloat:
		if size == 4 || size == 8 {
			return nil
		}
	case pcdValInt, pcdValUInt:
		if size == 1 || size == 2 || size == 4 || size == 8 {
			return nil
		}
	}
	return errors.Errorf("unsupported pcd type %s of size %d", t, size)
}

// ReadPCD reads the points of an ascii, binary or binary_compressed PCD stream. Fields x, y and z are required;
// an intensity field becomes the point value and every other field is skipped.
func ReadPCD(inRaw io.Reader) ([]Point, error) {
	header := pcdHeader{}
	in := bufio.NewReader(inRaw)
	headerLineCount := 0
	for headerLineCount < len(pcdHeaderFields) {
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return nil, errors.Wrapf(err, "error reading header line %d", headerLineCount)
		}
		line, _, _ = strings.Cut(line, pcdCommentChar)
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if err := parsePCDHeaderLine(line, headerLineCount, &header); err != nil {
			return nil, err
		}
		headerLineCount++
	}
	switch header.data {
	case PCDAscii:
		return readPCDAscii(in, header)
	case PCDBinary:
		return readPCDBinary(in, header)
	case PCDCompressed:
		return readPCDCompressed(in, header)
	default:
		return nil, errors.Errorf("unsupported pcd data type %v", header.data)
	}
}

func (h *pcdHeader) toPoint(values []float64) Point {
	p := NewPoint(values[h.x], values[h.y], values[h.z])
	if h.intensity >= 0 {
		p.Value = values[h.intensity]
		p.HasValue = true
	}
	return p
}

// preallocated returns an empty slice with room for the header's points, up to a bound.
func (h *pcdHeader) preallocated() []Point {
	return make([]Point, 0, min(h.points, maxPCDPrealloc))
}

func readPCDAscii(in *bufio.Reader, header pcdHeader) ([]Point, error) {
	points := header.preallocated()
	values := make([]float64, len(header.fields))
	for i := 0; i < int(header.points); i++ {
		line, err := in.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return nil, errors.Wrapf(err, "cannot read point %d", i)
		}
		tokens := strings.Fields(line)

		// every field may have several elements, only the first one is kept
		column := 0
		for j, count := range header.count {
			if column+count > len(tokens) {
				return nil, errors.Errorf("unexpected number of fields in point %d", i)
			}
			values[j], err = strconv.ParseFloat(tokens[column], 64)
			if err != nil {
				return nil, errors.Errorf("invalid point %d field %s: %s", i, tokens[column], err)
			}
			column += count
		}
		if column != len(tokens) {
			return nil, errors.Errorf("unexpected number of fields in point %d", i)
		}
		points = append(points, header.toPoint(values))
	}
	return points, nil
}

func readPCDBinary(in *bufio.Reader, header pcdHeader) ([]Point, error) {
	points := header.preallocated()
	values := make([]float64, len(header.fields))
	buf := make([]byte, 8)
	for i := 0; i < int(header.points); i++ {
		for j := range header.fields {
			size := header.size[j]
			for k := 0; k < header.count[j]; k++ {
				if _, err := io.ReadFull(in, buf[:size]); err != nil {
					return nil, errors.Wrapf(err, "cannot read point %d", i)
				}
				if k == 0 {
					values[j] = decodePCDValue(buf[:size], header.type_[j])
				}
			}
		}
		points = append(points, header.toPoint(values))
	}
	return points, nil
}

// readPCDCompressed decodes lzf compressed data. Unlike the binary format the uncompressed
// block stores all values of the first field, then all values of the second and so on.
func readPCDCompressed(in *bufio.Reader, header pcdHeader) ([]Point, error) {
	var sizes [2]uint32
	if err := binary.Read(in, binary.LittleEndian, &sizes); err != nil {
		return nil, errors.Wrap(err, "cannot read compressed data sizes")
	}
	nCompressed, nUncompressed := sizes[0], sizes[1]

	stride := 0
	for j := range header.fields {
		stride += header.size[j] * header.count[j]
	}
	if hi, total := bits.Mul64(uint64(stride), header.points); hi != 0 || uint64(nUncompressed) != total {
		return nil, errors.Errorf("uncompressed size %d does not match %d points of %d bytes",
			nUncompressed, header.points, stride)
	}
	if header.points == 0 {
		return []Point{}, nil
	}

	// the compressed block is read incrementally so that a size field alone cannot force a
	// large allocation
	compressed, err := io.ReadAll(io.LimitReader(in, int64(nCompressed)))
	if err != nil {
		return nil, errors.Wrap(err, "cannot read compressed data")
	}
	if len(compressed) != int(nCompressed) {
		return nil, errors.Errorf("truncated compressed data: got %d of %d bytes", len(compressed), nCompressed)
	}
	if uint64(nUncompressed) > maxLZFRatio*uint64(nCompressed) {
		return nil, errors.Errorf("uncompressed size %d cannot result from %d compressed bytes", nUncompressed, nCompressed)
	}
	data := make([]byte, nUncompressed)
	n, err := lzf.Decompress(compressed, data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decompress pcd data")
	}
	if n != int(nUncompressed) {
		return nil, errors.Errorf("decompressed %d bytes, expected %d", n, nUncompressed)
	}

	heads := make([]int, len(header.fields))
	head := 0
	for j := range header.fields {
		heads[j] = head
		head += header.size[j] * header.count[j] * int(header.points)
	}

	points := make([]Point, 0, header.points)
	values := make([]float64, len(header.fields))
	for i := 0; i < int(header.points); i++ {
		for j := range header.fields {
			width := header.size[j] * header.count[j]
			from := heads[j] + i*width
			values[j] = decodePCDValue(data[from:from+header.size[j]], header.type_[j])
		}
		points = append(points, header.toPoint(values))
	}
	return points, nil
}

func decodePCDValue(b []byte, t pcdValType) float64 {
	switch t {
	case pcdValFloat:
		if len(b) == 4 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case pcdValInt:
		switch len(b) {
		case 1:
			return float64(int8(b[0]))
		case 2:
			return float64(int16(binary.LittleEndian.Uint16(b)))
		case 4:
			return float64(int32(binary.LittleEndian.Uint32(b)))
		default:
			return float64(int64(binary.LittleEndian.Uint64(b)))
		}
	default:
		switch len(b) {
		case 1:
			return float64(b[0])
		case 2:
			return float64(binary.LittleEndian.Uint16(b))
		case 4:
			return float64(binary.LittleEndian.Uint32(b))
		default:
			return float64(binary.LittleEndian.Uint64(b))
		}
	}
}

// WritePCD writes the points as a PCD stream. Coordinates are stored as 32 bit floats and an
// intensity field is added when any point carries a value.
func WritePCD(points []Point, out io.Writer, outputType PCDType) error {
	hasValue := Bounds(points).HasValue

	w := bufio.NewWriter(out)
	var err error
	if hasValue {
		_, err = fmt.Fprintf(w, "VERSION .7\n"+
			"FIELDS x y z intensity\n"+
			"SIZE 4 4 4 4\n"+
			"TYPE F F F F\n"+
			"COUNT 1 1 1 1\n")
	} else {
		_, err = fmt.Fprintf(w, "VERSION .7\n"+
			"FIELDS x y z\n"+
			"SIZE 4 4 4\n"+
			"TYPE F F F\n"+
			"COUNT 1 1 1\n")
	}
	if err != nil {
		return err
	}
	var dataType string
	switch outputType {
	case PCDAscii:
		dataType = "ascii"
	case PCDBinary:
		dataType = "binary"
	case PCDCompressed:
		dataType = "binary_compressed"
	default:
		return errors.Errorf("unsupported pcd data type %v", outputType)
	}
	if _, err := fmt.Fprintf(w, "WIDTH %d\n"+
		"HEIGHT %d\n"+
		"VIEWPOINT 0 0 0 1 0 0 0\n"+
		"POINTS %d\n"+
		"DATA %s\n",
		len(points), 1, len(points), dataType); err != nil {
		return err
	}

	fields := 3
	if hasValue {
		fields = 4
	}
	pointValues := func(p Point) []float64 {
		values := []float64{p.Position.X, p.Position.Y, p.Position.Z, p.Value}
		return values[:fields]
	}

	switch outputType {
	case PCDCompressed:
		if err := writePCDCompressed(w, points, fields, pointValues); err != nil {
			return err
		}
	case PCDBinary:
		buf := make([]byte, 16)
		for _, p := range points {
			for i, v := range pointValues(p) {
				binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
			}
			if _, err := w.Write(buf[:4*fields]); err != nil {
				return err
			}
		}
	default:
		strs := make([]string, fields)
		for _, p := range points {
			for i, v := range pointValues(p) {
				strs[i] = strconv.FormatFloat(float64(float32(v)), 'f', -1, 32)
			}
			if _, err := fmt.Fprintln(w, strings.Join(strs, " ")); err != nil {
				return err
			}
		}
	}
	return w.Flush()
}

func writePCDCompressed(w io.Writer, points []Point, fields int, pointValues func(Point) []float64) error {
	data := make([]byte, 4*fields*len(points))
	for i, p := range points {
		for j, v := range pointValues(p) {
			binary.LittleEndian.PutUint32(data[4*(j*len(points)+i):], math.Float32bits(float32(v)))
		}
	}
	// lzf output may grow slightly beyond its input for incompressible data
	compressed := make([]byte, len(data)+len(data)/16+64)
	n, err := lzf.Compress(data, compressed)
	if err != nil {
		return errors.Wrap(err, "cannot compress pcd data")
	}
	if err := binary.Write(w, binary.LittleEndian, [2]uint32{uint32(n), uint32(len(data))}); err != nil {
		return err
	}
	_, err = w.Write(compressed[:n])
	return err
}
