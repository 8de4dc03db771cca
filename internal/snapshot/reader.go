package snapshot

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
)

const footerSize = 20 // count(4) + minDate(8) + maxDate(8)

var (
	ErrInvalidHeader = errors.New("invalid snapshot header")
	ErrTruncated     = errors.New("snapshot file truncated")
	ErrColumnLength  = errors.New("snapshot column length mismatch")
)

// Summary is the footer of a snapshot, readable without decompressing
// any column.
type Summary struct {
	Articles int
	MinDate  time.Time
	MaxDate  time.Time
}

// Reader deserializes .swc files.
type Reader struct {
	decoder *zstd.Decoder
}

// NewReader creates a snapshot reader.
func NewReader() (*Reader, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &Reader{decoder: dec}, nil
}

// Read loads every row of a snapshot.
func (r *Reader) Read(filename string) ([]ArticleMeta, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	count, _, _, err := validate(f)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", filename, err)
	}
	if count == 0 {
		return nil, nil
	}

	cols := make([][]byte, 7)
	for i := range cols {
		if cols[i], err = r.readAndDecompress(f); err != nil {
			return nil, fmt.Errorf("read snapshot %s: column %d: %w", filename, i, err)
		}
	}

	paths := bytesToStringSlice(cols[0])
	slugs := bytesToStringSlice(cols[1])
	dates := bytesToInt64Slice(cols[2])
	drafts := cols[3]
	digests := bytesToStringSlice(cols[4])
	words := bytesToInt64Slice(cols[5])
	blobs := bytesToStringSlice(cols[6])

	for _, n := range []int{len(paths), len(slugs), len(dates), len(drafts), len(digests), len(words), len(blobs)} {
		if n != count {
			return nil, fmt.Errorf("read snapshot %s: %w", filename, ErrColumnLength)
		}
	}

	metas := make([]ArticleMeta, count)
	for i := range metas {
		metas[i] = ArticleMeta{
			Path:      paths[i],
			Slug:      slugs[i],
			Draft:     drafts[i] != 0,
			Digest:    digests[i],
			WordCount: int(words[i]),
		}
		if dates[i] > 0 {
			metas[i].Date = time.Unix(dates[i], 0).UTC()
		}
		if blobs[i] != "" {
			metas[i].FrontMatter = []byte(blobs[i])
		}
	}
	return metas, nil
}

// Summarize reads only the header and footer of a snapshot.
func (r *Reader) Summarize(filename string) (Summary, error) {
	f, err := os.Open(filename)
	if err != nil {
		return Summary{}, err
	}
	defer f.Close()

	count, minDate, maxDate, err := validate(f)
	if err != nil {
		return Summary{}, fmt.Errorf("read snapshot %s: %w", filename, err)
	}

	s := Summary{Articles: count}
	if minDate > 0 {
		s.MinDate = time.Unix(minDate, 0).UTC()
	}
	if maxDate > 0 {
		s.MaxDate = time.Unix(maxDate, 0).UTC()
	}
	return s, nil
}

// validate checks the magic header and decodes the footer, leaving the
// file positioned at the first column.
func validate(f *os.File) (count int, minDate, maxDate int64, err error) {
	header := make([]byte, len(Magic))
	if _, err := io.ReadFull(f, header); err != nil {
		return 0, 0, 0, ErrInvalidHeader
	}
	if !bytes.Equal(header, Magic) {
		return 0, 0, 0, ErrInvalidHeader
	}

	info, err := f.Stat()
	if err != nil {
		return 0, 0, 0, err
	}
	if info.Size() < int64(len(Magic)+footerSize) {
		return 0, 0, 0, ErrTruncated
	}

	footer := make([]byte, footerSize)
	if _, err := f.ReadAt(footer, info.Size()-footerSize); err != nil {
		return 0, 0, 0, err
	}

	count = int(binary.LittleEndian.Uint32(footer[0:4]))
	minDate = int64(binary.LittleEndian.Uint64(footer[4:12]))
	maxDate = int64(binary.LittleEndian.Uint64(footer[12:20]))
	return count, minDate, maxDate, nil
}

// readAndDecompress reads one length-prefixed compressed block.
func (r *Reader) readAndDecompress(f io.Reader) ([]byte, error) {
	var size uint32
	if err := binary.Read(f, binary.LittleEndian, &size); err != nil {
		return nil, err
	}

	compressed := make([]byte, size)
	if _, err := io.ReadFull(f, compressed); err != nil {
		return nil, err
	}

	return r.decoder.DecodeAll(compressed, nil)
}

func bytesToInt64Slice(data []byte) []int64 {
	count := len(data) / 8
	result := make([]int64, count)
	for i := 0; i < count; i++ {
		result[i] = int64(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return result
}

// bytesToStringSlice decodes [len u32][bytes]... A short final record
// ends the column, the row count check catches the damage.
func bytesToStringSlice(data []byte) []string {
	var result []string
	buf := bytes.NewReader(data)

	for buf.Len() > 0 {
		var length uint32
		if err := binary.Read(buf, binary.LittleEndian, &length); err != nil {
			break
		}
		strBytes := make([]byte, length)
		if _, err := io.ReadFull(buf, strBytes); err != nil {
			break
		}
		result = append(result, string(strBytes))
	}
	return result
}
