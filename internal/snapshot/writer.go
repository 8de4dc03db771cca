// Package snapshot persists the parsed corpus as a compact columnar
// file (.swc). Snapshots serve as export artifacts and as the baseline
// for change detection between runs.
package snapshot

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"sort"
	"time"

	"github.com/google/renameio/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/softweb-fr/softweb-fr.github.io/internal/content"
)

// Magic identifies a .swc file.
var Magic = []byte("SWCORPUS")

// ArticleMeta is one article's footprint in a snapshot.
type ArticleMeta struct {
	Path        string
	Slug        string
	Date        time.Time
	Draft       bool
	Digest      string
	WordCount   int
	FrontMatter []byte // front matter as JSON
}

// FromArticles converts parsed articles to snapshot rows.
func FromArticles(articles []*content.Article) ([]ArticleMeta, error) {
	metas := make([]ArticleMeta, 0, len(articles))
	for _, a := range articles {
		blob, err := json.Marshal(a.FrontMatter)
		if err != nil {
			return nil, err
		}
		metas = append(metas, ArticleMeta{
			Path:        a.Path,
			Slug:        a.Slug,
			Date:        a.Date,
			Draft:       a.Draft,
			Digest:      a.Digest,
			WordCount:   a.WordCount,
			FrontMatter: blob,
		})
	}
	return metas, nil
}

// Writer serializes snapshots. One compressed block per column.
type Writer struct {
	encoder *zstd.Encoder
}

// NewWriter creates a snapshot writer.
func NewWriter() (*Writer, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	return &Writer{encoder: enc}, nil
}

// Write stores the rows at filename. The file appears atomically, a
// crashed run never leaves a partial snapshot behind.
func (w *Writer) Write(filename string, metas []ArticleMeta) error {
	pending, err := renameio.NewPendingFile(filename)
	if err != nil {
		return err
	}
	defer pending.Cleanup()

	if err := w.encode(pending, metas); err != nil {
		return err
	}
	return pending.CloseAtomicallyReplace()
}

func (w *Writer) encode(f io.Writer, metas []ArticleMeta) error {
	sorted := make([]ArticleMeta, len(metas))
	copy(sorted, metas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	// 1. Header
	if _, err := f.Write(Magic); err != nil {
		return err
	}

	count := uint32(len(sorted))
	if count == 0 {
		return writeFooter(f, 0, 0, 0)
	}

	// 2. Build columns
	paths := make([]string, count)
	slugs := make([]string, count)
	dates := make([]int64, count)
	drafts := make([]bool, count)
	digests := make([]string, count)
	words := make([]int64, count)
	blobs := make([]string, count)

	var minDate, maxDate int64
	for i, m := range sorted {
		paths[i] = m.Path
		slugs[i] = m.Slug
		if !m.Date.IsZero() {
			dates[i] = m.Date.Unix()
		}
		drafts[i] = m.Draft
		digests[i] = m.Digest
		words[i] = int64(m.WordCount)
		blobs[i] = string(m.FrontMatter)

		if d := dates[i]; d > 0 {
			if minDate == 0 || d < minDate {
				minDate = d
			}
			if d > maxDate {
				maxDate = d
			}
		}
	}

	// 3. Compress and write columns
	if err := w.writeStringCol(f, paths); err != nil {
		return err
	}
	if err := w.writeStringCol(f, slugs); err != nil {
		return err
	}
	if err := w.writeInt64Col(f, dates); err != nil {
		return err
	}
	if err := w.writeBoolCol(f, drafts); err != nil {
		return err
	}
	if err := w.writeStringCol(f, digests); err != nil {
		return err
	}
	if err := w.writeInt64Col(f, words); err != nil {
		return err
	}
	if err := w.writeStringCol(f, blobs); err != nil {
		return err
	}

	// 4. Footer
	return writeFooter(f, count, minDate, maxDate)
}

func (w *Writer) writeInt64Col(f io.Writer, data []int64) error {
	buf := new(bytes.Buffer)
	for _, v := range data {
		binary.Write(buf, binary.LittleEndian, v)
	}
	return w.compressAndWrite(f, buf.Bytes())
}

func (w *Writer) writeBoolCol(f io.Writer, data []bool) error {
	buf := make([]byte, len(data))
	for i, v := range data {
		if v {
			buf[i] = 1
		}
	}
	return w.compressAndWrite(f, buf)
}

// writeStringCol serializes strings as [len u32][bytes]...
func (w *Writer) writeStringCol(f io.Writer, data []string) error {
	buf := new(bytes.Buffer)
	for _, s := range data {
		binary.Write(buf, binary.LittleEndian, uint32(len(s)))
		buf.WriteString(s)
	}
	return w.compressAndWrite(f, buf.Bytes())
}

func (w *Writer) compressAndWrite(f io.Writer, raw []byte) error {
	compressed := w.encoder.EncodeAll(raw, make([]byte, 0, len(raw)))

	size := uint32(len(compressed))
	if err := binary.Write(f, binary.LittleEndian, size); err != nil {
		return err
	}
	_, err := f.Write(compressed)
	return err
}

// writeFooter appends count(4) + minDate(8) + maxDate(8).
func writeFooter(f io.Writer, count uint32, minDate, maxDate int64) error {
	if err := binary.Write(f, binary.LittleEndian, count); err != nil {
		return err
	}
	if err := binary.Write(f, binary.LittleEndian, minDate); err != nil {
		return err
	}
	return binary.Write(f, binary.LittleEndian, maxDate)
}
