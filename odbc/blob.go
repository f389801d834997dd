package odbc

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// DefaultBatchSize is the batch size readers are split into when streamed.
const DefaultBatchSize = 64 * 1024

// Blob is a lazy, finite, forward-only source of byte batches streamed into a
// delayed parameter. It is not restartable.
type Blob interface {
	CType() CDataType
	DataType() DataType
	// SizeHint reports the total size if it is known in advance.
	SizeHint() (int64, bool)
	// NextBatch returns the next batch, or io.EOF once the blob is
	// exhausted. Any other error is a failure of the underlying source.
	NextBatch() ([]byte, error)
}

// BlobParam binds a blob as a delayed input parameter.
type BlobParam struct {
	Blob      Blob
	indicator [1]int64
}

func (p *BlobParam) Bind(stmt *Statement, number uint16, delayed *DelayedTable) error {
	if size, ok := p.Blob.SizeHint(); ok {
		p.indicator[0] = LenDataAtExec(size)
	} else {
		p.indicator[0] = DataAtExec
	}
	token := delayed.Register(number, p.Blob)
	_, err := stmt.BindParameter(&ParameterBinding{
		Number:     number,
		Direction:  ParamInput,
		CType:      p.Blob.CType(),
		DataType:   p.Blob.DataType(),
		Indicators: p.indicator[:],
		Token:      token,
	}).Into("SQLBindParameter")
	return err
}

func blobTypes(sqlType SQLType) (CDataType, DataType) {
	switch sqlType {
	case TypeLongVarchar, TypeVarchar, TypeChar:
		return CChar, DataType{SQLType: sqlType}
	}
	return CBinary, DataType{SQLType: sqlType}
}

// BlobSlice streams pre-chunked in-memory batches.
type BlobSlice struct {
	batches [][]byte
	sqlType SQLType
	next    int
}

// NewBlobSlice streams batches in order as sqlType (TypeLongVarbinary or
// TypeLongVarchar).
func NewBlobSlice(sqlType SQLType, batches ...[]byte) *BlobSlice {
	return &BlobSlice{batches: batches, sqlType: sqlType}
}

func (b *BlobSlice) CType() CDataType {
	c, _ := blobTypes(b.sqlType)
	return c
}

func (b *BlobSlice) DataType() DataType {
	_, dt := blobTypes(b.sqlType)
	dt.ColumnSize = uint64(b.size())
	return dt
}

func (b *BlobSlice) size() int64 {
	var n int64
	for _, batch := range b.batches {
		n += int64(len(batch))
	}
	return n
}

func (b *BlobSlice) SizeHint() (int64, bool) {
	return b.size(), true
}

func (b *BlobSlice) NextBatch() ([]byte, error) {
	if b.next >= len(b.batches) {
		return nil, io.EOF
	}
	batch := b.batches[b.next]
	b.next++
	return batch, nil
}

// BlobReader streams an io.Reader in batches of a fixed maximum size.
type BlobReader struct {
	r       io.Reader
	buf     []byte
	sqlType SQLType
	size    int64
	sized   bool
	done    bool
}

// NewBlobReader streams r as sqlType in batches of at most batchSize bytes.
func NewBlobReader(r io.Reader, batchSize int, sqlType SQLType) *BlobReader {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &BlobReader{r: r, buf: make([]byte, batchSize), sqlType: sqlType}
}

// WithSize announces the total size of the stream to the driver.
func (b *BlobReader) WithSize(size int64) *BlobReader {
	b.size = size
	b.sized = true
	return b
}

func (b *BlobReader) CType() CDataType {
	c, _ := blobTypes(b.sqlType)
	return c
}

func (b *BlobReader) DataType() DataType {
	_, dt := blobTypes(b.sqlType)
	if b.sized {
		dt.ColumnSize = uint64(b.size)
	}
	return dt
}

func (b *BlobReader) SizeHint() (int64, bool) {
	return b.size, b.sized
}

// NextBatch fills the batch buffer as far as the reader allows. The returned
// slice is only valid until the next call.
func (b *BlobReader) NextBatch() ([]byte, error) {
	if b.done {
		return nil, io.EOF
	}
	n, err := io.ReadFull(b.r, b.buf)
	switch {
	case errors.Is(err, io.EOF):
		b.done = true
		return nil, io.EOF
	case errors.Is(err, io.ErrUnexpectedEOF):
		b.done = true
		return b.buf[:n], nil
	case err != nil:
		return nil, err
	}
	return b.buf[:n], nil
}

// BlobFile streams the content of a file.
type BlobFile struct {
	*BlobReader
	f *os.File
}

// OpenBlobFile opens path for streaming in batches of batchSize bytes. The
// file size is announced to the driver.
func OpenBlobFile(path string, batchSize int, sqlType SQLType) (*BlobFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("odbc: open blob file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("odbc: stat blob file: %w", err)
	}
	return &BlobFile{
		BlobReader: NewBlobReader(f, batchSize, sqlType).WithSize(info.Size()),
		f:          f,
	}, nil
}

// Close closes the underlying file.
func (b *BlobFile) Close() error {
	return b.f.Close()
}
