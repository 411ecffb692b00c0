package journal

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/blockberries/ledgerberry/types"
)

const (
	filePerm       = 0600
	dirPerm        = 0700
	maxFrameSize   = 10 * 1024 * 1024 // 10MB per block frame
	defaultBufSize = 64 * 1024
)

// Errors
var (
	ErrClosed    = errors.New("journal is closed")
	ErrCorrupted = errors.New("journal is corrupted")
)

// Journal is a sink for sealed blocks.
type Journal interface {
	// Append writes a block frame. Sync semantics depend on the
	// implementation.
	Append(block *types.Block) error

	// Close flushes and closes the journal.
	Close() error
}

// FileJournal is a file-backed Journal. Safe for concurrent use.
type FileJournal struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	closed bool
	sync   bool
	lenBuf [4]byte
}

// Open opens (or creates) a journal file for appending. If syncEveryWrite
// is set, every Append is flushed and fsynced before returning.
func Open(path string, syncEveryWrite bool) (*FileJournal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			return nil, errors.Wrap(err, "create journal directory")
		}
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, filePerm)
	if err != nil {
		return nil, errors.Wrap(err, "open journal file")
	}

	return &FileJournal{
		file: file,
		buf:  bufio.NewWriterSize(file, defaultBufSize),
		sync: syncEveryWrite,
	}, nil
}

// Append writes a block frame.
func (j *FileJournal) Append(block *types.Block) error {
	data, err := json.Marshal(block)
	if err != nil {
		return errors.Wrap(err, "encode block")
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}

	binary.BigEndian.PutUint32(j.lenBuf[:], uint32(len(data)))
	if _, err := j.buf.Write(j.lenBuf[:]); err != nil {
		return errors.Wrap(err, "write frame length")
	}
	if _, err := j.buf.Write(data); err != nil {
		return errors.Wrap(err, "write frame data")
	}
	binary.BigEndian.PutUint32(j.lenBuf[:], crc32.ChecksumIEEE(data))
	if _, err := j.buf.Write(j.lenBuf[:]); err != nil {
		return errors.Wrap(err, "write frame checksum")
	}

	if j.sync {
		return j.flushAndSync()
	}
	return nil
}

// Flush flushes buffered frames and syncs the file.
func (j *FileJournal) Flush() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return ErrClosed
	}
	return j.flushAndSync()
}

func (j *FileJournal) flushAndSync() error {
	if err := j.buf.Flush(); err != nil {
		return errors.Wrap(err, "flush journal")
	}
	return errors.Wrap(j.file.Sync(), "sync journal")
}

// Close flushes and closes the journal file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.buf.Flush(); err != nil {
		return errors.Wrap(err, "flush journal")
	}
	if err := j.file.Sync(); err != nil {
		return errors.Wrap(err, "sync journal")
	}
	return errors.Wrap(j.file.Close(), "close journal")
}

var _ Journal = (*FileJournal)(nil)

// Replay reads all block frames from a journal file in write order.
// A truncated or corrupt tail ends the replay without error; corruption
// in the middle of a frame checksum is reported as ErrCorrupted.
func Replay(path string) ([]*types.Block, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open journal file")
	}
	defer file.Close()

	r := bufio.NewReaderSize(file, defaultBufSize)
	var blocks []*types.Block
	var lenBuf [4]byte

	for {
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			if err == io.EOF {
				return blocks, nil
			}
			// Truncated length prefix: treat as end of journal.
			if err == io.ErrUnexpectedEOF {
				return blocks, nil
			}
			return blocks, errors.Wrap(err, "read frame length")
		}

		length := binary.BigEndian.Uint32(lenBuf[:])
		if length > maxFrameSize {
			return blocks, errors.Wrapf(ErrCorrupted, "frame of %d bytes", length)
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return blocks, nil // truncated tail
		}
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			return blocks, nil // truncated tail
		}

		if binary.BigEndian.Uint32(lenBuf[:]) != crc32.ChecksumIEEE(data) {
			return blocks, errors.Wrap(ErrCorrupted, "frame checksum mismatch")
		}

		var block types.Block
		if err := json.Unmarshal(data, &block); err != nil {
			return blocks, errors.Wrap(err, "decode block frame")
		}
		blocks = append(blocks, &block)
	}
}

// Nop is a no-op Journal for tests and journal-less ledgers.
type Nop struct{}

func (Nop) Append(*types.Block) error { return nil }
func (Nop) Close() error              { return nil }

var _ Journal = Nop{}
