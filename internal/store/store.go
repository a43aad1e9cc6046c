package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/ticketwatch/internal/model"
)

// timestampPrefix starts the metadata line written before a batch.
const timestampPrefix = "// Timestamp:"

var (
	// ErrCorruptFile is returned by ReadBatches when a document in the
	// records file cannot be decoded.
	ErrCorruptFile = errors.New("records file is corrupt")

	// ErrEmptyPath is returned when a store is created without a path.
	ErrEmptyPath = errors.New("records file path is empty")
)

// Store writes crawl results to a records file.
type Store struct {
	// path is the records file.
	path string

	// persistence selects overwrite or append.
	persistence model.Persistence

	// createDirs creates missing parent directories before writing.
	createDirs bool
}

// Option configures a Store.
type Option func(*Store)

// WithPersistence sets how batches are written.
func WithPersistence(p model.Persistence) Option {
	return func(s *Store) {
		if p != "" {
			s.persistence = p
		}
	}
}

// WithCreateDirs makes Persist create missing parent directories (0750).
func WithCreateDirs() Option {
	return func(s *Store) {
		s.createDirs = true
	}
}

// New creates a Store writing to path. The default persistence is Overwrite.
func New(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrEmptyPath
	}

	s := &Store{
		path:        path,
		persistence: model.Overwrite,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Path returns the records file path.
func (s *Store) Path() string {
	return s.path
}

// Persistence returns how batches are written.
func (s *Store) Persistence() model.Persistence {
	return s.persistence
}

// Persist writes records, preceded by a timestamp line when timestampLabel
// is non-empty.
//
// In Overwrite mode the file is replaced atomically. In Append mode the
// batch is added to the end of the file in a single write; a failed write
// leaves the file at its previous size.
func (s *Store) Persist(records []model.Record, timestampLabel string) error {
	data, err := Encode(records, timestampLabel)
	if err != nil {
		return err
	}

	if s.createDirs {
		if err := os.MkdirAll(filepath.Dir(s.path), 0750); err != nil {
			return fmt.Errorf("failed to create records directory: %w", err)
		}
	}

	if s.persistence == model.Append {
		return s.appendBatch(data)
	}
	return s.replace(data)
}

// Encode renders one batch: the optional timestamp line followed by the
// records as an indented JSON array. Non-ASCII and HTML characters are
// written verbatim and every field sits on its own line.
func Encode(records []model.Record, timestampLabel string) ([]byte, error) {
	if records == nil {
		records = []model.Record{}
	}

	var buf bytes.Buffer
	if label := strings.TrimSpace(timestampLabel); label != "" {
		fmt.Fprintf(&buf, "%s %s\n", timestampPrefix, label)
	}

	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("failed to encode records: %w", err)
	}

	return buf.Bytes(), nil
}

// replace writes data to a temporary file next to the destination and
// renames it over the destination.
func (s *Store) replace(data []byte) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary records file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()         //nolint:errcheck // already failing
			_ = os.Remove(tmpPath) //nolint:errcheck // best effort cleanup
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("failed to sync records: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close records file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0600); err != nil {
		return fmt.Errorf("failed to set records file mode: %w", err)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to replace records file: %w", err)
	}

	return nil
}

// appendBatch adds data to the end of the records file.
func (s *Store) appendBatch(data []byte) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open records file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to stat records file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Truncate(info.Size()) //nolint:errcheck // best effort rollback
		_ = f.Close()               //nolint:errcheck // already failing
		return fmt.Errorf("failed to append records: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return fmt.Errorf("failed to sync records: %w", err)
	}

	return f.Close()
}

// Batch is one persisted crawl output.
type Batch struct {
	// Timestamp is the label of the preceding timestamp line, or "".
	Timestamp string `json:"timestamp,omitempty"`

	// Records are the records of the batch in stored order.
	Records []model.Record `json:"records"`
}

// timestampFormats are the layouts accepted for timestamp labels.
// The second one is what the legacy writer produced.
var timestampFormats = []string{
	model.TimestampLayout,
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// Time parses the batch timestamp. ok is false when the batch has no
// timestamp or it is in an unknown format.
func (b Batch) Time() (time.Time, bool) {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, b.Timestamp); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ReadBatches reads every batch from the records file at path.
func ReadBatches(path string) ([]Batch, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open records file: %w", err)
	}
	defer f.Close()

	return DecodeBatches(f)
}

// DecodeBatches decodes a records file written in either persistence mode.
//
// The file is a sequence of independent JSON arrays. A comment line
// ("// Timestamp: ...") belongs to the array that follows it. Arrays that
// follow each other without a comment line get an empty timestamp.
func DecodeBatches(r io.Reader) ([]Batch, error) {
	batches := make([]Batch, 0)
	var (
		segment bytes.Buffer
		label   string
	)

	flush := func() error {
		dec := json.NewDecoder(bytes.NewReader(segment.Bytes()))
		for {
			var records []model.Record
			err := dec.Decode(&records)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				return fmt.Errorf("%w: %w", ErrCorruptFile, err)
			}
			if records == nil {
				records = []model.Record{}
			}
			batches = append(batches, Batch{Timestamp: label, Records: records})
			label = ""
		}
		segment.Reset()
		return nil
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "//") {
			if err := flush(); err != nil {
				return nil, err
			}
			if strings.HasPrefix(trimmed, timestampPrefix) {
				label = strings.TrimSpace(strings.TrimPrefix(trimmed, timestampPrefix))
			}
			continue
		}
		segment.WriteString(line)
		segment.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read records file: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}

	return batches, nil
}
