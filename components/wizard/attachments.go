package wizard

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc"
	"github.com/spf13/afero"
)

const defaultMimeType = "application/octet-stream"

// File is a live, process-local file handle holding the file bytes.
type File struct {
	Name         string
	MimeType     string
	LastModified time.Time
	data         []byte
}

// NewFile copies data into a new file handle.
func NewFile(name, mimeType string, lastModified time.Time, data []byte) *File {
	return &File{
		Name:         name,
		MimeType:     mimeType,
		LastModified: lastModified,
		data:         append([]byte(nil), data...),
	}
}

// ReadFile loads a file from fs, inferring the mime type from the extension
// or, failing that, from the content.
func ReadFile(fs afero.Fs, path string) (*File, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("wizard: stat attachment %s: %w", path, err)
	}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("wizard: read attachment %s: %w", path, err)
	}
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	return NewFile(filepath.Base(path), mimeType, info.ModTime(), data), nil
}

// Size returns the file size in bytes.
func (f *File) Size() int64 {
	if f == nil {
		return 0
	}
	return int64(len(f.data))
}

// Bytes returns a copy of the file contents.
func (f *File) Bytes() []byte {
	if f == nil {
		return nil
	}
	return append([]byte(nil), f.data...)
}

// Open returns a reader over the file contents.
func (f *File) Open() io.Reader {
	if f == nil {
		return bytes.NewReader(nil)
	}
	return bytes.NewReader(f.data)
}

// Attachment pairs a live file handle with its encoded projection.
// EncodedPayload is empty while encoding is still in flight.
type Attachment struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	SizeBytes      int64     `json:"sizeBytes"`
	MimeType       string    `json:"mimeType"`
	LastModified   time.Time `json:"lastModified"`
	EncodedPayload string    `json:"encodedPayload,omitempty"`
	File           *File     `json:"-"`
}

// Pending reports whether the encoded projection is not yet available.
func (a Attachment) Pending() bool {
	return a.EncodedPayload == ""
}

// Metadata returns the serializable projection of the attachment.
func (a Attachment) Metadata() AttachmentMetadata {
	return AttachmentMetadata{
		Name:           a.Name,
		SizeBytes:      a.SizeBytes,
		MimeType:       a.MimeType,
		LastModified:   a.LastModified.UnixMilli(),
		EncodedPayload: a.EncodedPayload,
	}
}

// AttachmentMetadata is the durable form of an attachment.
type AttachmentMetadata struct {
	Name           string `json:"name"`
	SizeBytes      int64  `json:"sizeBytes"`
	MimeType       string `json:"mimeType"`
	LastModified   int64  `json:"lastModified"`
	EncodedPayload string `json:"encodedPayload"`
}

// AttachmentStore keeps the ordered attachment list. Encoding of newly added
// files runs in the background; Wait blocks until all encodes finish.
type AttachmentStore struct {
	mu        sync.Mutex
	items     []Attachment
	wg        conc.WaitGroup
	onEncoded func(Attachment)
}

// NewAttachmentStore creates an empty store.
func NewAttachmentStore() *AttachmentStore {
	return &AttachmentStore{}
}

// OnEncoded registers a callback invoked after an attachment's payload is
// attached. It is not called for attachments removed while encoding.
func (s *AttachmentStore) OnEncoded(fn func(Attachment)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEncoded = fn
}

// Add appends the file and starts encoding it. The returned attachment is
// pending until encoding completes.
func (s *AttachmentStore) Add(file *File) Attachment {
	att := Attachment{
		ID:           uuid.NewString(),
		Name:         file.Name,
		SizeBytes:    file.Size(),
		MimeType:     file.MimeType,
		LastModified: file.LastModified,
		File:         file,
	}
	s.mu.Lock()
	s.items = append(s.items, att)
	s.mu.Unlock()

	s.wg.Go(func() {
		s.finishEncode(att.ID, EncodeDataURL(file.MimeType, file.data))
	})
	return att
}

func (s *AttachmentStore) finishEncode(id, payload string) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	s.items[idx].EncodedPayload = payload
	att := s.items[idx]
	callback := s.onEncoded
	s.mu.Unlock()
	if callback != nil {
		callback(att)
	}
}

// Wait blocks until every in-flight encode has completed.
func (s *AttachmentStore) Wait() {
	s.wg.Wait()
}

// RemoveAt removes the attachment at index. Out of range indexes are ignored.
func (s *AttachmentStore) RemoveAt(index int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.items) {
		return false
	}
	s.items = append(s.items[:index:index], s.items[index+1:]...)
	return true
}

// Clear removes every attachment.
func (s *AttachmentStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
}

// Replace swaps the list for restored attachments.
func (s *AttachmentStore) Replace(items []Attachment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Attachment(nil), items...)
}

// Len returns the number of attachments, pending ones included.
func (s *AttachmentStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// List returns a copy of the attachments in insertion order.
func (s *AttachmentStore) List() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment{}, s.items...)
}

// Names returns attachment names in order.
func (s *AttachmentStore) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.items))
	for i, att := range s.items {
		names[i] = att.Name
	}
	return names
}

// Metadata returns the durable projection of encoded attachments. Pending
// attachments are skipped; they are persisted once encoding completes.
func (s *AttachmentStore) Metadata() []AttachmentMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AttachmentMetadata, 0, len(s.items))
	for _, att := range s.items {
		if att.Pending() {
			continue
		}
		out = append(out, att.Metadata())
	}
	return out
}

// RestoreFromEncoded rebuilds live attachments from persisted metadata.
// Entries whose payload cannot be decoded are dropped and reported in the
// joined error; the remaining entries are still returned.
func (s *AttachmentStore) RestoreFromEncoded(metadata []AttachmentMetadata) ([]Attachment, error) {
	var (
		restored []Attachment
		errs     error
	)
	for idx, meta := range metadata {
		data, err := DecodePayload(meta.EncodedPayload)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("wizard: restore attachment %d (%s): %w", idx, meta.Name, err))
			continue
		}
		if meta.SizeBytes > 0 && int64(len(data)) != meta.SizeBytes {
			errs = errors.Join(errs, fmt.Errorf("wizard: restore attachment %d (%s): size mismatch, want %d got %d", idx, meta.Name, meta.SizeBytes, len(data)))
			continue
		}
		file := NewFile(meta.Name, meta.MimeType, time.UnixMilli(meta.LastModified), data)
		restored = append(restored, Attachment{
			ID:             uuid.NewString(),
			Name:           meta.Name,
			SizeBytes:      file.Size(),
			MimeType:       meta.MimeType,
			LastModified:   file.LastModified,
			EncodedPayload: EncodeDataURL(meta.MimeType, data),
			File:           file,
		})
	}
	return restored, errs
}

func (s *AttachmentStore) indexOf(id string) int {
	for i, att := range s.items {
		if att.ID == id {
			return i
		}
	}
	return -1
}

// EncodeDataURL encodes data as a base64 data URL.
func EncodeDataURL(mimeType string, data []byte) string {
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodePayload decodes a base64 data URL or a bare base64 string.
func DecodePayload(payload string) ([]byte, error) {
	if payload == "" {
		return nil, errors.New("empty payload")
	}
	encoded := payload
	if strings.HasPrefix(payload, "data:") {
		// mime parameters may quote commas; base64 never contains one
		cut := strings.LastIndex(payload, ",")
		if cut < 0 {
			return nil, errors.New("malformed data url")
		}
		if !strings.HasSuffix(payload[:cut], ";base64") {
			return nil, errors.New("data url is not base64 encoded")
		}
		encoded = payload[cut+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}
