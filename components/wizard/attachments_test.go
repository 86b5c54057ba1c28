package wizard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAttachmentStoreAddEncodesInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewAttachmentStore()
	var encoded atomic.Int32
	store.OnEncoded(func(Attachment) { encoded.Add(1) })

	att := store.Add(sampleFile("a.txt"))
	assert.Equal(t, "a.txt", att.Name)
	assert.Equal(t, int64(len("hello a.txt")), att.SizeBytes)
	assert.NotEmpty(t, att.ID)
	assert.Equal(t, 1, store.Len())

	store.Wait()
	assert.Equal(t, int32(1), encoded.Load())
	list := store.List()
	require.Len(t, list, 1)
	assert.False(t, list[0].Pending())
	assert.Equal(t, "data:text/plain;base64,aGVsbG8gYS50eHQ=", list[0].EncodedPayload)
}

func TestAttachmentStoreRemoveAtOutOfRange(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewAttachmentStore()
	store.Add(sampleFile("a.txt"))
	store.Add(sampleFile("b.txt"))
	store.Wait()

	assert.False(t, store.RemoveAt(99))
	assert.False(t, store.RemoveAt(-1))
	assert.Equal(t, []string{"a.txt", "b.txt"}, store.Names())

	assert.True(t, store.RemoveAt(0))
	assert.Equal(t, []string{"b.txt"}, store.Names())
}

func TestAttachmentStoreDiscardsEncodeOfRemovedEntry(t *testing.T) {
	store := NewAttachmentStore()
	called := false
	store.OnEncoded(func(Attachment) { called = true })
	store.finishEncode("missing", "data:text/plain;base64,")
	assert.False(t, called)
	assert.Equal(t, 0, store.Len())
}

func TestAttachmentStoreMetadataSkipsPending(t *testing.T) {
	store := NewAttachmentStore()
	store.Replace([]Attachment{
		{ID: "1", Name: "done.txt", EncodedPayload: "data:text/plain;base64,eA=="},
		{ID: "2", Name: "pending.txt"},
	})
	meta := store.Metadata()
	require.Len(t, meta, 1)
	assert.Equal(t, "done.txt", meta[0].Name)
}

func TestAttachmentStoreRoundTrip(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewAttachmentStore()
	original := NewFile("photo.png", "image/png", time.UnixMilli(1700000000123), []byte{0x89, 'P', 'N', 'G', 0x00, 0xff})
	quoted := NewFile("a.txt", `text/plain; charset="a,b"`, time.UnixMilli(1700000000456), []byte("hello a.txt"))
	store.Add(original)
	store.Wait()
	store.Add(quoted)
	store.Wait()
	meta := store.Metadata()
	require.Len(t, meta, 2)
	assert.Equal(t, int64(1700000000123), meta[0].LastModified)

	restored, err := NewAttachmentStore().RestoreFromEncoded(meta)
	require.NoError(t, err)
	require.Len(t, restored, 2)
	assert.Equal(t, quoted.Bytes(), restored[1].File.Bytes())
	assert.Equal(t, `text/plain; charset="a,b"`, restored[1].MimeType)
	assert.Equal(t, quoted.Size(), restored[1].SizeBytes)
	assert.Equal(t, original.Bytes(), restored[0].File.Bytes())
	assert.Equal(t, "photo.png", restored[0].Name)
	assert.Equal(t, "image/png", restored[0].MimeType)
	assert.Equal(t, int64(6), restored[0].SizeBytes)
	assert.True(t, restored[0].LastModified.Equal(original.LastModified))
	assert.Equal(t, meta[0].EncodedPayload, restored[0].EncodedPayload)
}

func TestRestoreFromEncodedDropsCorruptEntries(t *testing.T) {
	meta := []AttachmentMetadata{
		{Name: "good.txt", SizeBytes: 2, MimeType: "text/plain", EncodedPayload: "data:text/plain;base64,aGk="},
		{Name: "bad.txt", SizeBytes: 2, MimeType: "text/plain", EncodedPayload: "data:text/plain;base64,!!!"},
		{Name: "short.txt", SizeBytes: 10, MimeType: "text/plain", EncodedPayload: "aGk="},
		{Name: "empty.txt", MimeType: "text/plain"},
	}
	restored, err := NewAttachmentStore().RestoreFromEncoded(meta)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.txt")
	assert.Contains(t, err.Error(), "short.txt")
	require.Len(t, restored, 1)
	assert.Equal(t, "good.txt", restored[0].Name)
	assert.Equal(t, []byte("hi"), restored[0].File.Bytes())
}

func TestDecodePayload(t *testing.T) {
	data, err := DecodePayload("data:application/pdf;base64,JVBERg==")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	data, err = DecodePayload("JVBERg==")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF"), data)

	data, err = DecodePayload(`data:text/plain; charset="a,b";base64,aGk=`)
	require.NoError(t, err)
	assert.Equal(t, []byte("hi"), data)

	_, err = DecodePayload("data:text/plain,hello")
	assert.Error(t, err)
	_, err = DecodePayload("data:text/plain;base64")
	assert.Error(t, err)
	_, err = DecodePayload("")
	assert.Error(t, err)
}

func TestEncodeDataURLDefaultsMimeType(t *testing.T) {
	assert.Equal(t, "data:application/octet-stream;base64,AQI=", EncodeDataURL("", []byte{1, 2}))
}

func TestReadFileFromFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/uploads/notes.txt", []byte("notes"), 0o644))

	file, err := ReadFile(fs, "/uploads/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "notes.txt", file.Name)
	assert.Contains(t, file.MimeType, "text/plain")
	assert.Equal(t, int64(5), file.Size())

	_, err = ReadFile(fs, "/uploads/missing.txt")
	assert.Error(t, err)
}
