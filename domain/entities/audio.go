package entities

import (
	"bytes"
	"strings"
)

const (
	// DefaultAudioMIMEType is the container recorded by browsers and assumed
	// when an upload does not declare an audio type.
	DefaultAudioMIMEType = "audio/webm"

	// DefaultAudioFilename is the multipart filename of a recording.
	DefaultAudioFilename = "recording.webm"
)

// AudioBlob is one finalized recording.
type AudioBlob struct {
	Data     []byte
	MIMEType string
	Filename string
}

// Size returns the blob length in bytes.
func (b AudioBlob) Size() int {
	return len(b.Data)
}

// ChunkBuffer accumulates the chunks of one recording in arrival order.
// Empty chunks are dropped, matching the recorder contract that only
// non-empty fragments are buffered.
type ChunkBuffer struct {
	chunks [][]byte
	size   int
}

// Append stores a copy of chunk.
func (c *ChunkBuffer) Append(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	stored := make([]byte, len(chunk))
	copy(stored, chunk)
	c.chunks = append(c.chunks, stored)
	c.size += len(stored)
}

// Len returns the number of buffered chunks.
func (c *ChunkBuffer) Len() int {
	return len(c.chunks)
}

// Size returns the number of buffered bytes.
func (c *ChunkBuffer) Size() int {
	return c.size
}

// Bytes concatenates the chunks in arrival order.
func (c *ChunkBuffer) Bytes() []byte {
	return bytes.Join(c.chunks, nil)
}

// Reset clears the buffer for the next recording.
func (c *ChunkBuffer) Reset() {
	c.chunks = nil
	c.size = 0
}

// Drain finalizes the buffer into a blob and clears it.
func (c *ChunkBuffer) Drain(mimeType, filename string) AudioBlob {
	blob := AudioBlob{
		Data:     c.Bytes(),
		MIMEType: mimeType,
		Filename: filename,
	}
	if blob.Data == nil {
		blob.Data = []byte{}
	}
	c.Reset()
	return blob
}

// NormalizeAudioMIMEType returns contentType when it names an audio type and
// DefaultAudioMIMEType otherwise. Codec parameters are kept out of the
// upstream tag.
func NormalizeAudioMIMEType(contentType string) string {
	mimeType := strings.TrimSpace(strings.ToLower(contentType))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	if !strings.HasPrefix(mimeType, "audio/") {
		return DefaultAudioMIMEType
	}
	return mimeType
}
