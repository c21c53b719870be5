package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pitchforge-ai-api/internal/domain/entity"
)

func TestArtifactEncodeDecode(t *testing.T) {
	in := &entity.ExportArtifact{
		Data:     []byte{0x50, 0x4b, 0x03, 0x04, 0x00, 0xff},
		MimeType: "application/vnd.openxmlformats-officedocument.presentationml.presentation",
		FileName: "PawPal_Pitch_Deck.pptx",
	}

	fields, err := encodeArtifact(in, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, err)

	// go-redis 以字符串形式读回 Hash 字段
	raw := map[string]string{
		fieldMeta: fields[fieldMeta].(string),
		fieldData: string(fields[fieldData].([]byte)),
	}
	out, err := decodeArtifact(raw)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecodeArtifactRejectsTruncatedData(t *testing.T) {
	fields, err := encodeArtifact(&entity.ExportArtifact{Data: []byte("abcdef"), FileName: "x.pptx"}, time.Now())
	require.NoError(t, err)

	_, err = decodeArtifact(map[string]string{
		fieldMeta: fields[fieldMeta].(string),
		fieldData: "abc",
	})
	assert.ErrorContains(t, err, "truncated")
}

func TestDecodeArtifactMissingMeta(t *testing.T) {
	_, err := decodeArtifact(map[string]string{fieldData: "abc"})
	assert.Error(t, err)
}

func TestEncodeNilArtifact(t *testing.T) {
	_, err := encodeArtifact(nil, time.Now())
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "deck:artifact:job-1", ArtifactKey("job-1"))
	assert.Equal(t, "ratelimit:10.0.0.1:/v1/decks", BuildRateLimitKey("10.0.0.1", "/v1/decks"))
}
