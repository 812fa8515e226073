package audio

import (
	"encoding/binary"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// buildWAV assembles a minimal mono 16-bit WAV with the given sample rate
// and data payload length. The payload itself is zeros; only the header
// matters for duration.
func buildWAV(sampleRate uint32, dataLen uint32) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
	)
	blockAlign := uint16(channels * bitsPerSample / 8)
	byteRate := sampleRate * uint32(blockAlign)

	buf := make([]byte, 0, 44+int(dataLen))
	buf = append(buf, "RIFF"...)
	buf = binary.LittleEndian.AppendUint32(buf, 36+dataLen)
	buf = append(buf, "WAVE"...)

	buf = append(buf, "fmt "...)
	buf = binary.LittleEndian.AppendUint32(buf, 16)
	buf = binary.LittleEndian.AppendUint16(buf, 1) // PCM
	buf = binary.LittleEndian.AppendUint16(buf, channels)
	buf = binary.LittleEndian.AppendUint32(buf, sampleRate)
	buf = binary.LittleEndian.AppendUint32(buf, byteRate)
	buf = binary.LittleEndian.AppendUint16(buf, blockAlign)
	buf = binary.LittleEndian.AppendUint16(buf, bitsPerSample)

	buf = append(buf, "data"...)
	buf = binary.LittleEndian.AppendUint32(buf, dataLen)
	buf = append(buf, make([]byte, dataLen)...)

	return buf
}

func TestProcess(t *testing.T) {
	processor, err := NewProcessor(t.TempDir(), discardLogger())
	require.NoError(t, err)

	// 22050 Hz mono 16-bit: byte rate 44100. One second of samples.
	raw := buildWAV(22050, 44100)

	artifact, err := processor.Process("job-1", raw)
	require.NoError(t, err)

	assert.Equal(t, 1.0, artifact.Duration)
	assert.Equal(t, int64(len(raw)), artifact.Size)
	assert.Equal(t, "wav", artifact.Encoding)
	assert.Equal(t, processor.ArtifactPath("job-1"), artifact.Path)

	written, err := os.ReadFile(artifact.Path)
	require.NoError(t, err)
	assert.Equal(t, raw, written)
}

func TestProcessDurationRounding(t *testing.T) {
	processor, err := NewProcessor(t.TempDir(), discardLogger())
	require.NoError(t, err)

	// 66150 bytes over a 44100 byte rate is exactly 1.5 seconds.
	artifact, err := processor.Process("job-2", buildWAV(22050, 66150))
	require.NoError(t, err)
	assert.Equal(t, 1.5, artifact.Duration)

	// 14700 bytes is 0.333... seconds, rounded to two decimals.
	artifact, err = processor.Process("job-3", buildWAV(22050, 14700))
	require.NoError(t, err)
	assert.Equal(t, 0.33, artifact.Duration)
}

func TestProcessJobUniquePaths(t *testing.T) {
	dir := t.TempDir()
	processor, err := NewProcessor(dir, discardLogger())
	require.NoError(t, err)

	raw := buildWAV(22050, 100)

	a, err := processor.Process("job-a", raw)
	require.NoError(t, err)
	b, err := processor.Process("job-b", raw)
	require.NoError(t, err)

	assert.NotEqual(t, a.Path, b.Path)
	assert.Equal(t, filepath.Join(dir, "narration_job-a.wav"), a.Path)
	assert.Equal(t, filepath.Join(dir, "narration_job-b.wav"), b.Path)
}

func TestProcessCorruptAudio(t *testing.T) {
	processor, err := NewProcessor(t.TempDir(), discardLogger())
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  []byte
	}{
		{name: "empty", raw: nil},
		{name: "too short", raw: []byte("RIFF")},
		{name: "wrong marker", raw: []byte("OGGSxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx")},
		{name: "missing data chunk", raw: buildWAV(22050, 4096)[:40]},
		{name: "zero byte rate", raw: buildWAV(0, 100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := processor.Process("job-x", tt.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrAudioProcessing)
			assert.True(t, domain.IsFatal(err))
		})
	}
}

func TestCleanup(t *testing.T) {
	processor, err := NewProcessor(t.TempDir(), discardLogger())
	require.NoError(t, err)

	artifact, err := processor.Process("job-c", buildWAV(22050, 100))
	require.NoError(t, err)

	processor.Cleanup(artifact)
	_, statErr := os.Stat(artifact.Path)
	assert.True(t, os.IsNotExist(statErr))

	// Idempotent: deleting an already-removed artifact is a no-op.
	processor.Cleanup(artifact)
	processor.Cleanup(nil)
}
