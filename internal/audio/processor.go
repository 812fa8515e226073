// Package audio derives playable-duration metadata from raw synthesis
// output and manages the local artifact for each job. Duration comes from
// the WAV header alone; the samples are never decoded.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"github.com/orpheus-audio/narration-worker/internal/worker/domain"
)

const (
	filePermissions = 0o600
	dirPermissions  = 0o750

	riffHeaderSize  = 12
	chunkHeaderSize = 8
)

// Processor writes job artifacts into a shared output directory. Files are
// keyed by job id, so concurrent workers never collide.
type Processor struct {
	outputDir string
	logger    *slog.Logger
}

// NewProcessor creates a processor and ensures the output directory exists.
func NewProcessor(outputDir string, logger *slog.Logger) (*Processor, error) {
	if err := os.MkdirAll(outputDir, dirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	return &Processor{outputDir: outputDir, logger: logger}, nil
}

// Process computes the duration of raw WAV bytes and writes them to the
// job-unique artifact path. A corrupt or truncated header is fatal for the
// attempt; the processor never retries on its own.
func (p *Processor) Process(jobID string, raw []byte) (*domain.AudioArtifact, error) {
	duration, err := wavDuration(raw)
	if err != nil {
		return nil, domain.Fatal(fmt.Errorf("%w: %v", domain.ErrAudioProcessing, err))
	}

	path := p.ArtifactPath(jobID)
	if err := os.WriteFile(path, raw, filePermissions); err != nil {
		return nil, domain.Fatal(fmt.Errorf("%w: writing artifact: %v", domain.ErrAudioProcessing, err))
	}

	artifact := &domain.AudioArtifact{
		Path:     path,
		Size:     int64(len(raw)),
		Duration: duration,
		Encoding: "wav",
	}

	p.logger.Info("Audio artifact written",
		slog.String("job_id", jobID),
		slog.String("path", path),
		slog.Int64("bytes", artifact.Size),
		slog.Float64("duration_seconds", duration),
	)

	return artifact, nil
}

// ArtifactPath returns the stable local path for a job's audio.
func (p *Processor) ArtifactPath(jobID string) string {
	return filepath.Join(p.outputDir, "narration_"+jobID+".wav")
}

// Cleanup removes the artifact file. Idempotent: a missing file is a no-op.
func (p *Processor) Cleanup(artifact *domain.AudioArtifact) {
	if artifact == nil {
		return
	}

	err := os.Remove(artifact.Path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		p.logger.Warn("Failed to remove audio artifact",
			slog.String("path", artifact.Path),
			slog.String("error", err.Error()),
		)
		return
	}

	p.logger.Debug("Audio artifact removed",
		slog.String("path", artifact.Path),
	)
}

// wavDuration walks the RIFF chunk list and returns data length divided by
// byte rate, rounded to two decimals. It needs only the fmt and data chunk
// headers, not the sample payload.
func wavDuration(raw []byte) (float64, error) {
	if len(raw) < riffHeaderSize {
		return 0, errors.New("not a WAV file: too short")
	}

	if string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return 0, errors.New("not a WAV file: missing RIFF/WAVE marker")
	}

	var byteRate uint32
	var dataSize uint32
	var haveFmt, haveData bool

	offset := riffHeaderSize
	for offset+chunkHeaderSize <= len(raw) {
		chunkID := string(raw[offset : offset+4])
		chunkSize := binary.LittleEndian.Uint32(raw[offset+4 : offset+8])
		body := offset + chunkHeaderSize

		switch chunkID {
		case "fmt ":
			if chunkSize < 16 || body+16 > len(raw) {
				return 0, errors.New("truncated fmt chunk")
			}
			byteRate = binary.LittleEndian.Uint32(raw[body+8 : body+12])
			haveFmt = true
		case "data":
			dataSize = chunkSize
			haveData = true
		}

		if haveFmt && haveData {
			break
		}

		// Chunks are word-aligned; odd sizes carry a pad byte.
		offset = body + int(chunkSize)
		if chunkSize%2 == 1 {
			offset++
		}
	}

	if !haveFmt || !haveData {
		return 0, errors.New("missing fmt or data chunk")
	}

	if byteRate == 0 {
		return 0, errors.New("fmt chunk reports zero byte rate")
	}

	duration := float64(dataSize) / float64(byteRate)

	return math.Round(duration*100) / 100, nil
}
