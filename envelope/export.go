// Package envelope exports a learned pulse-shape envelope (shapelearn.Envelope)
// to a 2-channel WAV file for offline inspection, grounded on
// cmd/piano-render/main.go's wav.NewEncoder/audio.Float32Buffer pattern.
package envelope

import (
	"fmt"
	"io"

	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"

	"github.com/palsflow/pals/shapelearn"
)

// NominalSampleRate is the sample rate stamped on the exported WAV; the
// envelope is not itself audio, but a uniform-rate export lets any WAV
// viewer render it as two traces.
const NominalSampleRate = 44100

// ExportWAV writes env's mean and stddev traces as left/right channels
// of a 16-bit PCM WAV file, resampled from the 4381-point [-200,+200] ns
// grid onto NominalSampleRate frames of equal total duration.
func ExportWAV(w io.WriteSeeker, env shapelearn.Envelope, seconds float64) error {
	if seconds <= 0 {
		seconds = 1.0
	}
	numFrames := int(seconds * NominalSampleRate)
	if numFrames < 2 {
		numFrames = 2
	}

	const numChannels = 2
	interleaved := make([]float32, numFrames*numChannels)

	n := len(env.GridT)
	for i := 0; i < numFrames; i++ {
		frac := float64(i) / float64(numFrames-1)
		srcIdx := int(frac * float64(n-1))
		interleaved[i*2] = float32(env.MeanY[srcIdx])
		interleaved[i*2+1] = float32(env.StdDevY[srcIdx])
	}

	encoder := wav.NewEncoder(w, NominalSampleRate, 16, numChannels, 1)
	defer encoder.Close()

	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  NominalSampleRate,
			NumChannels: numChannels,
		},
		Data:           interleaved,
		SourceBitDepth: 16,
	}

	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("envelope: writing WAV: %w", err)
	}
	return nil
}
