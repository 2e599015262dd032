package envelope

import (
	"testing"

	"github.com/palsflow/pals/shapelearn"
)

// seekableBuffer adapts a bytes.Buffer to io.WriteSeeker for tests; WAV
// encoders seek back to patch the header after writing all frames.
type seekableBuffer struct {
	buf  []byte
	pos  int64
}

func (s *seekableBuffer) Write(p []byte) (int, error) {
	if int64(len(s.buf)) < s.pos+int64(len(p)) {
		grown := make([]byte, s.pos+int64(len(p)))
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.pos:], p)
	s.pos += int64(n)
	return n, nil
}

func (s *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		s.pos = offset
	case 1:
		s.pos += offset
	case 2:
		s.pos = int64(len(s.buf)) + offset
	}
	return s.pos, nil
}

func TestExportWAVProducesNonEmptyOutput(t *testing.T) {
	grid := shapelearn.Grid()
	meanY := make([]float64, len(grid))
	stdY := make([]float64, len(grid))
	for i := range grid {
		meanY[i] = 1.0
		stdY[i] = 0.1
	}
	env := shapelearn.BuildEnvelope(grid, meanY, stdY)

	sb := &seekableBuffer{}
	if err := ExportWAV(sb, env, 0.1); err != nil {
		t.Fatalf("ExportWAV error: %v", err)
	}
	if len(sb.buf) == 0 {
		t.Fatal("expected non-empty WAV output")
	}
}
