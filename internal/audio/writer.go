package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/linuxmatters/audioconvertnode/internal/format"
)

// Writer wraps a go-audio/wav encoder for interleaved S16LE/S32LE PCM
// writing, one fixed-size frame chunk at a time.
type Writer struct {
	file    *os.File
	encoder *wav.Encoder
	fmt     format.Format
}

// CreateAudioFile creates (or truncates) a WAV file for writing in the
// given raw format, which must be interleaved S16LE or S32LE.
func CreateAudioFile(filename string, f format.Format) (*Writer, error) {
	if !f.Interleaved || (f.Encoding != format.EncodingS16LE && f.Encoding != format.EncodingS32LE) {
		return nil, fmt.Errorf("audio: output format must be interleaved S16LE or S32LE, got %s", f)
	}
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", filename, err)
	}
	bitDepth := bitsPerSample(f.Encoding)
	enc := wav.NewEncoder(file, int(f.Rate), bitDepth, int(f.Channels), 1)
	return &Writer{file: file, encoder: enc, fmt: f}, nil
}

// bitsPerSample reports the WAV bit depth for the encodings this package
// supports (S16LE, S32LE).
func bitsPerSample(enc format.Encoding) int {
	if enc == format.EncodingS32LE {
		return 32
	}
	return 16
}

// WriteFrames encodes nFrames frames of raw interleaved PCM from data.
func (w *Writer) WriteFrames(data []byte, nFrames int) error {
	channels := int(w.fmt.Channels)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(w.fmt.Rate)},
		Data:           make([]int, nFrames*channels),
		SourceBitDepth: bitsPerSample(w.fmt.Encoding),
	}
	unpackInts(buf.Data, data[:nFrames*int(w.fmt.Stride())], w.fmt.Encoding)
	return w.encoder.Write(buf)
}

// Close flushes the WAV header and closes the underlying file.
func (w *Writer) Close() error {
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return w.file.Close()
}
