// Package audio provides WAV file I/O for driving a node's raw ports from
// and to disk, using go-audio/wav for container parsing and go-audio/audio
// for the PCM buffer representation.
package audio

import (
	"fmt"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/linuxmatters/audioconvertnode/internal/format"
)

// Reader wraps a go-audio/wav decoder, reading fixed-size interleaved raw
// frame chunks in the format negotiated from the file's own header.
type Reader struct {
	file    *os.File
	decoder *wav.Decoder
	fmt     format.Format
}

// Metadata describes the negotiated format of an opened WAV file.
type Metadata struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// OpenAudioFile opens a WAV file for reading.
func OpenAudioFile(filename string) (*Reader, *Metadata, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", filename, err)
	}
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, nil, fmt.Errorf("%s is not a valid WAV file", filename)
	}
	dec.ReadInfo()
	if dec.SampleRate == 0 || dec.NumChans == 0 {
		f.Close()
		return nil, nil, fmt.Errorf("%s: missing fmt chunk", filename)
	}

	enc, err := encodingFor(int(dec.BitDepth))
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	r := &Reader{
		file:    f,
		decoder: dec,
		fmt: format.Format{
			Encoding:    enc,
			Interleaved: true,
			Rate:        dec.SampleRate,
			Channels:    uint32(dec.NumChans),
			Position:    format.DefaultPositionsFor(int(dec.NumChans)),
		},
	}
	return r, &Metadata{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// Format reports the raw interleaved format negotiated from the file header.
func (r *Reader) Format() format.Format { return r.fmt }

// encodingFor maps a WAV bit depth to a raw encoding. Only the depths the
// convert kernel's sample codec actually handles (16 and 32 bit signed
// integer) are supported; 24-bit files are rejected rather than silently
// decoded as silence.
func encodingFor(bitDepth int) (format.Encoding, error) {
	switch bitDepth {
	case 16:
		return format.EncodingS16LE, nil
	case 32:
		return format.EncodingS32LE, nil
	default:
		return format.EncodingUnknown, fmt.Errorf("unsupported WAV bit depth %d (want 16 or 32)", bitDepth)
	}
}

// ReadFrames reads up to maxFrames frames of raw interleaved PCM, returning
// the packed bytes and the number of frames actually read (0 at end of
// file).
func (r *Reader) ReadFrames(maxFrames int) ([]byte, int, error) {
	stride := int(r.fmt.Stride())
	buf := &goaudio.IntBuffer{
		Format: &goaudio.Format{NumChannels: int(r.fmt.Channels), SampleRate: int(r.fmt.Rate)},
		Data:   make([]int, maxFrames*int(r.fmt.Channels)),
	}
	n, err := r.decoder.PCMBuffer(buf)
	if err != nil {
		return nil, 0, fmt.Errorf("decode PCM: %w", err)
	}
	frames := n / int(r.fmt.Channels)
	if frames == 0 {
		return nil, 0, nil
	}
	out := make([]byte, frames*stride)
	packInts(out, buf.Data[:frames*int(r.fmt.Channels)], r.fmt.Encoding)
	return out, frames, nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	return r.file.Close()
}
