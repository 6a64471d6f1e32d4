package audio

import (
	"encoding/binary"

	"github.com/linuxmatters/audioconvertnode/internal/format"
)

// packInts writes go-audio integer PCM samples into an interleaved raw
// byte buffer at enc's storage width.
func packInts(dst []byte, samples []int, enc format.Encoding) {
	switch enc {
	case format.EncodingS16LE:
		for i, s := range samples {
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(int16(s)))
		}
	case format.EncodingS32LE:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(dst[i*4:], uint32(int32(s)))
		}
	}
}

// unpackInts reads an interleaved raw byte buffer at enc's storage width
// into go-audio integer PCM samples.
func unpackInts(dst []int, src []byte, enc format.Encoding) {
	switch enc {
	case format.EncodingS16LE:
		for i := range dst {
			dst[i] = int(int16(binary.LittleEndian.Uint16(src[i*2:])))
		}
	case format.EncodingS32LE:
		for i := range dst {
			dst[i] = int(int32(binary.LittleEndian.Uint32(src[i*4:])))
		}
	}
}
