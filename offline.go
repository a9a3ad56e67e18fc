package synthigme

import (
	"encoding/binary"
	"math"

	"github.com/mesjetiu/synthigme-go/internal/patch"
)

// RenderPatch renders a patch document offline into interleaved stereo
// float32 samples. A nil document renders the default panel state,
// which is silent until the document patches connections.
func RenderPatch(doc *patch.Document, sampleRate int, seconds float64) ([]float32, error) {
	engine, err := NewEngine(sampleRate, DefaultParams())
	if err != nil {
		return nil, err
	}
	if doc != nil {
		if err := engine.LoadPatch(doc); err != nil {
			return nil, err
		}
	}
	frames := int(float64(sampleRate) * seconds)
	out := make([]float32, frames*2)
	engine.Process(out)
	return out, nil
}

// EncodeWAVFloat32LE wraps interleaved float32 samples in a WAV
// container (format 3, IEEE float).
func EncodeWAVFloat32LE(samples []float32, sampleRate int, channels int) []byte {
	dataSize := len(samples) * 4
	byteRate := sampleRate * channels * 4
	blockAlign := channels * 4
	chunkSize := 36 + dataSize
	out := make([]byte, 44+dataSize)
	copy(out[0:], []byte("RIFF"))
	binary.LittleEndian.PutUint32(out[4:], uint32(chunkSize))
	copy(out[8:], []byte("WAVE"))
	copy(out[12:], []byte("fmt "))
	binary.LittleEndian.PutUint32(out[16:], 16)
	binary.LittleEndian.PutUint16(out[20:], 3)
	binary.LittleEndian.PutUint16(out[22:], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(out[28:], uint32(byteRate))
	binary.LittleEndian.PutUint16(out[32:], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:], 32)
	copy(out[36:], []byte("data"))
	binary.LittleEndian.PutUint32(out[40:], uint32(dataSize))
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[44+i*4:], math.Float32bits(s))
	}
	return out
}
