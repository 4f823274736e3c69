package gpu

import (
	"encoding/binary"
	"math"
)

// Float32sToBytes encodes values as little-endian IEEE 754, the layout
// kernels expect in device memory.
func Float32sToBytes(values []float32) []byte {
	out := make([]byte, 4*len(values))
	putFloat32s(out, values)
	return out
}

// BytesToFloat32s decodes little-endian float32 values. Trailing bytes that
// do not form a full value are ignored.
func BytesToFloat32s(data []byte) []float32 {
	out := make([]float32, len(data)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return out
}

func putFloat32s(dst []byte, values []float32) {
	for i, v := range values {
		binary.LittleEndian.PutUint32(dst[4*i:], math.Float32bits(v))
	}
}

// Float64ToFloat32 converts a slice of float64 to float32
func Float64ToFloat32(input []float64) []float32 {
	output := make([]float32, len(input))
	for i, v := range input {
		output[i] = float32(v)
	}
	return output
}

// Float32ToFloat64 converts a slice of float32 to float64
func Float32ToFloat64(input []float32) []float64 {
	output := make([]float64, len(input))
	for i, v := range input {
		output[i] = float64(v)
	}
	return output
}
