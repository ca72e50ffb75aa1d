package common

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// SliceToBytes converts any slice to a byte slice for GPU buffer uploads.
// Uses unsafe pointer operations to create a view into the original data.
// WARNING: The returned slice shares memory with the input - do not modify.
//
// Parameters:
//   - data: source slice of any type
//
// Returns:
//   - []byte: byte slice view of the input data, or nil if input is empty
func SliceToBytes[T any](data []T) []byte {
	if len(data) == 0 {
		return nil
	}
	var zero T
	size := unsafe.Sizeof(zero)
	totalBytes := int(size) * len(data)
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), totalBytes)
}

// PutFloat32 writes a little-endian float32 at buf[0:4].
func PutFloat32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(v))
}

// PutVec4 writes the four components of v as little-endian float32 values
// into buf[0:16].
//
// Parameters:
//   - buf: destination slice (must be at least 16 bytes)
//   - v: the vector to write
func PutVec4(buf []byte, v mgl32.Vec4) {
	for i := range 4 {
		PutFloat32(buf[i*4:], v[i])
	}
}

// PutMat4 writes a column-major 4x4 matrix as sixteen little-endian float32
// values into buf[0:64]. mgl32 matrices are already column-major, which is
// what WGSL mat4x4<f32> expects.
//
// Parameters:
//   - buf: destination slice (must be at least 64 bytes)
//   - m: the matrix to write
func PutMat4(buf []byte, m mgl32.Mat4) {
	for i := range 16 {
		PutFloat32(buf[i*4:], m[i])
	}
}

// NegateRow negates every element of the given row of m in place.
//
// Parameters:
//   - m: the matrix to modify
//   - row: the row index (0-3)
func NegateRow(m *mgl32.Mat4, row int) {
	for col := range 4 {
		m.Set(row, col, -m.At(row, col))
	}
}

// NegateCol negates every element of the given column of m in place.
//
// Parameters:
//   - m: the matrix to modify
//   - col: the column index (0-3)
func NegateCol(m *mgl32.Mat4, col int) {
	for row := range 4 {
		m.Set(row, col, -m.At(row, col))
	}
}

// TextureScaleBias returns the matrix remapping clip-space x, y and z from
// [-1, 1] to [0, 1].
func TextureScaleBias() mgl32.Mat4 {
	m := mgl32.Ident4()
	m.Set(0, 0, 0.5)
	m.Set(1, 1, 0.5)
	m.Set(2, 2, 0.5)
	m.Set(0, 3, 0.5)
	m.Set(1, 3, 0.5)
	m.Set(2, 3, 0.5)
	return m
}

// CeilDiv returns ceil(a / b) for positive integers.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Saturate clamps v to [0, 1].
func Saturate(v float32) float32 {
	return mgl32.Clamp(v, 0, 1)
}

// CosHalfAngleDeg returns cos(deg / 2) for a full cone angle in degrees.
func CosHalfAngleDeg(deg float32) float32 {
	return float32(math.Cos(float64(mgl32.DegToRad(0.5 * deg))))
}
