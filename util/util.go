package util

import "encoding/binary"

func Uint64ToBytes(i uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, i)
	return b
}

func BytesToUint64(b []byte) uint64 {
	return binary.BigEndian.Uint64(b)
}

func Uint32ToBytes(i uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, i)
	return b
}

func BytesToUint32(b []byte) uint32 {
	return binary.BigEndian.Uint32(b)
}

func Min[T int | int64 | uint32 | uint64](a, b T) T {
	if a < b {
		return a
	}
	return b
}

func Max[T int | int64 | uint32 | uint64](a, b T) T {
	if a > b {
		return a
	}
	return b
}
