// Package hash computes the CRC32-Castagnoli checksums sent with index
// uploads so object stores can reject corrupted bodies.
//
//	input.ChecksumCRC32C = aws.String(hash.UploadChecksum(blob))
package hash
