// Package stego hides a byte payload in the least significant bit of the red,
// green and blue channels of an image.
//
// Layout of the embedded frame, written MSB first, one bit per channel, pixels
// in row-major order, alpha never touched:
//
//	[32-bit big-endian payload length][payload bytes][32-bit big-endian CRC-32 (IEEE) of payload]
package stego
