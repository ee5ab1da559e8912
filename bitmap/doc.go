// Package bitmap provides a packed bit array over a fixed index range with
// single-bit set/clear/test and bidirectional search for set bits and runs
// of consecutive set bits.
//
// # Overview
//
// CompactBitmap is the primitive the partition and freeset packages build
// on: region membership is represented as a bit per region index, and
// humongous (multi-region) allocation is a search for a run of N
// consecutive set bits.
//
// # Word layout
//
// Bits are packed into a []uint word array, machine-word width (bits.UintSize).
// Bits at or above Len() within the last word are always zero.
//
// # Search operations
//
//   - FindNextSet / FindPrevSet: single-bit search, forward and backward.
//   - FindNextRun / FindPrevRun: run-of-k search, forward and backward,
//     using a word-at-a-time probe-and-advance algorithm that skips past
//     runs of trailing/leading ones that cannot possibly start a match.
//
// # Bounds
//
// Every index-taking method requires 0 <= i < Len() and panics otherwise;
// CompactBitmap performs no bounds-checking beyond what that panic gives
// for free, consistent with an O(1) contract.
package bitmap
