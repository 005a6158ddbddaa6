// Package bwf reads and writes the Broadcast Wave Format bext chunk of
// RIFF/WAVE files and converts between bext TimeReference sample counts
// and HH:MM:SS:FF timecode.
//
// Conversion comes in two flavours that are not interchangeable:
//
//   - FrameBased multiplies a frame count by a calibrated samples-per-frame
//     value and pairs with a truncating Decoder at the matching rate.
//   - SecondsBased multiplies elapsed seconds by a sample rate and pairs
//     with a rounding Decoder.
//
// A Preset keeps one such pairing together. DefaultPreset is the 23.976 fps
// frame-based pairing decoded at 48048 Hz.
//
// Files are processed as a stream of chunks:
//
//   - Walker reads chunks lazily without buffering payloads.
//   - ChunkWriter writes chunks and backpatches the RIFF size.
//   - InsertBroadcastExtension and PatchFile prepend a new bext chunk.
//   - Scan and ReadTimecode decode the fmt and bext chunks.
package bwf
