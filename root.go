// Package macassets recovers game assets from classic Mac resource
// forks.
//
// A resource fork is a typed, indexed binary container attached to a
// classic-era file. Games of the period shipped their art and audio in
// it: tiled fill patterns ("ppat"), QuickDraw picture streams ("PICT"),
// and digitized sound ("snd "). This package parses the fork map and
// decodes those three resource kinds into plain pixel grids and PCM
// buffers; the subpackages hold the pieces (resource for the parsers and
// decoders, decompression for the PackBits codec, aifc for the
// compressed-audio container, render for palette and image conversion).
//
// Decoding is batch-oriented and per-resource isolated: one corrupt
// record never stops the rest of the fork.
package macassets

import (
	"image"

	"macassets/resource"
)

// A PatternAsset is a decoded ppat fill pattern.
type PatternAsset struct {
	ID    int16
	Name  string
	Image *image.Paletted
}

// A PictureAsset is a decoded PICT raster: *image.Paletted for indexed
// content, *image.RGBA for direct color.
type PictureAsset struct {
	ID    int16
	Name  string
	Image image.Image
}

// A SoundAsset is a decoded snd resource. For the PCM encodings the
// Sound payload goes straight to a PCM container writer; for MACE 3:1
// Container holds the AIFF-C bytes to hand an external transcoder.
type SoundAsset struct {
	ID        int16
	Name      string
	Sound     *resource.Sound
	Container []byte
}

// Assets collects everything decodable from one fork, each slice in
// ascending id order.
type Assets struct {
	Patterns []PatternAsset
	Pictures []PictureAsset
	Sounds   []SoundAsset
}

// A Failure records why a single resource could not be decoded.
type Failure struct {
	Type string
	ID   int16
	Err  error
}

func (f Failure) Error() string { return f.Type + ": " + f.Err.Error() }
