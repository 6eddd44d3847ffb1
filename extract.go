package macassets

import (
	"errors"
	"strconv"

	"macassets/aifc"
	"macassets/resource"
)

// segmentNameList is the string-list resource that names the sound
// segments, in the same order the snd records appear in the fork.
const segmentNameList = 128

// Decode parses a raw fork (or AppleDouble file) and decodes every
// supported resource in it. The error is non-nil only when the fork map
// itself cannot be read; individual resource problems come back as
// Failures.
func Decode(data []byte) (*Assets, []Failure, error) {
	fork, err := resource.ParseFork(data)
	if err != nil {
		return nil, nil, err
	}
	assets, failures := DecodeFork(fork)
	return assets, failures, nil
}

// DecodeFork decodes every ppat, PICT and snd record in fork. Each
// resource is decoded independently; a bad record lands in the returned
// failures and the rest proceed.
func DecodeFork(fork *resource.Fork) (*Assets, []Failure) {
	var assets Assets
	var failures []Failure

	for _, rec := range listEither(fork, "ppat", "PPAT") {
		img, err := resource.DecodePattern(rec.Data)
		if err != nil {
			failures = append(failures, Failure{rec.Type, rec.ID, err})
			continue
		}
		assets.Patterns = append(assets.Patterns, PatternAsset{rec.ID, rec.Name, img})
	}

	for _, rec := range listEither(fork, "PICT", "pict") {
		img, err := resource.DecodePicture(rec.Data)
		if err != nil {
			if errors.Is(err, resource.ErrNoRaster) {
				continue
			}
			failures = append(failures, Failure{rec.Type, rec.ID, err})
			continue
		}
		assets.Pictures = append(assets.Pictures, PictureAsset{rec.ID, rec.Name, img})
	}

	names := segmentNames(fork)
	for i, rec := range fork.List("snd ") {
		snd, err := resource.ParseSound(rec.Data)
		if err != nil {
			failures = append(failures, Failure{rec.Type, rec.ID, err})
			continue
		}
		asset := SoundAsset{
			ID:    rec.ID,
			Name:  soundName(rec, names, i),
			Sound: snd,
		}
		if snd.Encoding == resource.SoundCompressedMACE3 {
			asset.Container = aifc.Build(snd.Payload, snd.SampleRate, snd.Frames)
		}
		assets.Sounds = append(assets.Sounds, asset)
	}

	return &assets, failures
}

// listEither returns the records under primary, or under alt when the
// fork uses the other case for the type code.
func listEither(fork *resource.Fork, primary, alt string) []resource.Record {
	if recs := fork.List(primary); len(recs) != 0 {
		return recs
	}
	return fork.List(alt)
}

// segmentNames reads the STR# 128 name list if the fork carries one.
// Repeated entries collapse to their first occurrence so the list lines
// up positionally with the snd records.
func segmentNames(fork *resource.Fork) []string {
	rec, ok := fork.Get("STR#", segmentNameList)
	if !ok {
		return nil
	}
	names, err := resource.ParseStringList(rec.Data)
	if err != nil {
		return nil
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// soundName picks a name for the i'th snd record: the resource's own
// name, then the matching string-list entry, then a synthetic one from
// the id.
func soundName(rec resource.Record, names []string, i int) string {
	if rec.Name != "" {
		return rec.Name
	}
	if i < len(names) && names[i] != "" {
		return names[i]
	}
	return "segment_" + strconv.Itoa(int(rec.ID))
}
