// Package classify maps archive entries to media, sidecar, or ignorable by
// extension and exporter naming conventions.
//
// Classification is a pure table lookup: it never touches the filesystem and
// never fails. Unknown extensions are ignorable. JSON files are sidecars unless
// they are known exporter bookkeeping files; album description files
// (metadata.json and its localised names) are sidecars that IsAlbumMetadata
// singles out for album title resolution.
package classify
