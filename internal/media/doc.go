// Package media reads capture metadata embedded in the media files
// themselves: EXIF for stills and container tags (via ffprobe) for video
// and motion components.
package media
