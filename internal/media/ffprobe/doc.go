// Package ffprobe runs ffprobe against a video file and decodes the subset
// of its JSON report needed for capture metadata: container duration,
// frame dimensions, and the creation_time and location tags phones write.
package ffprobe
