// Package textutil sanitizes album labels and file names for use as
// library path segments.
package textutil
