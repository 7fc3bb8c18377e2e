//go:build !linux

package memory

import "errors"

func systemTotal() (uint64, error) {
	return 0, errors.New("total memory unavailable on this platform; set memory.budget_mb")
}
