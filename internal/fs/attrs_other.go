//go:build !linux && !darwin

package fs

import "os"

func sysAttrs(os.FileInfo) (Attrs, bool) { return Attrs{}, false }
