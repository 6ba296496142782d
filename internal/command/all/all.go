// Package all registers every bvault command.
package all

import (
	_ "github.com/keshon/bvault/internal/command/help"
	_ "github.com/keshon/bvault/internal/command/init"
	_ "github.com/keshon/bvault/internal/command/list"
	_ "github.com/keshon/bvault/internal/command/rebuild"
	_ "github.com/keshon/bvault/internal/command/restore"
	_ "github.com/keshon/bvault/internal/command/scan"
	_ "github.com/keshon/bvault/internal/command/verify"
)
