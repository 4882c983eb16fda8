package commands

import (
	"strings"

	"github.com/goliatone/go-cms-sync/internal/logging"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

const commandModuleRoot = "cmssync.commands"

// CommandLogger returns the logger for a command group. Handlers of
// "cmssync.sync.*" messages use group "sync" and log under
// "cmssync.commands.sync".
func CommandLogger(provider interfaces.LoggerProvider, group string) interfaces.Logger {
	group = strings.Trim(strings.TrimSpace(group), ".")
	if group == "" {
		group = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+group)
	return logging.WithFields(logger, map[string]any{"command_group": group})
}
