package synccmd

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	syncMessageType             = "cmssync.sync.run"
	validateMappingsMessageType = "cmssync.mappings.validate"

	maxRunNameLength = 120
)

// SyncCommand starts a migration run.
type SyncCommand struct {
	// RootPath limits the run to source items at or below the path.
	RootPath string `json:"root_path,omitempty"`
	// CreateMissing creates absent destination items and their ancestors.
	CreateMissing bool `json:"create_missing,omitempty"`
	// SyncComponents mirrors rich-text datasources under each target.
	SyncComponents bool `json:"sync_components,omitempty"`
	// RunName labels the stored run report.
	RunName string `json:"run_name,omitempty"`
	// FailOnItemErrors turns a run with failed items into a command error.
	FailOnItemErrors bool `json:"fail_on_item_errors,omitempty"`
}

// Type implements command.Message.
func (SyncCommand) Type() string { return syncMessageType }

// Validate checks the optional root path and run name.
func (cmd SyncCommand) Validate() error {
	return validation.ValidateStruct(&cmd,
		validation.Field(&cmd.RootPath, validation.By(func(value any) error {
			root := strings.TrimSpace(value.(string))
			if root != "" && !strings.HasPrefix(root, "/") {
				return validation.NewError("cmssync.sync.root_path_relative", "root path must start with '/'")
			}
			return nil
		})),
		validation.Field(&cmd.RunName, validation.Length(0, maxRunNameLength)),
	)
}

// ValidateMappingsCommand loads the mapping table and reports what the index
// keeps and drops.
type ValidateMappingsCommand struct {
	// Strict fails the command when rows are blank or duplicated.
	Strict bool `json:"strict,omitempty"`
}

// Type implements command.Message.
func (ValidateMappingsCommand) Type() string { return validateMappingsMessageType }

// Validate implements command.Message validation; the command has no required input.
func (ValidateMappingsCommand) Validate() error { return nil }
