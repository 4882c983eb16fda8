package synccmd

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goliatone/go-cms-sync/internal/mapping"
	"github.com/goliatone/go-cms-sync/pkg/interfaces"
)

type stubRunner struct {
	requests []interfaces.SyncRequest
	report   interfaces.SyncReport
	err      error
}

func (s *stubRunner) Run(_ context.Context, req interfaces.SyncRequest) (interfaces.SyncReport, error) {
	s.requests = append(s.requests, req)
	return s.report, s.err
}

type stubValidator struct {
	stats mapping.BuildStats
	err   error
}

func (s stubValidator) ValidateMappings(context.Context) (mapping.BuildStats, error) {
	return s.stats, s.err
}

func TestSyncCommandValidate(t *testing.T) {
	cases := []struct {
		name    string
		cmd     SyncCommand
		wantErr bool
	}{
		{name: "empty", cmd: SyncCommand{}},
		{name: "absolute root", cmd: SyncCommand{RootPath: "/health-library"}},
		{name: "relative root", cmd: SyncCommand{RootPath: "health-library"}, wantErr: true},
		{name: "long run name", cmd: SyncCommand{RunName: strings.Repeat("x", maxRunNameLength+1)}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cmd.Validate()
			if tc.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestSyncHandlerForwardsOptions(t *testing.T) {
	runner := &stubRunner{report: interfaces.SyncReport{
		RunKey:  "nightly-20240314-150926",
		Summary: interfaces.SyncSummary{Total: 3, Succeeded: 3},
	}}
	var got interfaces.SyncReport
	handler := NewSyncHandler(runner, nil, func(report interfaces.SyncReport) { got = report })

	err := handler.Execute(context.Background(), SyncCommand{
		RootPath:       "/health-library",
		CreateMissing:  true,
		SyncComponents: true,
		RunName:        "nightly",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if len(runner.requests) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.requests))
	}
	req := runner.requests[0]
	if req.RootPath != "/health-library" || req.RunName != "nightly" {
		t.Fatalf("unexpected request %+v", req)
	}
	if !req.Options.CreateMissing || !req.Options.SyncComponents {
		t.Fatalf("expected options forwarded, got %+v", req.Options)
	}
	if got.RunKey != "nightly-20240314-150926" {
		t.Fatalf("expected report delivered, got %+v", got)
	}
}

func TestSyncHandlerFailOnItemErrors(t *testing.T) {
	runner := &stubRunner{report: interfaces.SyncReport{Summary: interfaces.SyncSummary{Total: 4, Succeeded: 3, Failed: 1}}}
	handler := NewSyncHandler(runner, nil, nil)

	if err := handler.Execute(context.Background(), SyncCommand{}); err != nil {
		t.Fatalf("failed items should not fail the command by default: %v", err)
	}
	err := handler.Execute(context.Background(), SyncCommand{FailOnItemErrors: true})
	if !errors.Is(err, ErrItemsFailed) {
		t.Fatalf("expected ErrItemsFailed, got %v", err)
	}
}

func TestSyncHandlerReportsPartialRunOnError(t *testing.T) {
	runner := &stubRunner{
		report: interfaces.SyncReport{Summary: interfaces.SyncSummary{Total: 5, Succeeded: 5}},
		err:    context.Canceled,
	}
	var delivered bool
	handler := NewSyncHandler(runner, nil, func(report interfaces.SyncReport) {
		delivered = report.Summary.Total == 5
	})

	err := handler.Execute(context.Background(), SyncCommand{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !delivered {
		t.Fatalf("expected partial report to be delivered")
	}
}

func TestSyncHandlerRejectsInvalidCommand(t *testing.T) {
	runner := &stubRunner{}
	handler := NewSyncHandler(runner, nil, nil)
	if err := handler.Execute(context.Background(), SyncCommand{RootPath: "relative"}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(runner.requests) != 0 {
		t.Fatalf("runner should not be called for invalid commands")
	}
}

func TestValidateMappingsHandler(t *testing.T) {
	stats := mapping.BuildStats{Input: 5, Kept: 3, Blank: 1, Duplicates: 1, DuplicateSources: []string{"/a"}}

	var got mapping.BuildStats
	handler := NewValidateMappingsHandler(stubValidator{stats: stats}, nil, func(s mapping.BuildStats) { got = s })
	if err := handler.Execute(context.Background(), ValidateMappingsCommand{}); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got.Kept != 3 || got.Duplicates != 1 {
		t.Fatalf("unexpected stats %+v", got)
	}

	err := handler.Execute(context.Background(), ValidateMappingsCommand{Strict: true})
	if !errors.Is(err, ErrMappingsRejected) {
		t.Fatalf("expected ErrMappingsRejected, got %v", err)
	}

	clean := NewValidateMappingsHandler(stubValidator{stats: mapping.BuildStats{Input: 2, Kept: 2}}, nil, nil)
	if err := clean.Execute(context.Background(), ValidateMappingsCommand{Strict: true}); err != nil {
		t.Fatalf("clean table should pass strict validation: %v", err)
	}
}

func TestValidateMappingsHandlerPropagatesLoadErrors(t *testing.T) {
	loadErr := errors.New("mapping file missing")
	handler := NewValidateMappingsHandler(stubValidator{err: loadErr}, nil, nil)
	err := handler.Execute(context.Background(), ValidateMappingsCommand{})
	if !errors.Is(err, loadErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}
