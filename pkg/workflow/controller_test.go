package workflow

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/helmcode/zeropatch/pkg/model"
	"github.com/helmcode/zeropatch/pkg/service"
)

const repo = "https://github.com/acme/app"

func sampleFindings() []model.FileAnalysis {
	return []model.FileAnalysis{
		{File: "a.py", Vulnerabilities: []model.Vulnerability{
			{Type: "SQLi", Description: "d", Severity: model.ParseSeverity("HIGH")},
		}},
		{File: "b.java", Vulnerabilities: []model.Vulnerability{
			{Type: "XSS", Description: "x", Severity: model.ParseSeverity("medium")},
		}},
	}
}

func samplePatches() []model.PatchResult {
	return []model.PatchResult{
		{
			File:        "a.py",
			PatchedCode: model.PatchedCode{Code: "cursor.execute(q, (x,))", Summary: "Parameterised query"},
			Vulnerabilities: []model.Vulnerability{
				{Type: "SQLi", Description: "d", Severity: model.ParseSeverity("HIGH")},
			},
		},
	}
}

func newController(t *testing.T) (*Controller, *MockService) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	c := New(svc)
	c.SetReference(repo)
	return c, svc
}

// analyzed drives c into the Analyzed phase.
func analyzed(t *testing.T, c *Controller, svc *MockService) {
	t.Helper()
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(sampleFindings(), nil)
	if err := c.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze returned %v", err)
	}
	if got := c.View().Phase; got != PhaseAnalyzed {
		t.Fatalf("Phase = %v, want analyzed", got)
	}
}

func TestController_InitialState(t *testing.T) {
	c := New(nil)
	v := c.View()

	if v.Phase != PhaseIdle {
		t.Errorf("Phase = %v, want idle", v.Phase)
	}
	if v.Busy || v.HasError() || v.Findings != nil || v.Patches != nil {
		t.Errorf("unexpected initial view: %+v", v)
	}
	if !v.CanAnalyze {
		t.Error("CanAnalyze should be true in idle")
	}
	if v.CanGeneratePatch {
		t.Error("CanGeneratePatch should be false in idle")
	}
	if c.SessionID() == "" {
		t.Error("SessionID is empty")
	}
}

func TestController_Analyze_Success(t *testing.T) {
	c, svc := newController(t)
	want := []model.FileAnalysis{
		{File: "a.py", Vulnerabilities: []model.Vulnerability{
			{Type: "SQLi", Description: "d", Severity: model.ParseSeverity("HIGH")},
		}},
	}
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(want, nil)

	if err := c.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze returned %v", err)
	}

	v := c.View()
	if v.Phase != PhaseAnalyzed {
		t.Errorf("Phase = %v, want analyzed", v.Phase)
	}
	if !reflect.DeepEqual(v.Findings, want) {
		t.Errorf("Findings = %+v, want %+v", v.Findings, want)
	}
	if sev := v.Findings[0].Vulnerabilities[0].Severity; sev.Level() != model.SeverityHigh || sev.Raw() != "HIGH" {
		t.Errorf("severity = %v/%q, want high/HIGH", sev.Level(), sev.Raw())
	}
	if v.Busy || v.HasError() {
		t.Errorf("unexpected view after success: %+v", v)
	}
	if !v.CanGeneratePatch {
		t.Error("CanGeneratePatch should be true after a successful analysis")
	}
}

func TestController_Analyze_EmptyResultsStillAnalyzed(t *testing.T) {
	c, svc := newController(t)
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(nil, nil)

	_ = c.Analyze(context.Background())

	v := c.View()
	if v.Phase != PhaseAnalyzed || v.Findings == nil {
		t.Errorf("expected analyzed with empty findings, got %+v", v)
	}
}

func TestController_Analyze_EntersAnalyzingSynchronously(t *testing.T) {
	c, svc := newController(t)
	svc.EXPECT().Analyze(gomock.Any(), repo).DoAndReturn(
		func(context.Context, string) ([]model.FileAnalysis, error) {
			v := c.View()
			if v.Phase != PhaseAnalyzing || !v.Busy {
				t.Errorf("during request: Phase = %v Busy = %v, want analyzing/busy", v.Phase, v.Busy)
			}
			if v.CanAnalyze || v.CanGeneratePatch {
				t.Errorf("actions should be disabled while busy: %+v", v)
			}
			return sampleFindings(), nil
		})

	_ = c.Analyze(context.Background())
}

func TestController_Analyze_Failures(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"status", &service.HTTPStatusError{StatusCode: 500}, "Server responded with status: 500"},
		{"content type", &service.ContentTypeError{ContentType: "text/html"}, "Server did not return JSON response"},
		{"schema", &service.SchemaError{}, "Invalid format from server"},
		{"transport", &service.TransportError{Err: errors.New("dial tcp: connection refused")}, "dial tcp: connection refused"},
		{"empty message", errors.New(""), service.FallbackMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, svc := newController(t)
			svc.EXPECT().Analyze(gomock.Any(), repo).Return(nil, tt.err)

			if err := c.Analyze(context.Background()); err != nil {
				t.Fatalf("service failures must not escape Analyze, got %v", err)
			}

			v := c.View()
			if v.Phase != PhaseAnalysisFailed {
				t.Errorf("Phase = %v, want analysis-failed", v.Phase)
			}
			if v.LastError != tt.want {
				t.Errorf("LastError = %q, want %q", v.LastError, tt.want)
			}
			if v.Findings != nil || v.Patches != nil {
				t.Errorf("results should be absent after failure: %+v", v)
			}
			if v.Busy || !v.CanAnalyze || v.CanGeneratePatch {
				t.Errorf("unexpected affordances after failure: %+v", v)
			}
		})
	}
}

func TestController_Analyze_FailureClearsStaleFindings(t *testing.T) {
	c, svc := newController(t)
	analyzed(t, c, svc)

	svc.EXPECT().Analyze(gomock.Any(), repo).Return(nil, &service.HTTPStatusError{StatusCode: 503})
	_ = c.Analyze(context.Background())

	v := c.View()
	if v.Findings != nil {
		t.Errorf("stale findings shown after failed analysis: %+v", v.Findings)
	}
	if v.CanGeneratePatch {
		t.Error("CanGeneratePatch should be false after a failed analysis")
	}
}

func TestController_Analyze_SuccessClearsError(t *testing.T) {
	c, svc := newController(t)
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(nil, &service.HTTPStatusError{StatusCode: 500})
	_ = c.Analyze(context.Background())

	svc.EXPECT().Analyze(gomock.Any(), repo).Return(sampleFindings(), nil)
	_ = c.Analyze(context.Background())

	if v := c.View(); v.HasError() {
		t.Errorf("LastError = %q, want cleared", v.LastError)
	}
}

func TestController_Analyze_Idempotent(t *testing.T) {
	c, svc := newController(t)
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(sampleFindings(), nil).Times(2)

	_ = c.Analyze(context.Background())
	first := c.View().Findings
	_ = c.Analyze(context.Background())
	second := c.View().Findings

	if !reflect.DeepEqual(first, second) {
		t.Errorf("findings differ between identical runs:\n%+v\n%+v", first, second)
	}
	if first[0].File != "a.py" || first[1].File != "b.java" {
		t.Errorf("order not preserved: %+v", first)
	}
}

func TestController_Analyze_ForwardsEmptyReference(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	c := New(svc)
	svc.EXPECT().Analyze(gomock.Any(), "").Return(nil, &service.HTTPStatusError{StatusCode: 400})

	if err := c.Analyze(context.Background()); err != nil {
		t.Fatalf("Analyze returned %v", err)
	}
	if got := c.View().LastError; got != "Server responded with status: 400" {
		t.Errorf("LastError = %q", got)
	}
}

func TestController_GeneratePatch_RejectedBeforeAnalysis(t *testing.T) {
	c, _ := newController(t)

	if v := c.View(); v.CanGeneratePatch {
		t.Fatal("CanGeneratePatch should be false in idle")
	}
	if err := c.GeneratePatch(context.Background()); !errors.Is(err, ErrNotAnalyzed) {
		t.Errorf("GeneratePatch err = %v, want ErrNotAnalyzed", err)
	}
	if got := c.View().Phase; got != PhaseIdle {
		t.Errorf("Phase = %v, want idle (rejection must not transition)", got)
	}
}

func TestController_GeneratePatch_RejectedAfterFailedAnalysis(t *testing.T) {
	c, svc := newController(t)
	svc.EXPECT().Analyze(gomock.Any(), repo).Return(nil, &service.SchemaError{})
	_ = c.Analyze(context.Background())

	if err := c.GeneratePatch(context.Background()); !errors.Is(err, ErrNotAnalyzed) {
		t.Errorf("GeneratePatch err = %v, want ErrNotAnalyzed", err)
	}
	if got := c.View().LastError; got != "Invalid format from server" {
		t.Errorf("rejected call should leave LastError untouched, got %q", got)
	}
}

func TestController_GeneratePatch_Success(t *testing.T) {
	c, svc := newController(t)
	analyzed(t, c, svc)

	svc.EXPECT().GeneratePatch(gomock.Any(), repo).DoAndReturn(
		func(context.Context, string) ([]model.PatchResult, error) {
			v := c.View()
			if v.Phase != PhasePatching || !v.Busy {
				t.Errorf("during request: Phase = %v, want patching", v.Phase)
			}
			if !reflect.DeepEqual(v.Findings, sampleFindings()) {
				t.Error("findings should stay visible while patching")
			}
			return samplePatches(), nil
		})

	if err := c.GeneratePatch(context.Background()); err != nil {
		t.Fatalf("GeneratePatch returned %v", err)
	}

	v := c.View()
	if v.Phase != PhasePatched {
		t.Errorf("Phase = %v, want patched", v.Phase)
	}
	if !reflect.DeepEqual(v.Patches, samplePatches()) {
		t.Errorf("Patches = %+v", v.Patches)
	}
	if !reflect.DeepEqual(v.Findings, sampleFindings()) {
		t.Errorf("Findings changed after patching: %+v", v.Findings)
	}
	if !v.CanGeneratePatch {
		t.Error("patching again should stay available")
	}
}

func TestController_GeneratePatch_FailureKeepsFindings(t *testing.T) {
	c, svc := newController(t)
	analyzed(t, c, svc)

	svc.EXPECT().GeneratePatch(gomock.Any(), repo).Return(samplePatches(), nil)
	_ = c.GeneratePatch(context.Background())

	svc.EXPECT().GeneratePatch(gomock.Any(), repo).Return(nil, &service.HTTPStatusError{StatusCode: 500})
	if err := c.GeneratePatch(context.Background()); err != nil {
		t.Fatalf("service failures must not escape GeneratePatch, got %v", err)
	}

	v := c.View()
	if v.Phase != PhasePatchFailed {
		t.Errorf("Phase = %v, want patch-failed", v.Phase)
	}
	if v.LastError != "Server responded with status: 500" {
		t.Errorf("LastError = %q", v.LastError)
	}
	if v.Patches != nil {
		t.Errorf("Patches should be cleared, got %+v", v.Patches)
	}
	if !reflect.DeepEqual(v.Findings, sampleFindings()) {
		t.Error("a failed patch must not invalidate the analysis")
	}

	// Retrying from PatchFailed is allowed and clears the error.
	svc.EXPECT().GeneratePatch(gomock.Any(), repo).Return(samplePatches(), nil)
	if err := c.GeneratePatch(context.Background()); err != nil {
		t.Fatalf("retry returned %v", err)
	}
	if v := c.View(); v.Phase != PhasePatched || v.HasError() {
		t.Errorf("retry did not reach patched cleanly: %+v", v)
	}
}

func TestController_ReanalyzeClearsPatches(t *testing.T) {
	for _, fail := range []bool{false, true} {
		name := "success"
		if fail {
			name = "failure"
		}
		t.Run(name, func(t *testing.T) {
			c, svc := newController(t)
			analyzed(t, c, svc)
			svc.EXPECT().GeneratePatch(gomock.Any(), repo).Return(samplePatches(), nil)
			_ = c.GeneratePatch(context.Background())

			call := svc.EXPECT().Analyze(gomock.Any(), repo)
			call.DoAndReturn(func(context.Context, string) ([]model.FileAnalysis, error) {
				if p := c.View().Patches; p != nil {
					t.Errorf("patches still visible during re-analysis: %+v", p)
				}
				if fail {
					return nil, &service.HTTPStatusError{StatusCode: 500}
				}
				return sampleFindings(), nil
			})
			_ = c.Analyze(context.Background())

			if p := c.View().Patches; p != nil {
				t.Errorf("Patches = %+v, want absent", p)
			}
		})
	}
}

func TestController_RejectsReentrantCalls(t *testing.T) {
	c, svc := newController(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	svc.EXPECT().Analyze(gomock.Any(), repo).DoAndReturn(
		func(context.Context, string) ([]model.FileAnalysis, error) {
			close(entered)
			<-release
			return sampleFindings(), nil
		})

	done := make(chan error, 1)
	go func() { done <- c.Analyze(context.Background()) }()
	<-entered

	if err := c.Analyze(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("second Analyze err = %v, want ErrBusy", err)
	}
	if err := c.GeneratePatch(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("GeneratePatch while analyzing err = %v, want ErrBusy", err)
	}

	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first Analyze returned %v", err)
	}
	if v := c.View(); v.Busy || v.Phase != PhaseAnalyzed {
		t.Errorf("unexpected view after release: %+v", v)
	}
}

func TestController_CloseDiscardsInFlightResult(t *testing.T) {
	c, svc := newController(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	svc.EXPECT().Analyze(gomock.Any(), repo).DoAndReturn(
		func(context.Context, string) ([]model.FileAnalysis, error) {
			close(entered)
			<-release
			return sampleFindings(), nil
		})

	var notified []Phase
	c.Subscribe(func(v View) { notified = append(notified, v.Phase) })

	done := make(chan error, 1)
	go func() { done <- c.Analyze(context.Background()) }()
	<-entered

	c.Close()
	close(release)

	if err := <-done; !errors.Is(err, ErrClosed) {
		t.Errorf("Analyze err = %v, want ErrClosed", err)
	}
	if v := c.View(); v.Findings != nil {
		t.Errorf("result applied to closed session: %+v", v.Findings)
	}
	if len(notified) != 1 || notified[0] != PhaseAnalyzing {
		t.Errorf("notifications = %v, want only [analyzing]", notified)
	}

	if err := c.Analyze(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Analyze after Close err = %v, want ErrClosed", err)
	}
	if v := c.View(); v.CanAnalyze || v.CanGeneratePatch {
		t.Errorf("closed session should expose no actions: %+v", v)
	}
}

func TestController_Subscribe(t *testing.T) {
	c, svc := newController(t)

	var phases []Phase
	unsubscribe := c.Subscribe(func(v View) { phases = append(phases, v.Phase) })

	analyzed(t, c, svc)
	want := []Phase{PhaseAnalyzing, PhaseAnalyzed}
	if !reflect.DeepEqual(phases, want) {
		t.Errorf("phases = %v, want %v", phases, want)
	}

	unsubscribe()
	svc.EXPECT().GeneratePatch(gomock.Any(), repo).Return(samplePatches(), nil)
	_ = c.GeneratePatch(context.Background())
	if len(phases) != 2 {
		t.Errorf("listener called after unsubscribe: %v", phases)
	}
}

func TestController_SetReferenceUsedByBothOperations(t *testing.T) {
	c, svc := newController(t)
	analyzed(t, c, svc)

	c.SetReference("https://github.com/acme/other")
	svc.EXPECT().GeneratePatch(gomock.Any(), "https://github.com/acme/other").Return(samplePatches(), nil)
	_ = c.GeneratePatch(context.Background())

	if got := c.Reference(); got != "https://github.com/acme/other" {
		t.Errorf("Reference = %q", got)
	}
}

// TestController_PatchesNeverWithoutFindings walks random operation sequences
// and checks the invariant after every step.
func TestController_PatchesNeverWithoutFindings(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := NewMockService(ctrl)
	rng := rand.New(rand.NewSource(42))

	svc.EXPECT().Analyze(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(context.Context, string) ([]model.FileAnalysis, error) {
			if rng.Intn(3) == 0 {
				return nil, &service.HTTPStatusError{StatusCode: 500}
			}
			return sampleFindings(), nil
		})
	svc.EXPECT().GeneratePatch(gomock.Any(), gomock.Any()).AnyTimes().DoAndReturn(
		func(context.Context, string) ([]model.PatchResult, error) {
			if rng.Intn(3) == 0 {
				return nil, &service.SchemaError{}
			}
			return samplePatches(), nil
		})

	c := New(svc)
	for i := 0; i < 500; i++ {
		var err error
		if rng.Intn(2) == 0 {
			err = c.Analyze(context.Background())
		} else {
			err = c.GeneratePatch(context.Background())
		}
		if err != nil && !errors.Is(err, ErrNotAnalyzed) {
			t.Fatalf("step %d: unexpected error %v", i, err)
		}

		v := c.View()
		if v.Patches != nil && v.Findings == nil {
			t.Fatalf("step %d: patches without findings in phase %v", i, v.Phase)
		}
		if v.Busy {
			t.Fatalf("step %d: left busy in phase %v", i, v.Phase)
		}
		if v.HasError() && (v.Phase == PhaseAnalyzed || v.Phase == PhasePatched) {
			t.Fatalf("step %d: error %q alongside success phase %v", i, v.LastError, v.Phase)
		}
	}
}

func TestPhase_String(t *testing.T) {
	if PhasePatchFailed.String() != "patch-failed" {
		t.Errorf("String() = %s", PhasePatchFailed.String())
	}
	if Phase(99).String() != "unknown" {
		t.Errorf("String() = %s", Phase(99).String())
	}
}
