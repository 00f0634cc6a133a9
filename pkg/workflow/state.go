package workflow

import "github.com/helmcode/zeropatch/pkg/model"

// Phase is the controller's position in the analyze/patch machine.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnalyzing
	PhaseAnalyzed
	PhaseAnalysisFailed
	PhasePatching
	PhasePatched
	PhasePatchFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseAnalyzed:
		return "analyzed"
	case PhaseAnalysisFailed:
		return "analysis-failed"
	case PhasePatching:
		return "patching"
	case PhasePatched:
		return "patched"
	case PhasePatchFailed:
		return "patch-failed"
	default:
		return "unknown"
	}
}

// Busy reports whether a service call is in flight in this phase.
func (p Phase) Busy() bool {
	return p == PhaseAnalyzing || p == PhasePatching
}

// State is one of Idle, Analyzing, Analyzed, AnalysisFailed, Patching, Patched
// or PatchFailed. Patches only exist next to the findings they were generated for.
type State interface {
	Phase() Phase
	sealed()
}

type Idle struct{}

type Analyzing struct{}

type Analyzed struct {
	Findings []model.FileAnalysis
}

type AnalysisFailed struct {
	Err string
}

type Patching struct {
	Findings []model.FileAnalysis
}

type Patched struct {
	Findings []model.FileAnalysis
	Patches  []model.PatchResult
}

type PatchFailed struct {
	Findings []model.FileAnalysis
	Err      string
}

func (Idle) Phase() Phase           { return PhaseIdle }
func (Analyzing) Phase() Phase      { return PhaseAnalyzing }
func (Analyzed) Phase() Phase       { return PhaseAnalyzed }
func (AnalysisFailed) Phase() Phase { return PhaseAnalysisFailed }
func (Patching) Phase() Phase       { return PhasePatching }
func (Patched) Phase() Phase        { return PhasePatched }
func (PatchFailed) Phase() Phase    { return PhasePatchFailed }

func (Idle) sealed()           {}
func (Analyzing) sealed()      {}
func (Analyzed) sealed()       {}
func (AnalysisFailed) sealed() {}
func (Patching) sealed()       {}
func (Patched) sealed()        {}
func (PatchFailed) sealed()    {}

// findingsOf returns the findings carried by s, or nil when s has none.
func findingsOf(s State) []model.FileAnalysis {
	switch st := s.(type) {
	case Analyzed:
		return st.Findings
	case Patching:
		return st.Findings
	case Patched:
		return st.Findings
	case PatchFailed:
		return st.Findings
	default:
		return nil
	}
}

// View is the flattened snapshot a presentation layer renders.
// A nil Findings or Patches slice means absent.
type View struct {
	Reference        string
	Phase            Phase
	Busy             bool
	LastError        string
	Findings         []model.FileAnalysis
	Patches          []model.PatchResult
	CanAnalyze       bool
	CanGeneratePatch bool
}

// HasError reports whether the last operation failed.
func (v View) HasError() bool {
	return v.LastError != ""
}

func viewOf(ref string, s State, closed bool) View {
	v := View{
		Reference: ref,
		Phase:     s.Phase(),
		Busy:      s.Phase().Busy(),
		Findings:  findingsOf(s),
	}
	switch st := s.(type) {
	case AnalysisFailed:
		v.LastError = st.Err
	case Patched:
		v.Patches = st.Patches
	case PatchFailed:
		v.LastError = st.Err
	}
	v.CanAnalyze = !closed && !v.Busy
	v.CanGeneratePatch = !closed && canPatchFrom(s)
	return v
}

func canPatchFrom(s State) bool {
	switch s.(type) {
	case Analyzed, Patched, PatchFailed:
		return true
	default:
		return false
	}
}
