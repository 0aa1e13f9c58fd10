package agent

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/martinemde/codehelper/llm"
)

// Analysis types accepted by analyze_code.
const (
	AnalysisGeneral       = "general"
	AnalysisPerformance   = "performance"
	AnalysisSecurity      = "security"
	AnalysisBestPractices = "best-practices"
)

const analysisSummaryRunes = 500

// Analysis is the structured review of one file.
type Analysis struct {
	Summary         string        `json:"summary"`
	Issues          []interface{} `json:"issues"`
	Recommendations []interface{} `json:"recommendations"`
	Architecture    interface{}   `json:"architecture"`
}

// Analyzer asks the model to review a file and parses its JSON reply.
type Analyzer struct {
	model   Model
	files   FileAccessor
	opts    Options
	emitter *EventEmitter
}

// NewAnalyzer creates an analyzer. emitter may be nil.
func NewAnalyzer(model Model, files FileAccessor, opts Options, emitter *EventEmitter) *Analyzer {
	return &Analyzer{model: model, files: files, opts: opts, emitter: emitter}
}

// NormalizeAnalysisType maps unknown or empty types to general.
func NormalizeAnalysisType(t string) string {
	switch t {
	case AnalysisPerformance, AnalysisSecurity, AnalysisBestPractices:
		return t
	default:
		return AnalysisGeneral
	}
}

// Analyze reviews the file at path. The caller checks that it exists.
func (a *Analyzer) Analyze(ctx context.Context, path, analysisType string) (*Analysis, error) {
	analysisType = NormalizeAnalysisType(analysisType)
	prompt, err := renderPrompt("analysis", analysisPromptData{
		Type:    analysisType,
		Path:    path,
		Content: truncateMiddle(a.files.Read(path), a.opts.MaxFileChars),
		Fence:   fence,
	})
	if err != nil {
		return nil, err
	}

	req := a.opts.request("analyzer", []llm.Message{llm.UserMessage(prompt)}, nil)
	resp, err := complete(ctx, a.model, a.emitter, req)
	if err != nil {
		return nil, err
	}
	return ParseAnalysis(resp.Text()), nil
}

var jsonBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")

// ParseAnalysis extracts the JSON object from a fenced block in text, or
// from the whole text if there is no block. Output that does not parse
// yields a fallback whose summary is the start of the raw text.
func ParseAnalysis(text string) *Analysis {
	raw := strings.TrimSpace(text)
	if m := jsonBlockRe.FindStringSubmatch(text); m != nil {
		raw = m[1]
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(raw), &analysis); err != nil {
		log.Debug().Err(err).Msg("analysis reply is not JSON, using fallback")
		return &Analysis{
			Summary:         truncateRunes(text, analysisSummaryRunes),
			Issues:          []interface{}{},
			Recommendations: []interface{}{},
			Architecture:    "Analysis format error",
		}
	}
	if analysis.Issues == nil {
		analysis.Issues = []interface{}{}
	}
	if analysis.Recommendations == nil {
		analysis.Recommendations = []interface{}{}
	}
	return &analysis
}

// String returns the JSON form handed back to the model.
func (a *Analysis) String() string {
	b, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return a.Summary
	}
	return string(b)
}
