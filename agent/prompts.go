package agent

import (
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

const fence = "```"

var promptTemplates = template.Must(template.New("prompts").Funcs(sprig.TxtFuncMap()).Parse(`
{{- define "system" -}}
You are an expert coding assistant working on a project built with {{ .TechStack }}.
Always use builder_tool to make changes to the codebase. Fetch files with get_codebase_content
when you need to see them before deciding what to do. Keep answers short and concrete.
{{- end -}}

{{- define "files" -}}
{{- range . }}
--- {{ .Path }} ---
{{ .Content | trimSuffix "\n" }}
{{- end }}
{{- end -}}

{{- define "coordinator" -}}
User Query: {{ .Query | trim }}

Instructions:
- The project uses {{ .TechStack }}.
- To make any change to the project, call builder_tool with a detailed description of the task.
- If you need to read existing files first, call get_codebase_content with their paths.
- To review a file for problems, call analyze_code.
- If nothing needs to change, answer the user directly.

Project tree:
{{ .ProjectName }}/
{{ .Tree }}
Context from previous interactions:
{{- if .Files }}{{ template "files" .Files }}{{ else }}
Nothing Yet.{{ end }}
{{- end -}}

{{- define "builder" -}}
User Query: {{ .Query | trim }}

Instructions:
- Implement the request in the project, which uses {{ .TechStack }}.
- Use read_file to inspect a file and edit_file to write the complete new content of a file.
- Paths are relative to the project root.
- Plan the steps first, then carry them out.

Project tree:
{{ .ProjectName }}/
{{ .Tree }}
{{- end -}}

{{- define "followup" -}}
Have all planned steps been completed?
If yes, start your reply with <status>done</status> and summarize what was done.
If no, start your reply with <status>continue</status> and continue the implementation with edit_file and read_file.

Attempt {{ .Attempt }} of {{ .MaxAttempts }}.
{{- if .Warning }}
Warning: {{ .Warning }}
{{- end }}
{{- if .ToolErrors }}

Tool errors from the last round:
{{- range .ToolErrors }}
- {{ . }}
{{- end }}
{{- end }}

Modified files:
{{- range .Paths }}
- {{ . }}
{{- else }}
(none)
{{- end }}

Project tree:
{{ .ProjectName }}/
{{ .Tree }}
Performed changes:
{{- if .Files }}{{ template "files" .Files }}{{ else }}
(none){{ end }}
{{- end -}}

{{- define "analysis" -}}
Analyze the file below with a {{ .Type }} focus.
Reply with a JSON object inside a {{ .Fence }}json fenced block with these keys:
"summary" (string), "issues" (list), "recommendations" (list), "architecture" (string).

File: {{ .Path }}
{{ .Fence }}
{{ .Content | trimSuffix "\n" }}
{{ .Fence }}
{{- end -}}
`))

type promptFile struct {
	Path    string
	Content string
}

// promptFiles lists the entries of changes, each truncated to maxChars.
func promptFiles(changes *FileChangeSet, maxChars int) []promptFile {
	if changes == nil {
		return nil
	}
	files := make([]promptFile, 0, changes.Len())
	changes.Each(func(path, content string) {
		files = append(files, promptFile{Path: path, Content: truncateMiddle(content, maxChars)})
	})
	return files
}

type coordinatorPromptData struct {
	Query       string
	TechStack   string
	ProjectName string
	Tree        string
	Files       []promptFile
}

type builderPromptData struct {
	Query       string
	TechStack   string
	ProjectName string
	Tree        string
}

type followupPromptData struct {
	Attempt     int
	MaxAttempts int
	Warning     string
	ToolErrors  []string
	Paths       []string
	ProjectName string
	Tree        string
	Files       []promptFile
}

type analysisPromptData struct {
	Type    string
	Path    string
	Content string
	Fence   string
}

func renderPrompt(name string, data interface{}) (string, error) {
	var sb strings.Builder
	if err := promptTemplates.ExecuteTemplate(&sb, name, data); err != nil {
		return "", errors.Wrapf(err, "rendering %s prompt", name)
	}
	return sb.String(), nil
}

// SystemPrompt returns the preamble that opens every conversation.
func SystemPrompt(techStack string) string {
	s, err := renderPrompt("system", struct{ TechStack string }{techStack})
	if err != nil {
		// The template is static; this only fails on programmer error.
		panic(err)
	}
	return s
}
