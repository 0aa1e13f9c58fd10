package agent

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/pkg/errors"

	"github.com/martinemde/codehelper/llm"
)

// ToolKind enumerates every tool an agent can offer. Tool names coming back
// from the model are parsed into a ToolKind once and dispatched with a
// switch.
type ToolKind int

const (
	ToolReadFile ToolKind = iota + 1
	ToolEditFile
	ToolBuilder
	ToolGetCodebaseContent
	ToolAnalyzeCode
)

var toolNames = map[ToolKind]string{
	ToolReadFile:           "read_file",
	ToolEditFile:           "edit_file",
	ToolBuilder:            "builder_tool",
	ToolGetCodebaseContent: "get_codebase_content",
	ToolAnalyzeCode:        "analyze_code",
}

var toolDescriptions = map[ToolKind]string{
	ToolReadFile: "Read a file from the project. Returns its content, or a message saying the file does not exist.",
	ToolEditFile: "Write the complete content of a file in the project, creating it and its directories if needed. " +
		"Returns the written content.",
	ToolBuilder: "Delegate an implementation task to the builder agent, which reads and edits project files " +
		"until the task is complete. Describe the task in detail.",
	ToolGetCodebaseContent: "Fetch the content of several project files at once.",
	ToolAnalyzeCode:        "Analyze a project file and report a summary with issues and recommendations.",
}

func (k ToolKind) String() string {
	if name, ok := toolNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ToolKind(%d)", int(k))
}

// ParseToolKind maps a tool name to its kind.
func ParseToolKind(name string) (ToolKind, bool) {
	for kind, n := range toolNames {
		if n == name {
			return kind, true
		}
	}
	return 0, false
}

// UnknownToolError is returned when the model calls a tool that does not
// exist or was not offered in the current request. It ends the turn.
type UnknownToolError struct {
	Name    string
	Offered []ToolKind
}

func (e *UnknownToolError) Error() string {
	names := make([]string, len(e.Offered))
	for i, k := range e.Offered {
		names[i] = k.String()
	}
	return fmt.Sprintf("model called unknown tool %q (offered: %s)", e.Name, strings.Join(names, ", "))
}

// ReadFileArgs are the arguments of read_file.
type ReadFileArgs struct {
	FilePath string `json:"filePath" jsonschema:"required,description=Path of the file relative to the project root"`
}

// EditFileArgs are the arguments of edit_file.
type EditFileArgs struct {
	FilePath    string `json:"filePath" jsonschema:"required,description=Path of the file relative to the project root"`
	FileContent string `json:"fileContent" jsonschema:"required,description=The complete new content of the file"`
}

// BuilderArgs are the arguments of builder_tool.
type BuilderArgs struct {
	DetailedQuery string `json:"detailedQuery" jsonschema:"required,description=Detailed description of the implementation task"`
}

// GetCodebaseContentArgs are the arguments of get_codebase_content.
type GetCodebaseContentArgs struct {
	FilesPaths []string `json:"filesPaths" jsonschema:"required,description=Paths of the files to fetch relative to the project root"`
}

// AnalyzeCodeArgs are the arguments of analyze_code.
type AnalyzeCodeArgs struct {
	FilePath     string `json:"filePath" jsonschema:"required,description=Path of the file to analyze"`
	AnalysisType string `json:"analysisType,omitempty" jsonschema:"description=Focus of the analysis,enum=general,enum=performance,enum=security,enum=best-practices,default=general"`
}

func argsPrototype(k ToolKind) interface{} {
	switch k {
	case ToolReadFile:
		return &ReadFileArgs{}
	case ToolEditFile:
		return &EditFileArgs{}
	case ToolBuilder:
		return &BuilderArgs{}
	case ToolGetCodebaseContent:
		return &GetCodebaseContentArgs{}
	case ToolAnalyzeCode:
		return &AnalyzeCodeArgs{}
	default:
		return nil
	}
}

// Definition returns the model-facing descriptor of k, with a parameter
// schema reflected from its argument struct.
func Definition(k ToolKind) (llm.ToolDefinition, error) {
	proto := argsPrototype(k)
	if proto == nil {
		return llm.ToolDefinition{}, errors.Errorf("no definition for %s", k)
	}

	reflector := jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(proto)
	raw, err := json.Marshal(schema)
	if err != nil {
		return llm.ToolDefinition{}, errors.Wrapf(err, "marshalling schema for %s", k)
	}
	var params map[string]interface{}
	if err := json.Unmarshal(raw, &params); err != nil {
		return llm.ToolDefinition{}, errors.Wrapf(err, "decoding schema for %s", k)
	}
	delete(params, "$schema")
	delete(params, "$id")
	if _, ok := params["type"]; !ok {
		params["type"] = "object"
	}

	return llm.ToolDefinition{
		Name:        k.String(),
		Description: toolDescriptions[k],
		Parameters:  params,
	}, nil
}

// Definitions returns descriptors for kinds, in order.
func Definitions(kinds ...ToolKind) ([]llm.ToolDefinition, error) {
	defs := make([]llm.ToolDefinition, 0, len(kinds))
	for _, k := range kinds {
		def, err := Definition(k)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// resolveCall parses call.Name and checks it against the offered kinds.
func resolveCall(call llm.ToolCall, offered []ToolKind) (ToolKind, error) {
	kind, ok := ParseToolKind(call.Name)
	if ok {
		for _, o := range offered {
			if o == kind {
				return kind, nil
			}
		}
	}
	return 0, &UnknownToolError{Name: call.Name, Offered: offered}
}

// decodeArgs unmarshals tool call arguments into dst. Empty arguments decode
// as an empty object.
func decodeArgs(call llm.ToolCall, dst interface{}) error {
	raw := call.Arguments
	if len(raw) == 0 {
		raw = json.RawMessage(`{}`)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return errors.Wrapf(err, "invalid arguments for %s", call.Name)
	}
	return nil
}
