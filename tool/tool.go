// Package tool implements the callable capabilities agents may invoke with
// model-supplied keyword arguments. A tool is an explicit descriptor (name,
// description, ordered parameter names) around a plain Go function; argument
// validation is an exact key-set match against the declared parameters, so no
// runtime reflection over the wrapped function is needed.
package tool

import (
	"fmt"
	"sort"
	"strings"
)

// Error codes attached to ToolError for uniform downstream handling.
const (
	// CodeValidation marks argument key-set mismatches.
	CodeValidation = "VALIDATION_ERROR"
	// CodeExecution marks failures returned by the wrapped function.
	CodeExecution = "EXECUTION_ERROR"
)

// ToolError represents errors that occur during tool validation or execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{Tool: tool, Message: message, Code: code}
}

// Func is the signature of a wrapped tool implementation. It receives the
// validated keyword arguments and returns an optional result. A nil result
// (or empty string) means the tool produced no output.
type Func func(args map[string]any) (any, error)

// Tool wraps a callable with the metadata agents expose to models: a unique
// name, a description used for delegation guidance and the exact set of
// parameter names the callable accepts.
//
// A Tool has no internal mutable state after construction and is safe for
// concurrent use.
type Tool struct {
	name        string
	description string
	params      []string
	fn          Func
}

// New constructs a Tool from an explicit descriptor and function.
//
// Example:
//
//	add := tool.New("add", "Add two numbers", []string{"a", "b"},
//		func(args map[string]any) (any, error) {
//			return args["a"].(float64) + args["b"].(float64), nil
//		})
func New(name, description string, params []string, fn Func) *Tool {
	return &Tool{
		name:        name,
		description: description,
		params:      append([]string(nil), params...),
		fn:          fn,
	}
}

// Name returns the unique tool name used in action dispatch.
func (t *Tool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *Tool) Description() string { return t.description }

// ParamNames returns a copy of the declared parameter names in call-shape order.
func (t *Tool) ParamNames() []string { return append([]string(nil), t.params...) }

// Call validates the supplied arguments then invokes the wrapped function.
// The argument key set must exactly equal the declared parameter names; both
// missing and unexpected keys are rejected before the function runs.
//
// Error semantics:
//
//	*ToolError (returned directly)  -> forwarded unchanged
//	key-set mismatch                -> *ToolError{Code: CodeValidation}
//	other error                     -> *ToolError{Code: CodeExecution}
func (t *Tool) Call(args map[string]any) (any, error) {
	if err := t.validateArgs(args); err != nil {
		return nil, err
	}

	result, err := t.fn(args)
	if err != nil {
		if toolErr, ok := err.(*ToolError); ok {
			return nil, toolErr
		}
		return nil, &ToolError{Tool: t.name, Message: err.Error(), Code: CodeExecution}
	}

	return result, nil
}

// validateArgs enforces the exact-match contract between supplied argument
// keys and declared parameter names.
func (t *Tool) validateArgs(args map[string]any) error {
	var missing, unexpected []string

	for _, name := range t.params {
		if _, ok := args[name]; !ok {
			missing = append(missing, name)
		}
	}

	declared := make(map[string]bool, len(t.params))
	for _, name := range t.params {
		declared[name] = true
	}
	for key := range args {
		if !declared[key] {
			unexpected = append(unexpected, key)
		}
	}

	if len(missing) == 0 && len(unexpected) == 0 {
		return nil
	}

	sort.Strings(missing)
	sort.Strings(unexpected)

	var parts []string
	if len(missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing parameters: %s", strings.Join(missing, ", ")))
	}
	if len(unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected parameters: %s", strings.Join(unexpected, ", ")))
	}

	return &ToolError{
		Tool:    t.name,
		Message: strings.Join(parts, "; "),
		Code:    CodeValidation,
	}
}
