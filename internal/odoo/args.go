// ABOUTME: Translates the generic call request shape into execute_kw arguments.
// ABOUTME: Handles per-method validation and coercion of loosely typed inputs.

package odoo

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DefaultSearchLimit caps search-like calls when the caller doesn't ask
// for a specific limit.
const DefaultSearchLimit = 10

// CallRequest is the generic request shape shared by the MCP tool and the
// REST endpoint. Domain and Values accept either native JSON or a
// JSON-encoded string; IDs accepts a native array or a comma-separated
// string.
type CallRequest struct {
	Model  string          `json:"model"`
	Method string          `json:"method"`
	Domain json.RawMessage `json:"domain,omitempty"`
	Fields string          `json:"fields,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	IDs    json.RawMessage `json:"ids,omitempty"`
	Values json.RawMessage `json:"values,omitempty"`

	// Raw mode: pre-built execute_kw arguments for methods outside the
	// known families. When set they are passed through untouched.
	Args   json.RawMessage `json:"args,omitempty"`
	Kwargs json.RawMessage `json:"kwargs,omitempty"`
}

// ValidationError reports a malformed or missing request parameter.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %q: %s", e.Field, e.Msg)
}

// BuildArgs converts a CallRequest into the (args, kwargs) pair Execute
// expects. It validates required fields per method family and never
// reaches the remote system.
func BuildArgs(req CallRequest) (args []any, kwargs map[string]any, err error) {
	if req.Model == "" {
		return nil, nil, &ValidationError{Field: "model", Msg: "required"}
	}
	if req.Method == "" {
		return nil, nil, &ValidationError{Field: "method", Msg: "required"}
	}

	switch req.Method {
	case "search", "search_read":
		domain, err := parseDomain(req.Domain)
		if err != nil {
			return nil, nil, err
		}
		args = []any{domain}
		kwargs = map[string]any{}
		if fields := splitFields(req.Fields); len(fields) > 0 {
			kwargs["fields"] = fields
		}
		limit := req.Limit
		if limit <= 0 {
			limit = DefaultSearchLimit
		}
		kwargs["limit"] = limit
		return args, kwargs, nil

	case "read":
		ids, err := parseIDs(req.IDs)
		if err != nil {
			return nil, nil, err
		}
		if len(ids) == 0 {
			return nil, nil, &ValidationError{Field: "ids", Msg: "required for read"}
		}
		args = []any{ids}
		kwargs = map[string]any{}
		if fields := splitFields(req.Fields); len(fields) > 0 {
			kwargs["fields"] = fields
		}
		return args, kwargs, nil

	case "create":
		values, err := parseValues(req.Values)
		if err != nil {
			return nil, nil, err
		}
		if values == nil {
			return nil, nil, &ValidationError{Field: "values", Msg: "required for create"}
		}
		// execute_kw create takes a list of value dicts (bulk convention).
		return []any{[]any{values}}, map[string]any{}, nil

	case "write":
		ids, err := parseIDs(req.IDs)
		if err != nil {
			return nil, nil, err
		}
		if len(ids) == 0 {
			return nil, nil, &ValidationError{Field: "ids", Msg: "required for write"}
		}
		values, err := parseValues(req.Values)
		if err != nil {
			return nil, nil, err
		}
		if values == nil {
			return nil, nil, &ValidationError{Field: "values", Msg: "required for write"}
		}
		return []any{ids, values}, map[string]any{}, nil

	case "unlink", "delete":
		ids, err := parseIDs(req.IDs)
		if err != nil {
			return nil, nil, err
		}
		if len(ids) == 0 {
			return nil, nil, &ValidationError{Field: "ids", Msg: "required for " + req.Method}
		}
		return []any{ids}, map[string]any{}, nil

	default:
		// Unknown methods pass through; raw args/kwargs are honored if
		// the caller supplied them.
		args, err := parseRawArgs(req.Args)
		if err != nil {
			return nil, nil, err
		}
		kwargs, err := parseRawKwargs(req.Kwargs)
		if err != nil {
			return nil, nil, err
		}
		return args, kwargs, nil
	}
}

// unquote unwraps a JSON-encoded string so that both `[[...]]` and
// `"[[...]]"` parse to the same structure.
func unquote(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, `"`) {
		return raw, nil
	}
	var inner string
	if err := json.Unmarshal(raw, &inner); err != nil {
		return nil, err
	}
	return json.RawMessage(inner), nil
}

// parseDomain parses a search domain. Absent domains default to the
// match-everything empty list.
func parseDomain(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return []any{}, nil
	}
	raw, err := unquote(raw)
	if err != nil {
		return nil, &ValidationError{Field: "domain", Msg: "malformed JSON string"}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return []any{}, nil
	}
	var domain []any
	if err := json.Unmarshal(raw, &domain); err != nil {
		return nil, &ValidationError{Field: "domain", Msg: "must be a JSON list"}
	}
	return domain, nil
}

// parseValues parses a create/write value payload. Returns nil when absent.
func parseValues(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	raw, err := unquote(raw)
	if err != nil {
		return nil, &ValidationError{Field: "values", Msg: "malformed JSON string"}
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, nil
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, &ValidationError{Field: "values", Msg: "must be a JSON object"}
	}
	return values, nil
}

// parseIDs parses an id list given either as a JSON array of integers or
// as a comma-separated string ("1,2,3"). Returns nil when absent.
func parseIDs(raw json.RawMessage) ([]int64, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, &ValidationError{Field: "ids", Msg: "malformed JSON string"}
		}
		return parseIDString(s)
	}

	var ids []int64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, &ValidationError{Field: "ids", Msg: "must be a list of integers"}
	}
	return ids, nil
}

// parseIDString splits a comma-separated id list and coerces each entry.
func parseIDString(s string) ([]int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, &ValidationError{Field: "ids", Msg: fmt.Sprintf("%q is not an integer", part)}
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// splitFields splits a comma-separated field list, trimming whitespace.
func splitFields(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	fields := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			fields = append(fields, part)
		}
	}
	return fields
}

// parseRawArgs parses a pre-built positional argument list for raw mode.
func parseRawArgs(raw json.RawMessage) ([]any, error) {
	if len(raw) == 0 {
		return []any{}, nil
	}
	raw, err := unquote(raw)
	if err != nil {
		return nil, &ValidationError{Field: "args", Msg: "malformed JSON string"}
	}
	var args []any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, &ValidationError{Field: "args", Msg: "must be a JSON list"}
	}
	return args, nil
}

// parseRawKwargs parses a pre-built keyword argument object for raw mode.
func parseRawKwargs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	raw, err := unquote(raw)
	if err != nil {
		return nil, &ValidationError{Field: "kwargs", Msg: "malformed JSON string"}
	}
	var kwargs map[string]any
	if err := json.Unmarshal(raw, &kwargs); err != nil {
		return nil, &ValidationError{Field: "kwargs", Msg: "must be a JSON object"}
	}
	return kwargs, nil
}
