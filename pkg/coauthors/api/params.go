package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/render"
)

// Arg declares one request argument of an endpoint.
type Arg struct {
	Name     string
	Required bool
	// List arguments also accept the Name+"[]" form, repeated values and
	// comma separated values.
	List     bool
	Sanitize func(string) string
	// SanitizeList replaces Sanitize for list arguments when set.
	SanitizeList func([]string) []string
}

// Args is the argument declaration of an endpoint.
type Args []Arg

// ParsedArgs holds sanitized argument values by name.
type ParsedArgs map[string][]string

// Get returns the first value of a scalar argument.
func (p ParsedArgs) Get(name string) string {
	if v := p[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Parse checks required arguments and sanitizes every present value.
// Missing required arguments are all reported in one error.
func (a Args) Parse(params url.Values) (ParsedArgs, error) {
	parsed := make(ParsedArgs, len(a))
	var missing []string

	for _, arg := range a {
		values, present := lookup(params, arg)
		if !present {
			if arg.Required {
				missing = append(missing, arg.Name)
			}
			continue
		}

		if arg.List && arg.SanitizeList != nil {
			parsed[arg.Name] = arg.SanitizeList(values)
			continue
		}

		out := make([]string, 0, len(values))
		for _, v := range values {
			if arg.Sanitize != nil {
				v = arg.Sanitize(v)
			}
			if arg.List && v == "" {
				continue
			}
			out = append(out, v)
		}
		parsed[arg.Name] = out
	}

	if len(missing) > 0 {
		return nil, ErrMissingParams(missing...)
	}
	return parsed, nil
}

func lookup(params url.Values, arg Arg) ([]string, bool) {
	if !arg.List {
		values, ok := params[arg.Name]
		if !ok || len(values) == 0 {
			return nil, false
		}
		return values[:1], true
	}

	var (
		out     []string
		present bool
	)
	for _, key := range []string{arg.Name, arg.Name + "[]"} {
		values, ok := params[key]
		if !ok {
			continue
		}
		present = true
		for _, v := range values {
			out = append(out, strings.Split(v, ",")...)
		}
	}
	return out, present
}

const (
	maxBodyBytes       = 1 << 20
	maxMultipartMemory = 1 << 20
)

// errBodyTooLarge reports a body over maxBodyBytes.
func errBodyTooLarge() *APIError {
	return NewAPIError(http.StatusRequestEntityTooLarge, "rest_request_too_large", "Request body is too large.")
}

func bodyError(err error) *APIError {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return errBodyTooLarge()
	}
	return NewAPIError(http.StatusBadRequest, "rest_invalid_body", "Invalid form body passed.")
}

// requestParams merges query string and body parameters. Body values
// take precedence over the query string.
func requestParams(r *http.Request) (url.Values, error) {
	params := url.Values{}
	for k, v := range r.URL.Query() {
		params[k] = v
	}

	if r.Body == nil || r.Method == http.MethodGet {
		return params, nil
	}
	r.Body = http.MaxBytesReader(nil, r.Body, maxBodyBytes)

	switch render.GetRequestContentType(r) {
	case render.ContentTypeJSON:
		var body map[string]interface{}
		if err := render.DecodeJSON(r.Body, &body); err != nil {
			if errors.Is(err, io.EOF) {
				return params, nil
			}
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, errBodyTooLarge()
			}
			return nil, ErrInvalidJSON()
		}
		for k, v := range body {
			if values, ok := jsonValues(v); ok {
				params[k] = values
			}
		}
	case render.ContentTypeForm:
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for k, v := range r.PostForm {
			params[k] = v
		}
	default:
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
			if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
				return nil, bodyError(err)
			}
			for k, v := range r.MultipartForm.Value {
				params[k] = v
			}
		}
	}
	return params, nil
}

// jsonValues flattens a decoded JSON value into string parameters.
// A JSON null counts as absent.
func jsonValues(v interface{}) ([]string, bool) {
	switch t := v.(type) {
	case nil:
		return nil, false
	case string:
		return []string{t}, true
	case float64:
		return []string{strconv.FormatFloat(t, 'f', -1, 64)}, true
	case bool:
		return []string{strconv.FormatBool(t)}, true
	case []interface{}:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if values, ok := jsonValues(item); ok {
				out = append(out, values...)
			}
		}
		return out, true
	default:
		raw, err := json.Marshal(t)
		if err != nil {
			return nil, false
		}
		return []string{string(raw)}, true
	}
}
