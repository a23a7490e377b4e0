package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"go.yaml.in/yaml/v3"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed schema/config.schema.json
var schemaBytes []byte

var (
	compiledSchema *jsonschema.Schema
	compileOnce    sync.Once
	compileErr     error
	printer        = message.NewPrinter(language.English)
)

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// ValidationResult contains the outcome of a schema validation.
type ValidationResult struct {
	Valid  bool
	Issues []ValidationIssue
}

// ValidationIssue represents a single schema violation.
type ValidationIssue struct {
	Path    string // Instance location (e.g., "/download/max_attempts")
	Message string
	Keyword string
}

// SchemaError reports a config file that does not match the schema.
type SchemaError struct {
	Path   string
	Issues []ValidationIssue
}

func (e *SchemaError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "config file %s is invalid", e.Path)
	for _, issue := range e.Issues {
		loc := issue.Path
		if loc == "" {
			loc = "/"
		}
		fmt.Fprintf(&b, "\n  %s: %s", loc, issue.Message)
	}
	return b.String()
}

func getSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaBytes))
		if err != nil {
			compileErr = fmt.Errorf("unmarshaling schema JSON: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("config.schema.json", doc); err != nil {
			compileErr = fmt.Errorf("adding schema resource: %w", err)
			return
		}
		compiledSchema, compileErr = c.Compile("config.schema.json")
		if compileErr != nil {
			compileErr = fmt.Errorf("compiling schema: %w", compileErr)
		}
	})
	return compiledSchema, compileErr
}

// ValidateBytes validates raw YAML config content against the schema.
// The error return is for parse or schema compilation failures; schema
// violations are reported in the result.
func ValidateBytes(data []byte) (*ValidationResult, error) {
	schema, err := getSchema()
	if err != nil {
		return nil, fmt.Errorf("loading schema: %w", err)
	}

	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if raw == nil {
		// An empty file is a valid, empty config.
		raw = map[string]interface{}{}
	}

	jsonData, err := json.Marshal(normalizeYAML(raw))
	if err != nil {
		return nil, fmt.Errorf("converting to JSON: %w", err)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("preparing JSON for validation: %w", err)
	}

	err = schema.Validate(inst)
	if err == nil {
		return &ValidationResult{Valid: true}, nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return nil, fmt.Errorf("unexpected validation error type: %w", err)
	}

	return &ValidationResult{
		Valid:  false,
		Issues: extractIssues(validationErr),
	}, nil
}

// ValidateFile reads a config file and validates it against the schema.
func ValidateFile(path string) (*ValidationResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	return ValidateBytes(data)
}

func extractIssues(ve *jsonschema.ValidationError) []ValidationIssue {
	var issues []ValidationIssue
	collectValidationIssues(ve, &issues)

	if len(issues) == 0 {
		return []ValidationIssue{{Message: ve.Error()}}
	}
	return issues
}

// collectValidationIssues walks the error tree down to the leaf errors, which
// carry the property-level detail.
func collectValidationIssues(ve *jsonschema.ValidationError, issues *[]ValidationIssue) {
	if len(ve.Causes) == 0 {
		path := ""
		if len(ve.InstanceLocation) > 0 {
			path = "/" + strings.Join(ve.InstanceLocation, "/")
		}

		keyword := ""
		msg := ""
		if ve.ErrorKind != nil {
			if kwPath := ve.ErrorKind.KeywordPath(); len(kwPath) > 0 {
				keyword = kwPath[len(kwPath)-1]
			}
			msg = ve.ErrorKind.LocalizedString(printer)
		}

		if keyword == "allOf" || keyword == "$ref" {
			return
		}

		*issues = append(*issues, ValidationIssue{
			Path:    path,
			Message: msg,
			Keyword: keyword,
		})
		return
	}

	for _, cause := range ve.Causes {
		collectValidationIssues(cause, issues)
	}
}

// normalizeYAML converts YAML-decoded values to JSON-compatible types.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[k] = normalizeYAML(v)
		}
		return m
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(val))
		for k, v := range val {
			m[fmt.Sprint(k)] = normalizeYAML(v)
		}
		return m
	case []interface{}:
		a := make([]interface{}, len(val))
		for i, v := range val {
			a[i] = normalizeYAML(v)
		}
		return a
	default:
		return val
	}
}

// Validate checks the merged settings, including values that came from the
// environment and therefore never passed the file schema.
func (c *Config) Validate() error {
	var errs []error

	if c.PackageURL == "" {
		errs = append(errs, fmt.Errorf("package_url is required"))
	} else if u, err := url.Parse(c.PackageURL); err != nil {
		errs = append(errs, fmt.Errorf("package_url %q is not a valid URL: %w", c.PackageURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = append(errs, fmt.Errorf("package_url scheme must be http or https, got %q", u.Scheme))
	}

	if c.Download.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("download.max_attempts %d is below minimum 1", c.Download.MaxAttempts))
	}
	if c.Download.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("download.retry_delay must not be negative"))
	}
	if c.Download.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("download.timeout must be positive"))
	}

	if c.Handoff.Path == "" {
		errs = append(errs, fmt.Errorf("handoff.path is required"))
	}
	if c.Handoff.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("handoff.max_attempts %d is below minimum 1", c.Handoff.MaxAttempts))
	}
	if c.Handoff.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("handoff.poll_interval must not be negative"))
	}
	if c.Handoff.InvalidPolicy != PolicyFatal && c.Handoff.InvalidPolicy != PolicyRetry {
		errs = append(errs, fmt.Errorf("handoff.invalid_policy %q is not valid (use fatal or retry)", c.Handoff.InvalidPolicy))
	}

	if c.Install.Mode != ModeFlat && c.Install.Mode != ModeSwap {
		errs = append(errs, fmt.Errorf("install.mode %q is not valid (use flat or swap)", c.Install.Mode))
	}
	if c.Install.WaitForExit < 0 {
		errs = append(errs, fmt.Errorf("install.wait_for_exit must not be negative"))
	}
	if c.Install.KeepBackups < 0 {
		errs = append(errs, fmt.Errorf("install.keep_backups %d is below minimum 0", c.Install.KeepBackups))
	}

	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Errorf("log.level %q is not valid (use debug, info, warn, error)", c.Log.Level))
	}

	switch c.Interactive {
	case InteractiveAuto, InteractiveAlways, InteractiveNever:
	default:
		errs = append(errs, fmt.Errorf("interactive %q is not valid (use auto, always, never)", c.Interactive))
	}

	return errors.Join(errs...)
}
