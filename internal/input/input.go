// Package input parses and validates experiment data before it reaches the decision engine.
package input

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/gkobilansky/ab-advisor/internal/decision"
)

// Limits accepted from users.
const (
	MinVariants = 2
	MaxVariants = 5
	MaxCount    = 1_000_000_000
)

// Request is the user-facing shape of a decision input.
type Request struct {
	Metric   string           `json:"metric" yaml:"metric" validate:"required,oneof=ctr conversion"`
	Variants []VariantRequest `json:"variants" yaml:"variants" validate:"min=2,max=5,dive"`
}

// VariantRequest is one row of experiment data.
type VariantRequest struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	Traffic   int    `json:"traffic" yaml:"traffic" validate:"gte=0,lte=1000000000"`
	Successes int    `json:"successes" yaml:"successes" validate:"gte=0,lte=1000000000"`
}

// Issue is a single validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every problem found in a Request.
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Field + ": " + issue.Message
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report paths using the json names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	v.RegisterStructValidation(validateCounts, VariantRequest{})
	return v
}

// validateCounts enforces the relations between traffic and successes.
func validateCounts(sl validator.StructLevel) {
	v := sl.Current().Interface().(VariantRequest)
	if v.Successes > v.Traffic {
		sl.ReportError(v.Successes, "successes", "Successes", "lte_traffic", "")
	}
	if v.Traffic == 0 && v.Successes != 0 {
		sl.ReportError(v.Successes, "successes", "Successes", "zero_traffic", "")
	}
}

// Validate checks a Request and returns a *ValidationError listing every issue.
func Validate(req Request) error {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate input: %w", err)
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		out.Issues = append(out.Issues, Issue{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return out
}

// fieldPath turns "Request.variants[1].successes" into "variants[1].successes".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "lte_traffic":
		return "Successes can't exceed Traffic."
	case "zero_traffic":
		return "If Traffic = 0, Successes must be 0."
	case "required":
		if fe.Field() == "name" {
			return "Name is required."
		}
		return "This field is required."
	case "oneof":
		return fmt.Sprintf("Must be one of: %s.", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "min":
		if fe.Field() == "variants" {
			return fmt.Sprintf("At least %d variants are required.", MinVariants)
		}
	case "max":
		if fe.Field() == "variants" {
			return fmt.Sprintf("At most %d variants are supported.", MaxVariants)
		}
	case "gte":
		return "Must be 0 or more."
	case "lte":
		return fmt.Sprintf("Must be at most %d.", MaxCount)
	}
	return fmt.Sprintf("Failed the %q check.", fe.Tag())
}

// ToInput validates the request and converts it for the engine.
func (r Request) ToInput() (decision.Input, error) {
	if err := Validate(r); err != nil {
		return decision.Input{}, err
	}
	in := decision.Input{Metric: decision.Metric(r.Metric)}
	for _, v := range r.Variants {
		in.Variants = append(in.Variants, decision.Variant{Name: v.Name, Traffic: v.Traffic, Successes: v.Successes})
	}
	return in, nil
}

// FromInput converts engine input back into a Request, typically to validate stored counts.
func FromInput(in decision.Input) Request {
	req := Request{Metric: string(in.Metric)}
	for _, v := range in.Variants {
		req.Variants = append(req.Variants, VariantRequest{Name: v.Name, Traffic: v.Traffic, Successes: v.Successes})
	}
	return req
}

// Parse decodes a request from JSON or YAML, rejecting unknown fields.
func Parse(data []byte, format string) (Request, error) {
	var req Request
	switch strings.ToLower(format) {
	case "json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			return Request{}, fmt.Errorf("failed to parse JSON input: %w", err)
		}
	case "yaml", "yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&req); err != nil {
			return Request{}, fmt.Errorf("failed to parse YAML input: %w", err)
		}
	default:
		return Request{}, fmt.Errorf("unsupported input format %q (use json or yaml)", format)
	}
	return req, nil
}

// ReadFile parses a request file, picking the format from its extension.
func ReadFile(path string) (Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Request{}, fmt.Errorf("failed to read input file: %w", err)
	}
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	if format == "" {
		format = "json"
	}
	return Parse(data, format)
}

// ParseVariant parses the "name:traffic:successes" flag form.
// The name may itself contain colons; the last two fields are the counts.
func ParseVariant(s string) (VariantRequest, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 3 {
		return VariantRequest{}, fmt.Errorf("invalid variant %q: expected name:traffic:successes", s)
	}
	n := len(parts)

	traffic, err := strconv.Atoi(strings.TrimSpace(parts[n-2]))
	if err != nil {
		return VariantRequest{}, fmt.Errorf("invalid traffic in %q: %w", s, err)
	}
	successes, err := strconv.Atoi(strings.TrimSpace(parts[n-1]))
	if err != nil {
		return VariantRequest{}, fmt.Errorf("invalid successes in %q: %w", s, err)
	}

	return VariantRequest{
		Name:      strings.Join(parts[:n-2], ":"),
		Traffic:   traffic,
		Successes: successes,
	}, nil
}
