package input_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gkobilansky/ab-advisor/internal/decision"
	"github.com/gkobilansky/ab-advisor/internal/input"
)

func validRequest() input.Request {
	return input.Request{
		Metric: "ctr",
		Variants: []input.VariantRequest{
			{Name: "A", Traffic: 1000, Successes: 50},
			{Name: "B", Traffic: 1000, Successes: 60},
		},
	}
}

func issues(t *testing.T, err error) []input.Issue {
	t.Helper()
	var verr *input.ValidationError
	require.ErrorAs(t, err, &verr)
	return verr.Issues
}

func TestValidate_Valid(t *testing.T) {
	assert.NoError(t, input.Validate(validRequest()))
}

func TestValidate_SuccessesExceedTraffic(t *testing.T) {
	req := validRequest()
	req.Variants[1].Successes = 2000

	got := issues(t, input.Validate(req))
	require.Len(t, got, 1)
	assert.Equal(t, "variants[1].successes", got[0].Field)
	assert.Equal(t, "Successes can't exceed Traffic.", got[0].Message)
}

func TestValidate_ZeroTrafficNeedsZeroSuccesses(t *testing.T) {
	req := validRequest()
	req.Variants[0] = input.VariantRequest{Name: "A", Traffic: 0, Successes: 3}

	got := issues(t, input.Validate(req))
	var messages []string
	for _, issue := range got {
		assert.Equal(t, "variants[0].successes", issue.Field)
		messages = append(messages, issue.Message)
	}
	assert.Contains(t, messages, "If Traffic = 0, Successes must be 0.")
}

func TestValidate_VariantCount(t *testing.T) {
	req := validRequest()
	req.Variants = req.Variants[:1]

	got := issues(t, input.Validate(req))
	require.Len(t, got, 1)
	assert.Equal(t, "variants", got[0].Field)
	assert.Equal(t, "At least 2 variants are required.", got[0].Message)

	req = validRequest()
	for i := 0; i < 4; i++ {
		req.Variants = append(req.Variants, input.VariantRequest{Name: "X", Traffic: 10, Successes: 1})
	}
	got = issues(t, input.Validate(req))
	assert.Equal(t, "At most 5 variants are supported.", got[0].Message)
}

func TestValidate_FieldRules(t *testing.T) {
	req := validRequest()
	req.Metric = "revenue"
	req.Variants[0].Name = ""
	req.Variants[1].Traffic = -1
	req.Variants[1].Successes = -1

	got := issues(t, input.Validate(req))
	fields := map[string]string{}
	for _, issue := range got {
		fields[issue.Field] = issue.Message
	}

	assert.Equal(t, "Must be one of: ctr, conversion.", fields["metric"])
	assert.Equal(t, "Name is required.", fields["variants[0].name"])
	assert.Equal(t, "Must be 0 or more.", fields["variants[1].traffic"])
	assert.Contains(t, fields, "variants[1].successes")
}

func TestValidate_UpperBound(t *testing.T) {
	req := validRequest()
	req.Variants[0].Traffic = input.MaxCount + 1

	got := issues(t, input.Validate(req))
	assert.Equal(t, "variants[0].traffic", got[0].Field)
	assert.Equal(t, "Must be at most 1000000000.", got[0].Message)
}

func TestToInput(t *testing.T) {
	in, err := validRequest().ToInput()
	require.NoError(t, err)

	assert.Equal(t, decision.MetricCTR, in.Metric)
	assert.Equal(t, []decision.Variant{
		{Name: "A", Traffic: 1000, Successes: 50},
		{Name: "B", Traffic: 1000, Successes: 60},
	}, in.Variants)

	assert.Equal(t, validRequest(), input.FromInput(in))
}

func TestParse_JSON(t *testing.T) {
	req, err := input.Parse([]byte(`{"metric":"conversion","variants":[{"name":"A","traffic":10,"successes":1},{"name":"B","traffic":12,"successes":3}]}`), "json")
	require.NoError(t, err)

	assert.Equal(t, "conversion", req.Metric)
	require.Len(t, req.Variants, 2)
	assert.Equal(t, 12, req.Variants[1].Traffic)
}

func TestParse_RejectsUnknownFields(t *testing.T) {
	_, err := input.Parse([]byte(`{"metric":"ctr","variants":[],"extra":1}`), "json")
	assert.Error(t, err)

	_, err = input.Parse([]byte("metric: ctr\nextra: 1\n"), "yaml")
	assert.Error(t, err)
}

func TestParse_UnsupportedFormat(t *testing.T) {
	_, err := input.Parse([]byte(""), "toml")
	assert.ErrorContains(t, err, "unsupported input format")
}

func TestReadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment.yaml")
	data := `metric: ctr
variants:
  - name: A
    traffic: 1000
    successes: 50
  - name: B
    traffic: 1100
    successes: 66
  - name: C
    traffic: 1200
    successes: 84
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	req, err := input.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, req.Variants, 3)
	assert.Equal(t, input.VariantRequest{Name: "C", Traffic: 1200, Successes: 84}, req.Variants[2])
}

func TestParseVariant(t *testing.T) {
	v, err := input.ParseVariant("Ship Faster:1000:50")
	require.NoError(t, err)
	assert.Equal(t, input.VariantRequest{Name: "Ship Faster", Traffic: 1000, Successes: 50}, v)

	v, err = input.ParseVariant("v2:beta:10:1")
	require.NoError(t, err)
	assert.Equal(t, "v2:beta", v.Name)

	_, err = input.ParseVariant("A:100")
	assert.Error(t, err)

	_, err = input.ParseVariant("A:ten:1")
	assert.Error(t, err)
}
