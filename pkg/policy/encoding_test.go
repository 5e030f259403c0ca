package policy_test

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ten99policy/ten99policy-go/pkg/policy"
)

func TestEncodeDatetime(t *testing.T) {
	t.Parallel()

	zone := time.FixedZone("CST", -6*60*60)
	stamp := time.Date(2024, 1, 1, 21, 4, 5, 999, zone)

	assert.Equal(t, "2024-01-02T03:04:05Z", policy.EncodeDatetime(stamp))
}

func TestEncodeValue(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	nested := policy.ConstructFrom(map[string]interface{}{"object": "address", "city": "Austin"}, policy.Options{}, nil)

	encoded := policy.EncodeValue(map[string]interface{}{
		"effective_date": stamp,
		"expires":        &stamp,
		"address":        nested,
		"owners":         []string{"a", "b"},
		"changes":        policy.Payload{"at": stamp},
	})

	assert.Equal(t, map[string]interface{}{
		"effective_date": "2024-01-02T03:04:05Z",
		"expires":        "2024-01-02T03:04:05Z",
		"address":        map[string]interface{}{"object": "address", "city": "Austin"},
		"owners":         []interface{}{"a", "b"},
		"changes":        map[string]interface{}{"at": "2024-01-02T03:04:05Z"},
	}, encoded)

	var nilTime *time.Time
	assert.Nil(t, policy.EncodeValue(nilTime))
	assert.Equal(t, 42, policy.EncodeValue(42))
}

func TestMarshalPayload(t *testing.T) {
	t.Parallel()

	data, err := policy.MarshalPayload(policy.Payload{
		"start": time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		"name":  "Courier",
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"start":"2024-01-02T03:04:05Z","name":"Courier"}`, string(data))

	_, err = policy.MarshalPayload(map[string]interface{}{"bad": make(chan int)})
	require.Error(t, err)
}

func TestEncodeQuery(t *testing.T) {
	t.Parallel()

	values := policy.EncodeQuery(map[string]interface{}{
		"limit":    10,
		"expand":   []interface{}{"job", "contractor"},
		"filter":   map[string]interface{}{"status": "active", "wage": 30.5},
		"archived": false,
		"skip":     nil,
	})

	assert.Equal(t, url.Values{
		"limit":          {"10"},
		"expand[0]":      {"job"},
		"expand[1]":      {"contractor"},
		"filter[status]": {"active"},
		"filter[wage]":   {"30.5"},
		"archived":       {"false"},
	}, values)
}

func TestDecodeLoose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input    string
		expected interface{}
	}{
		{input: "30", expected: float64(30)},
		{input: "true", expected: true},
		{input: "{'city': 'Austin'}", expected: map[string]interface{}{"city": "Austin"}},
		{input: `["a","b"]`, expected: []interface{}{"a", "b"}},
		{input: "Courier", expected: "Courier"},
		{input: "", expected: ""},
	}

	for _, testCase := range tests {
		assert.Equal(t, testCase.expected, policy.DecodeLoose(testCase.input), testCase.input)
	}
}
