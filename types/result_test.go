package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsValid(t *testing.T) {
	for _, status := range validStatuses {
		assert.True(t, status.IsValid(), "status %q should be valid", status)
	}
	assert.False(t, TestStatus("").IsValid())
	assert.False(t, TestStatus("Passed").IsValid())
	assert.False(t, TestStatus("errored").IsValid())
}

func TestResultValidate(t *testing.T) {
	tests := []struct {
		name    string
		result  TestResult
		wantErr string
	}{
		{
			name:   "valid result",
			result: TestResult{Title: "TestSync", Status: TestStatusPassed},
		},
		{
			name:    "missing title",
			result:  TestResult{Status: TestStatusPassed},
			wantErr: "no title",
		},
		{
			name:    "unknown status",
			result:  TestResult{Title: "TestSync", Status: "exploded"},
			wantErr: "unknown status",
		},
		{
			name:    "empty status",
			result:  TestResult{Title: "TestSync"},
			wantErr: "unknown status",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.result.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDisplayName(t *testing.T) {
	plain := TestResult{Title: "TestSync"}
	assert.Equal(t, "TestSync", plain.DisplayName())

	parameterized := TestResult{
		Title:  "TestDeposit",
		Params: map[string]string{"network": "op", "amount": "5"},
	}
	// Params render sorted by key so the name is stable across calls.
	assert.Equal(t, "TestDeposit (amount=5, network=op)", parameterized.DisplayName())
}
