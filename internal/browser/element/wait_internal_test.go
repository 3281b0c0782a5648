package element

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTruthy(t *testing.T) {
	var nilSlice []Element
	var nilPtr *int
	one := 1

	tests := []struct {
		name     string
		value    interface{}
		expected bool
	}{
		{"nil", nil, false},
		{"nil slice", nilSlice, false},
		{"empty slice", []Element{}, false},
		{"non-empty slice", []int{0}, true},
		{"empty map", map[string]int{}, false},
		{"empty string", "", false},
		{"string", "x", true},
		{"false", false, false},
		{"true", true, true},
		{"zero", 0, false},
		{"int", -3, true},
		{"uint", uint8(2), true},
		{"zero float", 0.0, false},
		{"NaN", math.NaN(), false},
		{"float", 0.5, true},
		{"nil pointer", nilPtr, false},
		{"pointer", &one, true},
		{"struct", struct{}{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isTruthy(tt.value))
		})
	}
}

func TestIsElementCollection(t *testing.T) {
	assert.True(t, IsElementCollection([]Element{}))
	assert.True(t, IsElementCollection([2]int{}))
	assert.True(t, IsElementCollection(map[string]Element{}))
	assert.False(t, IsElementCollection(nil))
	assert.False(t, IsElementCollection("abc"))
	assert.False(t, IsElementCollection(struct{}{}))
}
