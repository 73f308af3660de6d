package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPercentile(t *testing.T) {
	vs := []time.Duration{5, 1, 4, 2, 3}
	assert.Equal(t, time.Duration(3), percentile(vs, 0.5))
	assert.Equal(t, time.Duration(5), percentile(vs, 0.99))
	assert.Equal(t, time.Duration(1), percentile(vs, 0))
	assert.Equal(t, time.Duration(0), percentile(nil, 0.5))
	assert.Equal(t, []time.Duration{5, 1, 4, 2, 3}, vs)
}
