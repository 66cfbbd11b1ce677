package internal

import (
	"maps"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConcat2(t *testing.T) {
	assert := assert.New(t)

	a := maps.All(map[string]int{"one": 1})
	b := maps.All(map[string]int{"two": 2, "three": 3})

	got := maps.Collect(Concat2(a, b))
	assert.Equal(map[string]int{"one": 1, "two": 2, "three": 3}, got)

	var keys []string
	for key := range Concat2(a, b) {
		keys = append(keys, key)
		break // early exit must not panic the producers
	}
	assert.Len(keys, 1)

	count := 0
	for range Concat2[string, int]() {
		count++
	}
	assert.Zero(count)
}
