package mapview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectPopups_PreservesOrder(t *testing.T) {
	popups, err := collectPopups([]byte(`{"features": [
		{"properties": {"zeta": "last-alpha", "alpha": 1, "nested": {"b": 1, "a": [1, 2]}, "none": null, "flag": true}},
		{"properties": null},
		{}
	]}`))
	require.NoError(t, err)
	require.Len(t, popups, 1)
	assert.Equal(t, []string{
		"zeta: last-alpha",
		"alpha: 1",
		`nested: {"b":1,"a":[1,2]}`,
		"none: null",
		"flag: true",
	}, popups[0].Lines())
}

func TestCollectPopups_RejectsNonObjectProperties(t *testing.T) {
	_, err := collectPopups([]byte(`{"features": [{"properties": [1, 2]}]}`))
	assert.Error(t, err)
}
