package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeFilter(t *testing.T) {
	assert.Nil(t, nodeFilter(""))
	assert.Nil(t, nodeFilter(" , "))
	assert.Equal(t, []string{"A001", "B001"}, nodeFilter("A001, ,B001 "))
}
