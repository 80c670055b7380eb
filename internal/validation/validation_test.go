package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type demoRequest struct {
	IsDemo *bool  `validate:"required"`
	Mode   string `validate:"omitempty,oneof=json text"`
	Limit  int    `validate:"gte=0,lte=10"`
}

func TestStruct(t *testing.T) {
	yes := true
	assert.NoError(t, Struct(demoRequest{IsDemo: &yes, Mode: "json", Limit: 3}))

	err := Struct(demoRequest{Mode: "xml", Limit: 11})
	require.Error(t, err)

	var verr *Error
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "IsDemo is required", verr.Fields["IsDemo"])
	assert.Equal(t, "Mode must be one of: json text", verr.Fields["Mode"])
	assert.Equal(t, "Limit must be at most 10", verr.Fields["Limit"])
	assert.Contains(t, err.Error(), "validation failed: ")
}
