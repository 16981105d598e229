package foldquery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExplainResult_FirstStopReason(t *testing.T) {
	result := &ExplainResult{
		Steps: []StepTrace{
			{StepID: "s1", Folded: true},
			{StepID: "s2", Folded: false, Reason: ReasonUnsupportedOp},
			{StepID: "s3", Folded: false, Reason: ReasonQueryCycle},
		},
	}
	assert.Equal(t, ReasonUnsupportedOp, result.FirstStopReason())
}

func TestExplainResult_FirstStopReason_AllFolded(t *testing.T) {
	result := &ExplainResult{Steps: []StepTrace{{StepID: "s1", Folded: true}}}
	assert.Equal(t, Reason(""), result.FirstStopReason(), "expected empty reason when everything folded")
}
