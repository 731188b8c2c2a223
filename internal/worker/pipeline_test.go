package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunStagesStopsAtFirstError(t *testing.T) {
	var ran []string
	stages := []stage{
		{Name: "a", Run: func(pc *pipelineContext) error { ran = append(ran, "a"); return nil }},
		{Name: "b", Run: func(pc *pipelineContext) error { ran = append(ran, "b"); return errors.New("boom") }},
		{Name: "c", Run: func(pc *pipelineContext) error { ran = append(ran, "c"); return nil }},
	}
	err := runStages(&pipelineContext{}, stages)
	require.Error(t, err)
	require.Contains(t, err.Error(), `stage "b"`)
	require.Equal(t, []string{"a", "b"}, ran)
}

func TestRunStagesAllSucceed(t *testing.T) {
	count := 0
	stages := []stage{
		{Name: "a", Run: func(pc *pipelineContext) error { count++; return nil }},
		{Name: "b", Run: func(pc *pipelineContext) error { count++; return nil }},
	}
	require.NoError(t, runStages(&pipelineContext{}, stages))
	require.Equal(t, 2, count)
}
