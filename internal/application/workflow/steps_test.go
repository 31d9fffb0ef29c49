package workflow

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo-article-api/internal/domain/entity"
)

func TestStepSpecsMatchSequence(t *testing.T) {
	require.Len(t, stepSpecs, len(entity.StepSequence))
	for i, spec := range stepSpecs {
		assert.Equal(t, entity.StepSequence[i], spec.step)
	}
}

func TestStepPromptsChainPreviousOutputs(t *testing.T) {
	topic := "march birth flowers"
	results := map[entity.WorkflowStep]entity.StepResult{
		entity.StepResearch: {Content: "RESEARCH-NOTES"},
		entity.StepPlanning: {Content: "ARTICLE-OUTLINE"},
		entity.StepWriting:  {Content: "DRAFT-ARTICLE"},
		entity.StepEditing:  {Content: "EDITED-ARTICLE"},
	}

	byStep := make(map[entity.WorkflowStep]string, len(stepSpecs))
	for _, spec := range stepSpecs {
		byStep[spec.step] = spec.buildPrompt(topic, results)
	}

	// 研究步骤只依赖主题
	assert.Contains(t, byStep[entity.StepResearch], topic)

	// 后续步骤消费前序产出
	assert.Contains(t, byStep[entity.StepPlanning], "RESEARCH-NOTES")
	assert.Contains(t, byStep[entity.StepWriting], "ARTICLE-OUTLINE")
	assert.Contains(t, byStep[entity.StepEditing], "DRAFT-ARTICLE")
	assert.Contains(t, byStep[entity.StepPublishing], "EDITED-ARTICLE")
	assert.Contains(t, byStep[entity.StepAnalysis], "EDITED-ARTICLE")

	// 改进建议汇总全部产出
	improvement := byStep[entity.StepImprovement]
	for _, marker := range []string{"RESEARCH-NOTES", "ARTICLE-OUTLINE", "DRAFT-ARTICLE", "EDITED-ARTICLE"} {
		assert.Contains(t, improvement, marker)
	}
}

func TestDigestTruncatesLongOutputs(t *testing.T) {
	long := strings.Repeat("x", 5000)
	out := digest(map[entity.WorkflowStep]entity.StepResult{
		entity.StepWriting: {Content: long},
	})

	assert.Contains(t, out, "--- writing ---")
	assert.Contains(t, out, "...")
	assert.Less(t, len(out), 2200)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	// 2000 字节落在一个三字节字符中间，截断需回退到字符边界
	long := strings.Repeat("内容生成", 300)
	out := truncate(long, 2000)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, "..."))
	assert.LessOrEqual(t, len(out), 2000+len("..."))

	short := "short output"
	assert.Equal(t, short, truncate(short, 2000))
}
