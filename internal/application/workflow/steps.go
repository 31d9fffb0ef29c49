// Package workflow 提供内容生成工作流引擎
package workflow

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"seo-article-api/internal/domain/entity"
)

// stepSpec 单个工作流步骤的定义
// buildPrompt 基于主题和已完成步骤的产出拼装提示词
type stepSpec struct {
	step        entity.WorkflowStep
	buildPrompt func(topic string, results map[entity.WorkflowStep]entity.StepResult) string
}

// stepSpecs 按执行顺序排列的全部步骤
var stepSpecs = []stepSpec{
	{
		step: entity.StepResearch,
		buildPrompt: func(topic string, _ map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Research the topic "%s" for an SEO article.
Identify the search intent, the main questions readers ask, related keywords and long-tail variations, and the angles competing articles cover.
Summarize your findings as structured research notes.`, topic)
		},
	},
	{
		step: entity.StepPlanning,
		buildPrompt: func(topic string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Based on the research notes below, create a detailed outline for an SEO article about "%s".
Include a working title, H2/H3 headings, the target keyword for each section, and a one-line summary of what each section covers.

Research notes:
%s`, topic, results[entity.StepResearch].Content)
		},
	},
	{
		step: entity.StepWriting,
		buildPrompt: func(topic string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Write a complete SEO article about "%s" following the outline below.
Write naturally for human readers, work the target keywords into headings and body text, and keep paragraphs short.

Outline:
%s`, topic, results[entity.StepPlanning].Content)
		},
	},
	{
		step: entity.StepEditing,
		buildPrompt: func(_ string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Edit and polish the article below.
Fix grammar and flow, tighten wording, ensure headings follow a consistent hierarchy, and keep keyword usage natural.
Return the full revised article.

Article:
%s`, results[entity.StepWriting].Content)
		},
	},
	{
		step: entity.StepPublishing,
		buildPrompt: func(topic string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Prepare the article below for publishing.
Produce a meta title (under 60 characters), a meta description (under 160 characters), a URL slug, and suggested internal/external link anchors for "%s".

Article:
%s`, topic, results[entity.StepEditing].Content)
		},
	},
	{
		step: entity.StepAnalysis,
		buildPrompt: func(_ string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Analyze the SEO quality of the article below.
Score keyword coverage, readability, structure, and search-intent match, and list the concrete weaknesses you find.

Article:
%s`, results[entity.StepEditing].Content)
		},
	},
	{
		step: entity.StepImprovement,
		buildPrompt: func(topic string, results map[entity.WorkflowStep]entity.StepResult) string {
			return fmt.Sprintf(`Based on everything produced so far for "%s", give a prioritized list of improvement recommendations:
what to change in the article, which sections to expand, and which follow-up articles would strengthen topical authority.

%s`, topic, digest(results))
		},
	},
}

// digest 汇总各步骤产出，供最后的改进建议步骤使用
func digest(results map[entity.WorkflowStep]entity.StepResult) string {
	var b strings.Builder
	for _, step := range entity.StepSequence {
		r, ok := results[step]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("--- %s ---\n%s\n\n", step, truncate(r.Content, 2000)))
	}
	return b.String()
}

// truncate 截断过长的步骤产出，避免提示词超限
// 截断点回退到字符边界，不产生残缺的多字节序列
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
