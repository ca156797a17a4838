package pipeline

import (
	"fmt"
	"strings"
)

// The prompt templates are kept in Chinese, matching the qwen-plus
// deployment they were tuned against. Each instructs the model to reply
// with bare JSON; models still wrap replies in code fences often enough
// that stripFences runs on every reply.

const (
	classifySystem = "You are a content classification expert."
	mergeSystem    = "You are a helpful AI assistant."
	organizeSystem = "You are a content organization expert that outputs well-structured Markdown."
)

func classifyPrompt(content string) string {
	return fmt.Sprintf(`请分析以下内容，确定它是否应该被保存为笔记。

内容：
%s

请按以下 JSON 格式回复：
{
    "is_note": true/false,
    "note_type": "待办事项/零散知识/灵感想法/参考材料/会议记录/代码片段/其他",
    "confidence": 0-1之间的置信度,
    "reason": "简要说明理由"
}

只返回 JSON，不要其他文本。`, content)
}

func mergePrompt(content, noteType string, candidateTitles []string) string {
	titles := "暂无"
	if len(candidateTitles) > 0 {
		var b strings.Builder
		for i, t := range candidateTitles {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString("- " + t)
		}
		titles = b.String()
	}

	return fmt.Sprintf(`请分析以下新内容，判断是否应该与现有笔记合并。

新内容摘要：
%s

笔记类型：%s

现有同类笔记标题（如有）：
%s

请按以下 JSON 格式回复：
{
    "should_merge": true/false,
    "merge_target": "目标笔记标题（如不需合并则为null）",
    "merge_reason": "合并理由",
    "confidence": 0-1之间的置信度
}

只返回 JSON，不要其他文本。`, truncateRunes(content, 200), noteType, titles)
}

func organizePrompt(content, noteType string) string {
	return fmt.Sprintf(`请整理以下内容为结构化 Markdown，并提取重要时间点。

原始内容：
%s

笔记类型：%s

请按照以下 JSON 格式回复：
{
    "organized_markdown": "整理后的 Markdown 格式内容",
    "key_dates": [
        {"date": "YYYY-MM-DD", "description": "事件描述"},
        ...
    ],
    "key_points": ["要点1", "要点2", "要点3"],
    "summary": "一句话总结"
}

只返回 JSON，不要其他文本。`, content, noteType)
}

// truncateRunes shortens s to at most n runes. The merge prompt only
// embeds a summary-sized excerpt of the new content.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
