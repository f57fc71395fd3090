// =============================================================================
// 📦 测试数据工厂 - LLM 回复与搜索后端响应
// =============================================================================
// 提供 ReAct 格式的 LLM 回复文本，以及 Wikipedia / arXiv 后端的响应样例
// =============================================================================
package fixtures

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/BaSui01/searchflow/llm"
)

// =============================================================================
// 🎯 ReAct 回复文本
// =============================================================================

// ReActAction 返回一次工具调用的 ReAct 文本
func ReActAction(thought, tool, input string) string {
	return fmt.Sprintf("Thought: %s\nAction: %s\nAction Input: %s", thought, tool, input)
}

// ReActFinal 返回最终答案的 ReAct 文本
func ReActFinal(thought, answer string) string {
	if thought == "" {
		return "Final Answer: " + answer
	}
	return fmt.Sprintf("Thought: %s\nFinal Answer: %s", thought, answer)
}

// ReActJSONAction 返回 JSON blob 形式的工具调用
func ReActJSONAction(tool, input string) string {
	b, _ := json.Marshal(map[string]string{"action": tool, "action_input": input})
	return "```json\n" + string(b) + "\n```"
}

// SearchThenAnswer 先调用 tool 再给出 answer 的两步脚本
func SearchThenAnswer(tool, input, answer string) []string {
	return []string{
		ReActAction("I should search for this", tool, input),
		ReActFinal("I now know the final answer", answer),
	}
}

// =============================================================================
// 🤖 ChatResponse 工厂
// =============================================================================

// SimpleResponse 返回简单的文本响应
func SimpleResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		ID:       "resp-001",
		Provider: "mock",
		Model:    "llama3-8b-8192",
		Choices: []llm.ChatChoice{{
			FinishReason: "stop",
			Message:      llm.Message{Role: llm.RoleAssistant, Content: content},
		}},
		Usage: llm.ChatUsage{
			PromptTokens:     10,
			CompletionTokens: 20,
			TotalTokens:      30,
		},
		CreatedAt: time.Now(),
	}
}

// =============================================================================
// 🔍 搜索后端响应
// =============================================================================

// WikiPage 是 Wikipedia 响应中的一页
type WikiPage struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

// WikipediaJSON 返回 MediaWiki generator=search 的响应体，index 按传入顺序
func WikipediaJSON(pages ...WikiPage) string {
	type page struct {
		Index int `json:"index"`
		WikiPage
	}
	out := struct {
		Query struct {
			Pages []page `json:"pages"`
		} `json:"query"`
	}{}
	for i, p := range pages {
		out.Query.Pages = append(out.Query.Pages, page{Index: i + 1, WikiPage: p})
	}
	b, _ := json.Marshal(out)
	return string(b)
}

// ArxivEntry 是 arXiv Atom feed 中的一条
type ArxivEntry struct {
	Published string
	Title     string
	Authors   []string
	Summary   string
}

// ArxivFeed 返回 Atom feed 响应体
func ArxivFeed(entries ...ArxivEntry) string {
	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<feed xmlns="http://www.w3.org/2005/Atom">` + "\n")
	for _, e := range entries {
		sb.WriteString("  <entry>\n")
		fmt.Fprintf(&sb, "    <published>%s</published>\n", xmlEscape(e.Published))
		fmt.Fprintf(&sb, "    <title>%s</title>\n", xmlEscape(e.Title))
		fmt.Fprintf(&sb, "    <summary>%s</summary>\n", xmlEscape(e.Summary))
		for _, a := range e.Authors {
			fmt.Fprintf(&sb, "    <author><name>%s</name></author>\n", xmlEscape(a))
		}
		sb.WriteString("  </entry>\n")
	}
	sb.WriteString("</feed>")
	return sb.String()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func xmlEscape(s string) string { return xmlReplacer.Replace(s) }
