package tokenizer

import (
	"unicode"
	"unicode/utf8"
)

const (
	// 每条消息的角色标记与分隔符开销.
	messageOverhead = 4
	// 对话结尾开销.
	replyPriming = 3

	cjkRunesPerToken   = 1.5
	otherRunesPerToken = 4.0

	defaultEstimatorContext = 4096
)

// EstimatorTokenizer 按字符数估算 token，CJK 与其他字符分别计价。
// Groq 托管的 llama/mixtral 模型没有公开的 tiktoken 编码时使用。
type EstimatorTokenizer struct {
	model     string
	maxTokens int
}

// NewEstimatorTokenizer 创建估算器；maxTokens <= 0 时使用 4096.
func NewEstimatorTokenizer(model string, maxTokens int) *EstimatorTokenizer {
	if maxTokens <= 0 {
		maxTokens = defaultEstimatorContext
	}
	return &EstimatorTokenizer{model: model, maxTokens: maxTokens}
}

func (e *EstimatorTokenizer) CountTokens(text string) (int, error) {
	return estimate(text), nil
}

func (e *EstimatorTokenizer) CountMessages(messages []Message) (int, error) {
	total := replyPriming
	for _, msg := range messages {
		total += estimate(msg.Content) + messageOverhead
	}
	return total, nil
}

func (e *EstimatorTokenizer) MaxTokens() int { return e.maxTokens }

func (e *EstimatorTokenizer) Name() string { return "estimator" }

func estimate(text string) int {
	if text == "" {
		return 0
	}
	cjk := 0
	for _, r := range text {
		if isCJK(r) {
			cjk++
		}
	}
	other := utf8.RuneCountInString(text) - cjk
	n := int(float64(cjk)/cjkRunesPerToken + float64(other)/otherRunesPerToken)
	if n == 0 {
		return 1
	}
	return n
}

func isCJK(r rune) bool {
	return unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
}
