package recognizer

import (
	"regexp"
	"strings"
)

// tokenPattern 匹配模型输出中的特殊标记，如 <|zh|>、<|NEUTRAL|>
var tokenPattern = regexp.MustCompile(`<\|([^|]*)\|>`)

// knownLanguages 模型可能输出的语言标记
var knownLanguages = map[string]bool{
	"zh":       true,
	"en":       true,
	"yue":      true,
	"ja":       true,
	"ko":       true,
	"nospeech": true,
}

// Postprocess 清理模型原始输出：剥离特殊标记、压缩空白，
// 并从第一个语言标记推断语言代码。没有语言标记时返回空语言。
func Postprocess(raw string) (text, language string) {
	matches := tokenPattern.FindAllStringSubmatch(raw, -1)
	for _, m := range matches {
		token := strings.ToLower(m[1])
		if language == "" && knownLanguages[token] {
			language = token
		}
	}

	text = tokenPattern.ReplaceAllString(raw, " ")
	text = strings.Join(strings.Fields(text), " ")
	return text, language
}
