package parser

import "github.com/tidwall/gjson"

// messageText extracts the text of a chat message content field,
// which agents encode either as a plain string or as an array of
// blocks carrying a "text" member. For arrays the first non-blank
// text block wins; blocks with a non-text "type" are skipped.
func messageText(content gjson.Result) string {
	if content.Type == gjson.String {
		return content.Str
	}
	if !content.IsArray() {
		return ""
	}
	var text string
	content.ForEach(func(_, block gjson.Result) bool {
		if t := block.Get("type").Str; t != "" && t != "text" {
			return true
		}
		if s := block.Get("text").Str; collapseSpace(s) != "" {
			text = s
			return false
		}
		return true
	})
	return text
}
