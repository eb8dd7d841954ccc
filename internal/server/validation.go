package server

import (
	"encoding/json"
	"fmt"
	"strconv"
	"unicode/utf8"
)

// valueType はリクエストボディのフィールドに期待する JSON の型です。
type valueType string

const (
	typeString  valueType = "string"
	typeNumber  valueType = "number"
	typeBoolean valueType = "boolean"
	typeArray   valueType = "array"
	typeObject  valueType = "object"
)

// rule は 1 フィールド分の検証ルールです。
// MinLength/MaxLength は文字列なら文字数、配列なら要素数に適用されます。
type rule struct {
	Field     string
	Required  bool
	Type      valueType
	MinLength int
	MaxLength int
	Min       *float64
	Max       *float64
}

func bound(v float64) *float64 { return &v }

// 各エンドポイントで共有するフィールドルール
var (
	ruleStory            = rule{Field: "story", Required: true, Type: typeString, MinLength: 10, MaxLength: 5000}
	ruleStyle            = rule{Field: "style", Required: true, Type: typeString, MinLength: 2, MaxLength: 100}
	ruleTitle            = rule{Field: "title", Required: true, Type: typeString, MinLength: 1, MaxLength: 200}
	ruleScenes           = rule{Field: "scenes", Required: true, Type: typeArray, MinLength: 1, MaxLength: 20}
	rulePrompts          = rule{Field: "prompts", Required: true, Type: typeArray, MinLength: 1, MaxLength: 20}
	ruleStyleGuide       = rule{Field: "styleGuide", Required: true, Type: typeString, MinLength: 10, MaxLength: 2000}
	ruleMaxWordsPerScene = rule{Field: "maxWordsPerScene", Type: typeNumber, Min: bound(10), Max: bound(100)}
	ruleDPI              = rule{Field: "dpi", Type: typeNumber, Min: bound(50), Max: bound(300)}
	ruleSessionID        = rule{Field: "sessionId", Type: typeString}
	ruleSaveToLibrary    = rule{Field: "saveToLibrary", Type: typeBoolean}
)

// optional は必須指定を外したルールを返します。
func optional(r rule) rule {
	r.Required = false
	return r
}

// validate は body に対してルールを順に適用し、エラーメッセージの一覧を返します。
// 必須チェックや型チェックに失敗したフィールドは、それ以降のチェックを行いません。
func validate(body map[string]json.RawMessage, rules ...rule) []string {
	var errs []string
	for _, r := range rules {
		raw, present := body[r.Field]
		var value any
		if present {
			if err := json.Unmarshal(raw, &value); err != nil {
				errs = append(errs, fmt.Sprintf("%s must be of type %s", r.Field, r.Type))
				continue
			}
		}

		if r.Required && isEmpty(value) {
			errs = append(errs, fmt.Sprintf("%s is required", r.Field))
			continue
		}
		if value == nil {
			continue
		}

		if r.Type != "" && typeOf(value) != r.Type {
			errs = append(errs, fmt.Sprintf("%s must be of type %s", r.Field, r.Type))
			continue
		}

		switch v := value.(type) {
		case string:
			n := utf8.RuneCountInString(v)
			if r.MinLength > 0 && n < r.MinLength {
				errs = append(errs, fmt.Sprintf("%s must be at least %d characters long", r.Field, r.MinLength))
			}
			if r.MaxLength > 0 && n > r.MaxLength {
				errs = append(errs, fmt.Sprintf("%s must be no more than %d characters long", r.Field, r.MaxLength))
			}
		case float64:
			if r.Min != nil && v < *r.Min {
				errs = append(errs, fmt.Sprintf("%s must be at least %s", r.Field, formatNumber(*r.Min)))
			}
			if r.Max != nil && v > *r.Max {
				errs = append(errs, fmt.Sprintf("%s must be no more than %s", r.Field, formatNumber(*r.Max)))
			}
		case []any:
			if r.MinLength > 0 && len(v) < r.MinLength {
				errs = append(errs, fmt.Sprintf("%s must have at least %d items", r.Field, r.MinLength))
			}
			if r.MaxLength > 0 && len(v) > r.MaxLength {
				errs = append(errs, fmt.Sprintf("%s must have no more than %d items", r.Field, r.MaxLength))
			}
		}
	}
	return errs
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

func typeOf(v any) valueType {
	switch v.(type) {
	case string:
		return typeString
	case float64:
		return typeNumber
	case bool:
		return typeBoolean
	case []any:
		return typeArray
	default:
		return typeObject
	}
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
