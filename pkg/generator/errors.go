package generator

import (
	"errors"
	"net/http"
	"regexp"

	"google.golang.org/genai"
)

const statusResourceExhausted = "RESOURCE_EXHAUSTED"

// rateLimitKeywordRegex はエラーメッセージからレート制限を推定するための暫定的なパターンです。
// 構造化されたエラーが得られない場合にのみ使用します。
var rateLimitKeywordRegex = regexp.MustCompile(`(?i)rate|quota|limit|throttle`)

// IsRateLimitError は、オラクルのエラーがレート制限・クォータ超過によるものかを判定します。
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return isRateLimitStatus(apiErr)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return isRateLimitStatus(*apiErrPtr)
	}

	return rateLimitKeywordRegex.MatchString(err.Error())
}

func isRateLimitStatus(apiErr genai.APIError) bool {
	return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == statusResourceExhausted
}
