package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/store"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// payload は JSON レスポンスの本文です。
type payload map[string]any

// エラーレスポンスのメッセージ
const (
	msgValidationFailed = "Validation failed"
	msgInvalidJSON      = "Invalid JSON body"
	msgBodyTooLarge     = "Request body too large"
	msgNoImages         = "No images available to create PDF"
	msgInternal         = "Internal server error"
	msgNotFound         = "Resource not found"
)

// writeJSON は status と JSON 本文を書き込みます。
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("レスポンスの書き込みに失敗しました", "error", err)
	}
}

// writeSuccess は success:true を付与して 200 で返します。
func writeSuccess(w http.ResponseWriter, body payload) {
	if body == nil {
		body = payload{}
	}
	body["success"] = true
	writeJSON(w, http.StatusOK, body)
}

// writeFailure は success:false と message を返します。
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, payload{"success": false, "message": message})
}

// writeError はエラーの種類を HTTP ステータスに対応付けて返します。
// 対応付けのないエラーは fallback のメッセージで 500 を返します。
func writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, workflow.ErrAPIKeyMissing):
		writeFailure(w, http.StatusInternalServerError, workflow.ErrAPIKeyMissing.Error())
	case errors.Is(err, store.ErrNotFound):
		writeFailure(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, publisher.ErrNoImages):
		writeFailure(w, http.StatusBadRequest, msgNoImages)
	case errors.Is(err, context.Canceled):
		slog.InfoContext(r.Context(), "リクエストがキャンセルされました", "path", r.URL.Path)
		writeFailure(w, http.StatusServiceUnavailable, "Request canceled")
	default:
		slog.ErrorContext(r.Context(), "リクエストの処理に失敗しました", "path", r.URL.Path, "error", err)
		writeFailure(w, http.StatusInternalServerError, fallback)
	}
}

// decodeJSON はリクエストボディを検証してから dst にデコードします。
// 失敗した場合はエラーレスポンスを書き込み、false を返します。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, rules ...rule) bool {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeFailure(w, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
			return false
		}
		writeFailure(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		data = []byte("{}")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	if errs := validate(fields, rules...); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, payload{
			"success": false,
			"message": msgValidationFailed,
			"errors":  errs,
		})
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		writeFailure(w, http.StatusBadRequest, msgInvalidJSON)
		return false
	}
	return true
}
