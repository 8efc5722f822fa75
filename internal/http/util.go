package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"floor-data/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError 按错误类别写 400 / 404 / 409 / 500
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), FailErr(err))
}

func parseBool(s string, def bool) bool {
	if s == "" {
		return def
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return def
	}
	return b
}

func readBodyJSON(r *http.Request, maxBytes int64, out any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBytes))
	if err != nil {
		return err
	}
	if len(body) == 0 {
		return nil
	}
	return json.Unmarshal(body, out)
}

// pathID 取 prefix 之后的单段 id；多段或为空时返回 false
func pathID(path, prefix string) (string, bool) {
	id := strings.TrimPrefix(path, prefix)
	if id == "" || id == path || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// pathIDAction 解析 prefix/{id}/{action}
func pathIDAction(path, prefix string) (id, action string, ok bool) {
	rest := strings.TrimPrefix(path, prefix)
	if rest == path {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// 辅助函数：从 map 中获取字符串值
func getString(payload map[string]any, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
		if num, ok := v.(float64); ok {
			return strconv.FormatFloat(num, 'f', -1, 64)
		}
	}
	return ""
}

// 辅助函数：字符串指针（键不存在 = nil；null = 空字符串，表示清空）
func getStringPtr(payload map[string]any, key string) *string {
	v, ok := payload[key]
	if !ok {
		return nil
	}
	if v == nil {
		s := ""
		return &s
	}
	s := getString(payload, key)
	return &s
}

func getBoolPtr(payload map[string]any, key string) *bool {
	if v, ok := payload[key]; ok {
		if b, ok := v.(bool); ok {
			return &b
		}
	}
	return nil
}

func getFloatPtr(payload map[string]any, key string) (*float64, error) {
	v, ok := payload[key]
	if !ok || v == nil {
		return nil, nil
	}
	f, ok := v.(float64)
	if !ok {
		return nil, apperr.Validation("%s must be a number", key)
	}
	return &f, nil
}

func getIntPtr(payload map[string]any, key string) (*int, error) {
	f, err := getFloatPtr(payload, key)
	if err != nil || f == nil {
		return nil, err
	}
	if *f != float64(int(*f)) {
		return nil, apperr.Validation("%s must be an integer", key)
	}
	i := int(*f)
	return &i, nil
}

// jsonRawOrString 合法 JSON 原样输出，否则按字符串输出
func jsonRawOrString(s string) any {
	if s == "" {
		return s
	}
	if json.Valid([]byte(s)) {
		return json.RawMessage([]byte(s))
	}
	return s
}

// layoutDataString 请求中的 layout_data 可以是 JSON 对象或 JSON 字符串
func layoutDataString(payload map[string]any) (*string, error) {
	v, ok := payload["layout_data"]
	if !ok {
		return nil, nil
	}
	switch t := v.(type) {
	case nil:
		s := ""
		return &s, nil
	case string:
		return &t, nil
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, apperr.Validation("invalid layout_data: %v", err)
		}
		s := string(b)
		return &s, nil
	}
}

func invalidBody(err error) error {
	return apperr.Validation("invalid body: %v", err)
}
