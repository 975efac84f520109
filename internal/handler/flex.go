package handler

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexInt はJSONの数値と数値文字列の両方を受け付ける整数型。
// モバイルクライアントはdiveNumberを文字列で送ることがある。
type flexInt int

// UnmarshalJSON はjson.Unmarshalerインターフェースを実装する。
func (f *flexInt) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*f = flexInt(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		val, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("flexInt: invalid integer string %q: %w", s, err)
		}
		*f = flexInt(val)
		return nil
	}

	return fmt.Errorf("flexInt: cannot unmarshal %s", string(data))
}

// flexStringList はJSONの文字列単体と文字列配列の両方を受け付けるリスト型。
// conditionsフィールドは単一タグでも配列でも送られてくる。
type flexStringList []string

// UnmarshalJSON はjson.Unmarshalerインターフェースを実装する。
func (f *flexStringList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}

	// '['で始まる場合は通常の配列として扱う
	if data[0] == '[' {
		var slice []string
		if err := json.Unmarshal(data, &slice); err != nil {
			return err
		}
		*f = flexStringList(slice)
		return nil
	}

	// それ以外は単一要素として配列に包む
	var item string
	if err := json.Unmarshal(data, &item); err != nil {
		return err
	}
	*f = flexStringList{item}
	return nil
}
