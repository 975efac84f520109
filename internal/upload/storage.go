// Package upload はアップロードファイルの保存を提供する。
package upload

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// dataURIPattern は "data:image/png;base64,...." 形式のペイロードを分解する。
var dataURIPattern = regexp.MustCompile(`^data:(.*?);base64,(.*)$`)

// Storage はアップロードファイルをローカルディスクへ保存する。
// ファイル名は推測不能にするためUUIDで採番する。
type Storage struct {
	dir      string
	maxBytes int64
}

// NewStorage はStorageを生成する。保存ディレクトリは必要に応じて作成される。
func NewStorage(dir string, maxBytes int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create uploads directory: %w", err)
	}
	return &Storage{dir: dir, maxBytes: maxBytes}, nil
}

// Dir は保存ディレクトリを返す。静的配信の設定に使用する。
func (s *Storage) Dir() string {
	return s.dir
}

// SaveBase64 はbase64ペイロード（data URI形式またはプレーンbase64）を
// デコードして保存し、公開パス（"/uploads/<name>"）を返す。
func (s *Storage) SaveBase64(prefix, payload string) (string, error) {
	encoded := payload
	ext := "png"

	if m := dataURIPattern.FindStringSubmatch(payload); m != nil {
		if parts := strings.SplitN(m[1], "/", 2); len(parts) == 2 && parts[1] != "" {
			ext = parts[1]
		}
		encoded = m[2]
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("invalid base64 payload: %w", err)
	}

	return s.SaveBytes(prefix, ext, data)
}

// SaveBytes はバイト列をUUID採番のファイル名で保存し、公開パスを返す。
func (s *Storage) SaveBytes(prefix, ext string, data []byte) (string, error) {
	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return "", fmt.Errorf("file exceeds maximum size of %d bytes", s.maxBytes)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("empty file")
	}

	ext = strings.TrimPrefix(ext, ".")
	name := fmt.Sprintf("%s_%s.%s", prefix, uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}

	return "/uploads/" + name, nil
}
