package upload

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"
)

// URLGuard はリモート取得前のURL検証と安全なクライアント生成のインターフェース。
type URLGuard interface {
	NewSafeClient(timeout time.Duration) *http.Client
	ValidateURL(rawURL string) error
}

// fetchTimeout はリモート画像1件の取得に許す時間。
const fetchTimeout = 10 * time.Second

// extByContentType はContent-Typeから保存用拡張子を決める。
var extByContentType = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/gif":  "gif",
	"image/webp": "webp",
}

// Importer は外部URLから画像を取得するコンポーネント。
// 取得前にURLを静的検証し、取得時はSSRF防止付きクライアントを使用する。
type Importer struct {
	guard    URLGuard
	maxBytes int64
}

// NewImporter はImporterを生成する。
func NewImporter(guard URLGuard, maxBytes int64) *Importer {
	return &Importer{guard: guard, maxBytes: maxBytes}
}

// FetchImage はURLから画像を取得し、バイト列と保存用拡張子を返す。
// 画像以外のContent-Typeやサイズ超過はエラーになる。
func (i *Importer) FetchImage(ctx context.Context, rawURL string) ([]byte, string, error) {
	if err := i.guard.ValidateURL(rawURL); err != nil {
		return nil, "", fmt.Errorf("unsafe image URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build image request: %w", err)
	}

	client := i.guard.NewSafeClient(fetchTimeout)
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status fetching image: %d", resp.StatusCode)
	}

	mediaType, _, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		return nil, "", fmt.Errorf("remote resource is not an image: %q", resp.Header.Get("Content-Type"))
	}
	ext, ok := extByContentType[mediaType]
	if !ok {
		ext = strings.TrimPrefix(mediaType, "image/")
	}

	// maxBytes+1まで読み、超過を検出する。
	limited := io.LimitReader(resp.Body, i.maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	if int64(len(data)) > i.maxBytes {
		return nil, "", fmt.Errorf("image exceeds maximum size of %d bytes", i.maxBytes)
	}

	return data, ext, nil
}
