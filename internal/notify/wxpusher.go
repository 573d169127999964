package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// WxPusher delivers operator notifications through the WxPusher message API.
type WxPusher struct {
	baseURL    string
	appToken   string
	uid        string
	httpClient *http.Client
	log        *slog.Logger
}

func NewWxPusher(baseURL, appToken, uid string, log *slog.Logger) *WxPusher {
	return &WxPusher{
		baseURL:  strings.TrimRight(baseURL, "/"),
		appToken: appToken,
		uid:      uid,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (w *WxPusher) Push(ctx context.Context, contact, message string) error {
	payload := map[string]any{
		"appToken":    w.appToken,
		"content":     fmt.Sprintf("【新客户留言】\n联系方式：%s\n留言内容：%s", contact, message),
		"contentType": 1,
		"uids":        []string{w.uid},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal wxpusher payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+"/api/send/message", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post wxpusher: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read wxpusher response: %w", err)
	}

	var sendResp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.Unmarshal(rawBody, &sendResp); err != nil {
		return fmt.Errorf("decode wxpusher response: %w", err)
	}
	// WxPusher reports success with code 1000.
	if sendResp.Code != 1000 {
		if w.log != nil {
			w.log.Error("wxpusher send rejected", "code", sendResp.Code, "msg", sendResp.Msg)
		}
		return fmt.Errorf("wxpusher send failed: code=%d msg=%s", sendResp.Code, sendResp.Msg)
	}
	return nil
}
