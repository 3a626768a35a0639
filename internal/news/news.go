// Package news pulls market headlines from the Sina roll feed.
package news

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"StockSentinel/internal/collector"
)

const (
	DefaultURL     = "https://feed.mix.sina.com.cn/api/roll/get?pageid=153&lid=2509&k=&num=10&page=1"
	DefaultTimeout = 3 * time.Second
)

// FailedLine is returned in place of headlines when the feed cannot be read.
const FailedLine = "获取失败"

// noise lists title keywords of routine flow reports that are dropped.
var noise = []string{"融资", "主力", "龙虎榜"}

// Client reads the headline feed.
type Client struct {
	URL    string
	client *http.Client
}

// NewClient creates a headline client. An empty url selects DefaultURL.
func NewClient(url, proxyURL string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{URL: url, client: collector.NewHTTPClient(proxyURL, DefaultTimeout)}
}

// Headlines returns formatted "【HH:MM】title" lines. It never fails: any
// error yields the single line FailedLine.
func (c *Client) Headlines(ctx context.Context) []string {
	lines, err := c.fetch(ctx)
	if err != nil {
		zap.L().Warn("news fetch failed", zap.Error(err))
		return []string{FailedLine}
	}
	return lines
}

func (c *Client) fetch(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get news: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news feed status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read news: %w", err)
	}
	return ParseFeed(body)
}

// ParseFeed extracts headline lines from a roll feed payload.
func ParseFeed(body []byte) ([]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("news feed: invalid json")
	}
	items := gjson.GetBytes(body, "result.data")
	if !items.IsArray() {
		return nil, fmt.Errorf("news feed: missing result.data")
	}
	lines := []string{}
	items.ForEach(func(_, item gjson.Result) bool {
		title := item.Get("title").String()
		if isNoise(title) {
			return true
		}
		lines = append(lines, fmt.Sprintf("【%s】%s", clock(item.Get("ctime").String()), title))
		return true
	})
	return lines, nil
}

func isNoise(title string) bool {
	for _, k := range noise {
		if strings.Contains(title, k) {
			return true
		}
	}
	return false
}

var shanghai = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()

// clock renders ctime as HH:MM. The feed sends unix seconds; a
// "YYYY-MM-DD HH:MM:SS" string is accepted too.
func clock(ctime string) string {
	if sec, err := strconv.ParseInt(ctime, 10, 64); err == nil {
		return time.Unix(sec, 0).In(shanghai).Format("15:04")
	}
	if len(ctime) >= 16 {
		return ctime[11:16]
	}
	return ""
}
