package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"StockSentinel/internal/dashboard"
	"StockSentinel/internal/model"
)

// esc escapes dynamic text for Telegram's HTML parse mode. Alert messages
// carry comparisons like "85.00<90.00" that would otherwise break parsing.
func esc(s string) string { return html.EscapeString(s) }

// FormatAlerts formats the alerts of one scan. Returns "" when there are none.
func FormatAlerts(res *model.ScanResult) string {
	if res == nil || len(res.Alerts) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🔔 <b>StockSentinel 预警</b> | %s\n\n", res.FinishedAt.In(shanghai).Format("01-02 15:04")))
	for _, a := range res.Alerts {
		b.WriteString(fmt.Sprintf("%s <code>%s</code>\n", esc(a.Message), esc(string(a.Ticker))))
	}
	return b.String()
}

// FormatScanResult formats a scan summary for the /scan command.
func FormatScanResult(res *model.ScanResult) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📡 <b>扫描完成</b> | %s\n", res.FinishedAt.In(shanghai).Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("标的: %d | 预警: %d | 耗时: %s\n",
		len(res.Quotes)+len(res.Skipped), len(res.Alerts),
		res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond)))
	if len(res.Skipped) > 0 {
		b.WriteString(fmt.Sprintf("无行情: %s\n", esc(joinTickers(res.Skipped))))
	}
	if len(res.Unavailable) > 0 {
		b.WriteString(fmt.Sprintf("指标失败: %s\n", esc(joinTickers(res.Unavailable))))
	}
	if len(res.Alerts) == 0 {
		b.WriteString("\n✅ 无预警")
		return b.String()
	}
	b.WriteString("\n")
	for _, a := range res.Alerts {
		b.WriteString(esc(a.Message))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMarket formats the market strip.
func FormatMarket(rows []dashboard.IndexRow) string {
	var b strings.Builder
	b.WriteString("📈 <b>大盘</b>\n")
	for _, r := range rows {
		if r.Price <= 0 {
			b.WriteString(fmt.Sprintf("%s: --\n", esc(r.Name)))
			continue
		}
		b.WriteString(fmt.Sprintf("%s: %.2f (%+.2f%%)\n", esc(r.Name), r.Price, r.ChangePct))
	}
	return b.String()
}

// FormatSectors formats the sector board, strongest first.
func FormatSectors(rows []dashboard.SectorRow) string {
	var b strings.Builder
	b.WriteString("🧭 <b>板块风向</b>\n")
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		mark := "🔴"
		if r.ChangePct < 0 {
			mark = "🟢"
		}
		if !r.Available {
			b.WriteString(fmt.Sprintf("⚪ %s: --\n", esc(r.Name)))
			continue
		}
		b.WriteString(fmt.Sprintf("%s %s: %+.2f%%\n", mark, esc(r.Name), r.ChangePct))
	}
	return b.String()
}

// FormatHoldings formats the holdings table.
func FormatHoldings(rows []dashboard.HoldingRow) string {
	if len(rows) == 0 {
		return "💼 暂无持仓"
	}
	var b strings.Builder
	b.WriteString("💼 <b>持仓风控</b>\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("<b>%s</b> (%s)\n", esc(r.Name), esc(string(r.Ticker))))
		b.WriteString(fmt.Sprintf("  现价 %.2f | 成本 %.2f | 盈亏 %+.2f%%\n", r.Price, r.Cost, r.ProfitPct))
		b.WriteString(fmt.Sprintf("  止盈 %.1f%% | 止损 %.1f%% | 支撑 %.2f\n", r.ProfitTarget, r.LossLimit, r.Support))
		b.WriteString(fmt.Sprintf("  %s\n", esc(string(r.Status))))
	}
	return b.String()
}

// FormatWatchTable formats the watch table.
func FormatWatchTable(rows []dashboard.WatchRow) string {
	if len(rows) == 0 {
		return "👀 自选为空"
	}
	var b strings.Builder
	b.WriteString("👀 <b>自选监控</b>\n\n")
	for _, r := range rows {
		b.WriteString(fmt.Sprintf("<b>%s</b> %s", esc(r.Name), esc(r.Strategy.Label())))
		if r.Price > 0 {
			b.WriteString(fmt.Sprintf(" %.2f (%+.2f%%)", r.Price, r.ChangePct))
		} else {
			b.WriteString(" --")
		}
		if r.Signal != "" {
			b.WriteString(" " + esc(r.Signal))
		}
		b.WriteString("\n")
		if r.MA20Dev != nil {
			b.WriteString(fmt.Sprintf("  量比 %s | MA20 %s | MA60 %s\n",
				formatValue(r.VolumeRatio, "%.2f"), formatValue(r.MA20Dev, "%+.1f%%"), formatValue(r.MA60Dev, "%+.1f%%")))
		}
	}
	return b.String()
}

// FormatNews formats headline lines.
func FormatNews(lines []string) string {
	if len(lines) == 0 {
		return "📰 暂无快讯"
	}
	var b strings.Builder
	b.WriteString("📰 <b>市场快讯</b>\n")
	for _, l := range lines {
		b.WriteString(esc(l))
		b.WriteString("\n")
	}
	return b.String()
}

// FormatAdvice wraps an advisor answer.
func FormatAdvice(question, answer string) string {
	return fmt.Sprintf("🤖 <b>%s</b>\n\n%s", esc(question), esc(answer))
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "<b>StockSentinel 命令</b>\n" +
		"/scan - 立即扫描\n" +
		"/market - 大盘指数\n" +
		"/sectors - 板块风向\n" +
		"/holdings - 持仓风控\n" +
		"/watch - 自选监控\n" +
		"/news - 市场快讯\n" +
		"/ask &lt;问题&gt; - 咨询风控助手\n" +
		"/help - 帮助"
}

func formatValue(v *model.Value, format string) string {
	if v == nil || !v.OK {
		return "--"
	}
	return fmt.Sprintf(format, v.V)
}

func joinTickers(ts []model.Ticker) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = string(t)
	}
	return strings.Join(parts, ", ")
}

var shanghai = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()
