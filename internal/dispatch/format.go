package dispatch

import (
	"fmt"
	"strings"

	"regime-signal-bot/internal/types"
)

func sideEmoji(s types.Side) string {
	if s == types.Buy {
		return "🟢"
	}
	return "🔴"
}

// FormatSignal renders one signal as a Telegram Markdown message.
func FormatSignal(sig types.Signal, version string) string {
	e := sideEmoji(sig.Side)
	var b strings.Builder
	fmt.Fprintf(&b, "%s *Regime Signal v%s* %s\n", e, version, e)
	fmt.Fprintf(&b, "*Protocol:* %s\n\n", orNA(sig.Source))
	fmt.Fprintf(&b, "*Pair:* `%s`\n", sig.Symbol)
	fmt.Fprintf(&b, "*Side:* `%s`\n", sig.Side)
	fmt.Fprintf(&b, "*Entry:* `%s`\n", sig.EntryString())
	fmt.Fprintf(&b, "*Take-Profit 1:* `%s`\n", sig.TakeProfitString())
	fmt.Fprintf(&b, "*Stop-Loss:* `%s`\n", sig.StopLossString())
	return b.String()
}

var bucketLines = []struct {
	status types.Status
	label  string
}{
	{types.StatusUptrend, "🟢 *Uptrend:*"},
	{types.StatusRanging, "🟡 *Ranging:*"},
	{types.StatusDowntrend, "🔴 *Downtrend:*"},
	{types.StatusInsufficientData, "⚪️ *Skipped (Insufficient History):*"},
	{types.StatusDataFetchFailed, "🔵 *Skipped (Data Fetch Failed):*"},
	{types.StatusAnalysisFailed, "⚫️ *Failed (Analysis Error):*"},
}

// FormatReport renders the market summary sent when a cycle produced no
// signal.
func FormatReport(ledger types.Ledger, signalsFound int, reportType, version, quote string) string {
	header := "No high-probability entry signals were found."
	if signalsFound > 0 {
		header = fmt.Sprintf("Found %d trading signals.", signalsFound)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📊 *%s Intelligence Report - v%s* 📊\n\n", reportType, version)
	fmt.Fprintf(&b, "Scan complete. *%d assets analyzed.*\n", ledger.Analyzed())
	fmt.Fprintf(&b, "_%s_\n\n", header)
	b.WriteString("*Market Overview:*\n")
	for i, line := range bucketLines {
		assets := ledger[line.status]
		fmt.Fprintf(&b, "%s %d\n`%s`\n", line.label, len(assets), FormatAssetList(assets, quote))
		// the three regime buckets are separated by a blank line
		if i < 3 {
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatAssetList joins symbols without their quote suffix, or "None".
func FormatAssetList(symbols []string, quote string) string {
	if len(symbols) == 0 {
		return "None"
	}
	suffix := "/" + quote
	bases := make([]string, len(symbols))
	for i, s := range symbols {
		bases[i] = strings.TrimSuffix(s, suffix)
	}
	return strings.Join(bases, ", ")
}

// DigestEntry is one symbol's score in the periodic sentiment digest.
type DigestEntry struct {
	Symbol string
	Score  float64
}

// FormatDigest renders the sentiment digest. Entries must be sorted by
// score, highest first.
func FormatDigest(entries []DigestEntry, topN int, version, quote string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 *Sentiment Digest - v%s* 📰\n\n", version)
	fmt.Fprintf(&b, "Headlines scored for *%d assets.*\n\n", len(entries))

	n := min(topN, len(entries))
	b.WriteString("*Most positive:*\n")
	writeDigestLines(&b, entries[:n], quote)
	b.WriteString("\n*Most negative:*\n")
	tail := make([]DigestEntry, 0, n)
	for i := len(entries) - 1; i >= len(entries)-n; i-- {
		tail = append(tail, entries[i])
	}
	writeDigestLines(&b, tail, quote)
	return strings.TrimRight(b.String(), "\n")
}

func writeDigestLines(b *strings.Builder, entries []DigestEntry, quote string) {
	if len(entries) == 0 {
		b.WriteString("`None`\n")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(b, "`%s` %+.2f\n", strings.TrimSuffix(e.Symbol, "/"+quote), e.Score)
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
