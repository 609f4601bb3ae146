package email

import (
	"fmt"
	"html/template"
	"strings"
)

// DigestItem is one triggered alert inside a batched email.
type DigestItem struct {
	Symbol       string
	StockName    string
	Headline     string // "AAPL rose above $150.00"
	Threshold    string // formatted, e.g. "$150.00"
	TriggerPrice string
	Message      string
	TriggeredAt  string
}

// Subject builds the batched subject line, listing at most three symbols.
func Subject(symbols []string) string {
	seen := make(map[string]bool, len(symbols))
	var distinct []string
	for _, s := range symbols {
		if !seen[s] {
			seen[s] = true
			distinct = append(distinct, s)
		}
	}

	if len(distinct) == 1 {
		return "⚡ Cortex Alert: " + distinct[0]
	}
	listed := distinct
	suffix := ""
	if len(distinct) > 3 {
		listed = distinct[:3]
		suffix = "..."
	}
	return "⚡ Cortex Alert: " + strings.Join(listed, ", ") + suffix
}

// TextBody renders the plain-text part of the digest.
func TextBody(items []DigestItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cortex - %d alert(s) triggered\n", len(items))
	for _, item := range items {
		fmt.Fprintf(&b, "\n• %s: %s (%s)", item.Symbol, item.TriggerPrice, item.Headline)
	}
	return b.String()
}

var digestTemplate = template.Must(template.New("digest").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="margin: 0; padding: 0; background-color: #0f0f1a; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;">
  <table width="100%" cellpadding="0" cellspacing="0" style="background-color: #0f0f1a; padding: 40px 0;">
    <tr>
      <td align="center">
        <table width="560" cellpadding="0" cellspacing="0" style="background-color: #1a1a2e; border-radius: 16px; overflow: hidden; border: 1px solid #2a2a3e;">
          <tr>
            <td style="padding: 28px 24px; background: linear-gradient(135deg, #6c63ff 0%, #4834d4 100%); text-align: center;">
              <div style="font-size: 24px; font-weight: 800; color: #ffffff;">⚡ Cortex Alert</div>
              <div style="font-size: 14px; color: rgba(255,255,255,0.8); margin-top: 4px;">{{len .}} alert(s) triggered</div>
            </td>
          </tr>
{{range .}}          <tr>
            <td style="padding: 16px 20px; border-bottom: 1px solid #2a2a3e;">
              <div>
                <span style="font-size: 18px; font-weight: 700; color: #ffffff;">{{.Symbol}}</span>
                <span style="font-size: 13px; color: #8b8ba3; margin-left: 8px;">{{.StockName}}</span>
              </div>
              <div style="margin-top: 8px; font-size: 14px; color: #c4c4d4;">{{.Headline}}</div>
              <div style="margin-top: 6px;">
                <span style="font-size: 22px; font-weight: 700; color: #00d4aa;">{{.TriggerPrice}}</span>
                <span style="font-size: 12px; color: #8b8ba3; margin-left: 6px;">current price</span>
              </div>
{{if .Message}}              <div style="margin-top: 6px; font-size: 13px; color: #8b8ba3; font-style: italic;">{{.Message}}</div>
{{end}}              <div style="margin-top: 8px; font-size: 11px; color: #5a5a7a;">Triggered at {{.TriggeredAt}}</div>
            </td>
          </tr>
{{end}}          <tr>
            <td style="padding: 20px 24px; text-align: center; border-top: 1px solid #2a2a3e;">
              <div style="font-size: 11px; color: #5a5a7a;">You're receiving this because you enabled email alerts on Cortex.</div>
            </td>
          </tr>
        </table>
      </td>
    </tr>
  </table>
</body>
</html>
`))

// HTMLBody renders the styled digest. On template failure it returns an
// empty string; the plain-text part always goes out.
func HTMLBody(items []DigestItem) string {
	var b strings.Builder
	if err := digestTemplate.Execute(&b, items); err != nil {
		return ""
	}
	return b.String()
}
