package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// --- Enums ---
//
// The string values cross the database boundary as-is. Do not rename them.

type AlertType string

const (
	AlertTypePriceAbove    AlertType = "price_above"
	AlertTypePriceBelow    AlertType = "price_below"
	AlertTypePercentChange AlertType = "percent_change"
	AlertTypeVolumeSpike   AlertType = "volume_spike"
)

type AlertStatus string

const (
	AlertStatusActive    AlertStatus = "active"
	AlertStatusTriggered AlertStatus = "triggered"
	AlertStatusDisabled  AlertStatus = "disabled"
)

type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "in_app"
	ChannelEmail NotificationChannel = "email"
)

// KindSectorDivergence is the notification kind for sector strategy hits.
// It is not an AlertType: no alert row backs these notifications.
const KindSectorDivergence = "sector_divergence"

// actionPhrases feed notification titles: "AAPL rose above $150.00".
var actionPhrases = map[AlertType]string{
	AlertTypePriceAbove:    "rose above",
	AlertTypePriceBelow:    "fell below",
	AlertTypePercentChange: "changed by",
	AlertTypeVolumeSpike:   "volume spiked",
}

func (t AlertType) ActionPhrase() string {
	if phrase, ok := actionPhrases[t]; ok {
		return phrase
	}
	return "triggered"
}

// --- Aggregates ---

type Alert struct {
	ID        int64
	UserID    int64
	Symbol    string
	StockName string

	Type      AlertType
	Threshold decimal.Decimal

	Status      AlertStatus
	IsRepeating bool

	NotifyEmail bool
	NotifySMS   bool
	NotifyPush  bool

	Message       string
	LastCheckedAt *time.Time
	TriggeredAt   *time.Time
	TriggerPrice  decimal.NullDecimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CheckCondition reports whether the alert should fire for the given prices.
// percent_change needs a positive previous close; volume_spike stays false
// until a volume source is wired into the quote payload.
func (a *Alert) CheckCondition(current, previousClose decimal.Decimal) bool {
	switch a.Type {
	case AlertTypePriceAbove:
		return current.GreaterThanOrEqual(a.Threshold)
	case AlertTypePriceBelow:
		return current.LessThanOrEqual(a.Threshold)
	case AlertTypePercentChange:
		if !previousClose.IsPositive() {
			return false
		}
		pct := current.Sub(previousClose).Div(previousClose).Mul(decimal.NewFromInt(100))
		return pct.Abs().GreaterThanOrEqual(a.Threshold)
	default:
		return false
	}
}

// Title renders the notification headline, e.g. "AAPL rose above $150.00".
func (a *Alert) Title() string {
	return a.Symbol + " " + a.Type.ActionPhrase() + " " + FormatMoney(a.Threshold)
}

// --- Entities & Value Objects ---

type User struct {
	ID       int64
	Email    string
	Username string
	IsActive bool

	EmailNotifications bool
	SMSNotifications   bool
	PhoneNumber        string

	CreatedAt time.Time
}

type Sector struct {
	ID     int64
	UserID int64
	Name   string
	Color  string
	Icon   string
	Stocks []SectorStock

	CreatedAt time.Time
}

type SectorStock struct {
	ID        int64
	SectorID  int64
	Symbol    string
	StockName string
}

type SectorStrategy struct {
	ID       int64
	UserID   int64
	SectorID int64
	Sector   *Sector

	IsActive bool

	// PercentMajority of the basket must move past TrendThreshold before the
	// single stock past LaggardThreshold (opposite sign) counts as a laggard.
	PercentMajority  decimal.Decimal
	TrendThreshold   decimal.Decimal
	LaggardThreshold decimal.Decimal

	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

type Notification struct {
	ID      int64
	UserID  int64
	AlertID *int64

	Channel NotificationChannel
	Title   string
	Message string

	// Snapshot fields survive alert deletion.
	Symbol       string
	TriggerPrice decimal.NullDecimal
	Kind         string
	Threshold    decimal.NullDecimal

	IsRead      bool
	EmailSentAt *time.Time
	CreatedAt   time.Time
}

// Quote is the upstream quote payload. A zero Current price means the vendor
// has no data for the symbol.
type Quote struct {
	Current       decimal.Decimal
	High          decimal.Decimal
	Low           decimal.Decimal
	Open          decimal.Decimal
	PreviousClose decimal.Decimal
	Timestamp     int64
}

func (q *Quote) HasData() bool {
	return q != nil && !q.Current.IsZero()
}

// PricePair is the (current, previous close) view the evaluators join
// against. PreviousClose may be zero when only a live tick is known.
type PricePair struct {
	Current       decimal.Decimal
	PreviousClose decimal.Decimal
}

// FormatMoney renders a dollar amount with thousands separators and two
// decimals: 1234.5 -> "$1,234.50".
func FormatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	if d.IsNegative() {
		b.WriteByte('-')
	}
	b.WriteByte('$')
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	b.WriteByte('.')
	b.WriteString(fracPart)
	return b.String()
}
