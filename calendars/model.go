package calendars

import (
	"encoding/json"
	"time"
)

// DateLayout is the ISO date format used on the wire.
const DateLayout = "2006-01-02"

// Scope classifies where a holiday applies.
type Scope string

const (
	ScopeNational Scope = "national"
	ScopeRegional Scope = "regional"
	ScopeLocal    Scope = "local"
	ScopeCompany  Scope = "company"
)

// Scopes lists every accepted holiday scope.
var Scopes = []Scope{ScopeNational, ScopeRegional, ScopeLocal, ScopeCompany}

// IsLocalLike reports whether the scope is local or company. Filters treat
// the two as one group while records keep their own value.
func (s Scope) IsLocalLike() bool {
	return s == ScopeLocal || s == ScopeCompany
}

// Holiday is a public or company holiday of a year.
type Holiday struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Name        string `json:"name"`
	Scope       Scope  `json:"scope"`
	IsConfirmed bool   `json:"is_confirmed"`
	Year        int    `json:"year"`
}

// ClosureType tells whether a closure stops the whole company.
type ClosureType string

const (
	ClosureTotal   ClosureType = "total"
	ClosurePartial ClosureType = "partial"
)

// PayPolicy says how closure days are accounted for. A closure is either
// paid, charged to the leave balance, or neither, never both.
type PayPolicy string

const (
	PayNone          PayPolicy = "none"
	PayPaid          PayPolicy = "paid"
	PayConsumesLeave PayPolicy = "consumes_leave"
)

// Closure is a planned suspension of activity over an inclusive date range.
type Closure struct {
	ID          string
	Name        string
	Description string
	StartDate   string
	EndDate     string
	Type        ClosureType
	Pay         PayPolicy
	Year        int
}

// closureWire is the JSON shape, where the pay policy travels as two flags.
type closureWire struct {
	ID                   string      `json:"id"`
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	StartDate            string      `json:"start_date"`
	EndDate              string      `json:"end_date"`
	ClosureType          ClosureType `json:"closure_type"`
	IsPaid               bool        `json:"is_paid"`
	ConsumesLeaveBalance bool        `json:"consumes_leave_balance"`
	Year                 int         `json:"year"`
}

// PayPolicyFromFlags maps the wire flags to a PayPolicy. When both are set
// the paid flag wins.
func PayPolicyFromFlags(isPaid, consumesLeave bool) PayPolicy {
	switch {
	case isPaid:
		return PayPaid
	case consumesLeave:
		return PayConsumesLeave
	default:
		return PayNone
	}
}

// IsPaid reports whether closure days are paid.
func (c Closure) IsPaid() bool { return c.Pay == PayPaid }

// ConsumesLeaveBalance reports whether closure days are charged to leave balances.
func (c Closure) ConsumesLeaveBalance() bool { return c.Pay == PayConsumesLeave }

// Days returns the number of calendar days covered, both ends included.
// Malformed or inverted ranges cover zero days.
func (c Closure) Days() int {
	start, err := time.Parse(DateLayout, c.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse(DateLayout, c.EndDate)
	if err != nil || end.Before(start) {
		return 0
	}
	return int(end.Sub(start).Hours()/24) + 1
}

// Covers reports whether date (YYYY-MM-DD) falls inside the closure.
func (c Closure) Covers(date string) bool {
	if c.Days() == 0 {
		return false
	}
	return date >= c.StartDate && date <= c.EndDate
}

func (c Closure) MarshalJSON() ([]byte, error) {
	return json.Marshal(closureWire{
		ID:                   c.ID,
		Name:                 c.Name,
		Description:          c.Description,
		StartDate:            c.StartDate,
		EndDate:              c.EndDate,
		ClosureType:          c.Type,
		IsPaid:               c.IsPaid(),
		ConsumesLeaveBalance: c.ConsumesLeaveBalance(),
		Year:                 c.Year,
	})
}

func (c *Closure) UnmarshalJSON(data []byte) error {
	var w closureWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Closure{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		StartDate:   w.StartDate,
		EndDate:     w.EndDate,
		Type:        w.ClosureType,
		Pay:         PayPolicyFromFlags(w.IsPaid, w.ConsumesLeaveBalance),
		Year:        w.Year,
	}
	return nil
}

// ExceptionType marks a day as working or non working.
type ExceptionType string

const (
	ExceptionWorking    ExceptionType = "working"
	ExceptionNonWorking ExceptionType = "non_working"
)

// WorkingDayException overrides the default calendar for one day.
type WorkingDayException struct {
	ID     string        `json:"id"`
	Date   string        `json:"date"`
	Type   ExceptionType `json:"exception_type"`
	Reason string        `json:"reason"`
	Year   int           `json:"year"`
}

// SubscriptionURL is an iCal feed link.
type SubscriptionURL struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// URLSet holds the feeds of one year.
type URLSet struct {
	Holidays SubscriptionURL `json:"holidays"`
	Closures SubscriptionURL `json:"closures"`
	Combined SubscriptionURL `json:"combined"`
}

// ICSKind selects which calendar an ICS download contains.
type ICSKind string

const (
	ICSHolidays ICSKind = "holidays"
	ICSClosures ICSKind = "closures"
	ICSCombined ICSKind = "combined"
)

// Valid reports whether k is a known ICS kind.
func (k ICSKind) Valid() bool {
	return k == ICSHolidays || k == ICSClosures || k == ICSCombined
}
