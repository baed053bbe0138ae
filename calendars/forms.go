package calendars

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var errPayFlagsExclusive = errors.New("is_paid and consumes_leave_balance cannot both be set")

// HolidayForm is the input of holiday create and update.
type HolidayForm struct {
	Date  string `json:"date"`
	Name  string `json:"name"`
	Scope Scope  `json:"scope"`
}

// Validate only checks required fields; business rules are the server's.
func (f HolidayForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.Scope, validation.Required, validation.In(ScopeNational, ScopeRegional, ScopeLocal, ScopeCompany)),
	)
}

// HolidayFormFrom prefills a form for editing h.
func HolidayFormFrom(h Holiday) HolidayForm {
	return HolidayForm{Date: h.Date, Name: h.Name, Scope: h.Scope}
}

// ClosureForm is the input of closure create and update. The two pay flags
// are kept for wire compatibility; use SetPaid and SetConsumesLeaveBalance
// so that turning one on turns the other off.
type ClosureForm struct {
	Name                 string      `json:"name"`
	Description          string      `json:"description"`
	StartDate            string      `json:"start_date"`
	EndDate              string      `json:"end_date"`
	ClosureType          ClosureType `json:"closure_type"`
	IsPaid               bool        `json:"is_paid"`
	ConsumesLeaveBalance bool        `json:"consumes_leave_balance"`
}

// ClosureFormFrom prefills a form for editing c.
func ClosureFormFrom(c Closure) ClosureForm {
	f := ClosureForm{
		Name:        c.Name,
		Description: c.Description,
		StartDate:   c.StartDate,
		EndDate:     c.EndDate,
		ClosureType: c.Type,
	}
	f.SetPayPolicy(c.Pay)
	return f
}

// SetPaid toggles the paid flag, clearing consumes_leave_balance when set.
func (f *ClosureForm) SetPaid(v bool) {
	f.IsPaid = v
	if v {
		f.ConsumesLeaveBalance = false
	}
}

// SetConsumesLeaveBalance toggles the leave flag, clearing is_paid when set.
func (f *ClosureForm) SetConsumesLeaveBalance(v bool) {
	f.ConsumesLeaveBalance = v
	if v {
		f.IsPaid = false
	}
}

// SetPayPolicy sets both flags from p.
func (f *ClosureForm) SetPayPolicy(p PayPolicy) {
	f.IsPaid = p == PayPaid
	f.ConsumesLeaveBalance = p == PayConsumesLeave
}

// PayPolicy returns the policy the flags describe.
func (f ClosureForm) PayPolicy() PayPolicy {
	return PayPolicyFromFlags(f.IsPaid, f.ConsumesLeaveBalance)
}

func (f ClosureForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Name, validation.Required),
		validation.Field(&f.StartDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&f.EndDate, validation.Required, validation.Date(DateLayout)),
		validation.Field(&f.ClosureType, validation.Required, validation.In(ClosureTotal, ClosurePartial)),
		validation.Field(&f.ConsumesLeaveBalance, validation.When(f.IsPaid, validation.Empty.Error(errPayFlagsExclusive.Error()))),
	)
}

// ExceptionForm is the input of working-day exception create and update.
type ExceptionForm struct {
	Date          string        `json:"date"`
	ExceptionType ExceptionType `json:"exception_type"`
	Reason        string        `json:"reason"`
}

// ExceptionFormFrom prefills a form for editing e.
func ExceptionFormFrom(e WorkingDayException) ExceptionForm {
	return ExceptionForm{Date: e.Date, ExceptionType: e.Type, Reason: e.Reason}
}

func (f ExceptionForm) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Date, validation.Required, validation.Date(DateLayout)),
		validation.Field(&f.ExceptionType, validation.Required, validation.In(ExceptionWorking, ExceptionNonWorking)),
	)
}
