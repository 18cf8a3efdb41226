// Package pricing validates a public booking draft against the current
// catalog and prices it.
package pricing

import (
	"regexp"
	"strings"
	"time"

	"autoservice/internal/models"
)

// Field names used as keys of FieldErrors.
const (
	FieldPhone       = "phoneNumber"
	FieldDate        = "bookingDate"
	FieldTime        = "bookingTime"
	FieldPlate       = "carPlate"
	FieldServiceType = "serviceType"
)

// Error codes are translation keys for the form.
const (
	CodeRequired       = "requiredField"
	CodeInvalidPhone   = "invalidPhone"
	CodeSelectDate     = "selectDate"
	CodeInvalidDate    = "invalidDate"
	CodePastDate       = "pastDate"
	CodeSelectTime     = "selectTime"
	CodeInvalidTime    = "invalidTime"
	CodeUnknownService = "unknownService"
)

var phonePattern = regexp.MustCompile(`^[\d\s+()-]+$`)

// FieldErrors maps a form field to its error code.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, code := range e {
		parts = append(parts, field+": "+code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Resolve validates draft and returns a normalized pending booking ready to
// be stored, or every field error found. today is the submitter's current
// date; only its calendar day is used.
func Resolve(draft models.BookingDraft, catalog models.Catalog, today time.Time) (*models.Booking, FieldErrors) {
	errs := FieldErrors{}

	phone := strings.TrimSpace(draft.PhoneNumber)
	switch {
	case phone == "":
		errs[FieldPhone] = CodeRequired
	case !phonePattern.MatchString(phone):
		errs[FieldPhone] = CodeInvalidPhone
	}

	date := strings.TrimSpace(draft.BookingDate)
	if code := checkDate(date, today); code != "" {
		errs[FieldDate] = code
	}

	slot := strings.TrimSpace(draft.BookingTime)
	switch {
	case slot == "":
		errs[FieldTime] = CodeSelectTime
	case len(catalog.Slots) > 0 && !catalog.HasSlot(slot):
		errs[FieldTime] = CodeInvalidTime
	}

	plate := strings.ToUpper(strings.TrimSpace(draft.CarPlate))
	if plate == "" {
		errs[FieldPlate] = CodeRequired
	}

	var price float64
	serviceKey := strings.TrimSpace(draft.ServiceType)
	if serviceKey == "" {
		errs[FieldServiceType] = CodeRequired
	} else if svc, ok := catalog.Service(serviceKey); ok {
		price = svc.BasePrice
	} else {
		errs[FieldServiceType] = CodeUnknownService
	}

	if len(errs) > 0 {
		return nil, errs
	}

	return &models.Booking{
		PhoneNumber:   phone,
		BookingDate:   date,
		BookingTime:   slot,
		CarVIN:        NormalizeVIN(draft.CarVIN),
		CarPlate:      plate,
		ServiceType:   serviceKey,
		Price:         price,
		Status:        models.StatusPending,
		CustomerNotes: strings.TrimSpace(draft.CustomerNotes),
	}, nil
}

// NormalizeVIN uppercases a VIN and cuts it to the maximum length.
func NormalizeVIN(vin string) string {
	r := []rune(strings.ToUpper(strings.TrimSpace(vin)))
	if len(r) > models.MaxVINLength {
		r = r[:models.MaxVINLength]
	}
	return string(r)
}

func checkDate(date string, today time.Time) string {
	if date == "" {
		return CodeSelectDate
	}
	d, err := time.Parse(models.DateLayout, date)
	if err != nil {
		return CodeInvalidDate
	}
	y, m, day := today.Date()
	if d.Before(time.Date(y, m, day, 0, 0, 0, 0, time.UTC)) {
		return CodePastDate
	}
	return ""
}
