package models

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// StatusFilter selects which bookings the admin console shows.
type StatusFilter string

const (
	FilterAll      StatusFilter = "all"
	FilterPending  StatusFilter = StatusFilter(StatusPending)
	FilterApproved StatusFilter = StatusFilter(StatusApproved)
	FilterDeclined StatusFilter = StatusFilter(StatusDeclined)
)

// Valid reports whether f is one of the known filters.
func (f StatusFilter) Valid() bool {
	switch f {
	case FilterAll, FilterPending, FilterApproved, FilterDeclined:
		return true
	}
	return false
}

// Match reports whether a booking status passes the filter.
func (f StatusFilter) Match(status string) bool {
	return f == FilterAll || string(f) == status
}

const (
	DateLayout = "2006-01-02"

	// MaxVINLength caps a vehicle identification number.
	MaxVINLength = 17

	// DefaultStateTTL время жизни состояния консоли в Redis
	DefaultStateTTL = 24 * 60 * 60 // 24 часа в секундах

	// SubmissionLimit количество заявок с одного адреса в окне
	SubmissionLimit = 5

	// SubmissionWindow окно ограничения частоты заявок
	SubmissionWindow = 10 * 60 // 10 минут в секундах

	// WorkerQueueSize размер очереди воркера
	WorkerQueueSize = 128
)
