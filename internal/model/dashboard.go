package model

// Recipient counts the rows sent to one phone number.
type Recipient struct {
	Phone string
	Count int
}

// DayVolume is the number of rows created on a UTC calendar day.
type DayVolume struct {
	Date  string
	Count int
}

type DashboardStats struct {
	Total         int
	SuccessRate   int
	FailureRate   int
	TopRecipients []Recipient
	Volume        []DayVolume
	QueueCount    int
	SentCount     int
	FailedCount   int
}

// RetryCapacity is what the watchlist shows as remaining retry headroom.
func (s DashboardStats) RetryCapacity() int {
	return max(0, MaxRetries-s.FailedCount)
}

// Dashboard is everything the operations page renders.
type Dashboard struct {
	Queued []Message
	Sent   []Message
	Failed []Message
	Stats  DashboardStats
}
