package service

import (
	"math"
	"sort"
	"time"

	"github.com/LeventeLantos/sms-dispatch/internal/model"
)

const (
	DashboardDays     = 7
	DashboardRowLimit = 500
	dashboardListMax  = 50
	topRecipientsMax  = 5
)

// BuildDashboard aggregates rows (newest first) into the operations view.
func BuildDashboard(msgs []model.Message, now time.Time) model.Dashboard {
	var queued, sent, failed []model.Message
	counts := map[string]int{}

	for _, m := range msgs {
		switch m.Status {
		case model.Queued:
			queued = append(queued, m)
		case model.Sent:
			sent = append(sent, m)
		case model.Failed:
			failed = append(failed, m)
		}
		counts[m.Phone]++
	}

	total := len(msgs)
	stats := model.DashboardStats{
		Total:         total,
		SuccessRate:   percent(len(sent), total),
		FailureRate:   percent(len(failed), total),
		TopRecipients: topRecipients(counts),
		Volume:        dailyVolume(msgs, now),
		QueueCount:    len(queued),
		SentCount:     len(sent),
		FailedCount:   len(failed),
	}

	return model.Dashboard{
		Queued: head(queued),
		Sent:   head(sent),
		Failed: head(failed),
		Stats:  stats,
	}
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(n) * 100 / float64(total)))
}

func topRecipients(counts map[string]int) []model.Recipient {
	out := make([]model.Recipient, 0, len(counts))
	for phone, n := range counts {
		out = append(out, model.Recipient{Phone: phone, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Phone < out[j].Phone
	})
	if len(out) > topRecipientsMax {
		out = out[:topRecipientsMax]
	}
	return out
}

func dailyVolume(msgs []model.Message, now time.Time) []model.DayVolume {
	byDay := map[string]int{}
	for _, m := range msgs {
		byDay[m.CreatedAt.UTC().Format(time.DateOnly)]++
	}

	out := make([]model.DayVolume, 0, DashboardDays)
	for i := DashboardDays - 1; i >= 0; i-- {
		day := now.UTC().AddDate(0, 0, -i).Format(time.DateOnly)
		out = append(out, model.DayVolume{Date: day, Count: byDay[day]})
	}
	return out
}

func head(msgs []model.Message) []model.Message {
	if len(msgs) > dashboardListMax {
		return msgs[:dashboardListMax]
	}
	return msgs
}
