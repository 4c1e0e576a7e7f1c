package discord

import (
	"strconv"
	"time"
)

const (
	colorGreen  = 0x00ff00
	footerText  = "Waitlist Notification System"
	signupTitle = "🎉 New Waitlist Signup!"
)

// SignupEmbed builds the notification for one new waitlist entry. total is the entry count
// after the insert; zero means unknown.
//
// The description carries the entry number so that distinct signups produce distinct
// fingerprints in the content filter.
func SignupEmbed(email string, total int64, now time.Time) Embed {
	totalText := "Unknown"
	description := "Someone just joined the waitlist!"
	if total > 0 {
		totalText = strconv.FormatInt(total, 10)
		description = "Someone just joined the waitlist! Entry #" + totalText + "."
	}
	ts := now.UTC()
	return Embed{
		Title:       signupTitle,
		Description: description,
		Color:       colorGreen,
		Fields: []EmbedField{
			{Name: "📧 Email", Value: email, Inline: true},
			{Name: "📊 Total Entries", Value: totalText, Inline: true},
			{Name: "⏰ Time", Value: ts.Format(time.RFC1123), Inline: false},
		},
		Timestamp: ts.Format(time.RFC3339),
		Footer:    &EmbedFooter{Text: footerText},
	}
}

// SignupPayload wraps SignupEmbed in a payload.
func SignupPayload(email string, total int64, now time.Time) Payload {
	return Payload{Embeds: []Embed{SignupEmbed(email, total, now)}}
}
