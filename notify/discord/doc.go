// Package discord delivers waitlist notifications to a Discord webhook.
//
// The client does not rate limit. Callers run outbound payloads through the gate's webhook
// flow first and treat Send as fire-and-forget: a failed delivery never refunds quota.
package discord
