// Package waitlist joins people to the waitlist behind a waitgate.Gate.
//
// Join asks the gate first, so quota is spent before the entry is written. A store failure
// after admission is reported to the caller but quota is not refunded. Notifications run in
// the background and pass through the gate's webhook flow; their failure never affects the
// join result.
package waitlist
