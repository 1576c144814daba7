// Package calendar reads consultation availability from, and creates
// bookings in, a Cal.com-style scheduling API.
package calendar
