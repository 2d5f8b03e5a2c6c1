// Package utils provides utility functions for the application.
package utils

import (
	"time"
)

// seoulOffset is used when the tz database is not available in the container
const seoulOffset = 9 * 60 * 60

// UTCNow returns the current time in UTC
func UTCNow() time.Time {
	return time.Now().UTC()
}

// UTCNowMilli returns the current UTC time as Unix millisecond timestamp
func UTCNowMilli() int64 {
	return UTCNow().UnixMilli()
}

// SeoulLocation returns the gateway's wall-clock zone.
func SeoulLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", seoulOffset)
	}
	return loc
}
