// Package client provides the pool-owner client model and catalog access.
package client

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Weekday is a visit day code: 1 is Sunday, 7 is Saturday.
type Weekday int

const (
	Sunday Weekday = iota + 1
	Monday
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
)

var weekdayLabels = [...]string{
	Sunday:    "Sunday",
	Monday:    "Monday",
	Tuesday:   "Tuesday",
	Wednesday: "Wednesday",
	Thursday:  "Thursday",
	Friday:    "Friday",
	Saturday:  "Saturday",
}

// Portuguese day names, accepted on input.
var weekdayAliases = map[string]Weekday{
	"domingo":       Sunday,
	"segunda":       Monday,
	"segunda-feira": Monday,
	"terca":         Tuesday,
	"terça":         Tuesday,
	"terca-feira":   Tuesday,
	"terça-feira":   Tuesday,
	"quarta":        Wednesday,
	"quarta-feira":  Wednesday,
	"quinta":        Thursday,
	"quinta-feira":  Thursday,
	"sexta":         Friday,
	"sexta-feira":   Friday,
	"sabado":        Saturday,
	"sábado":        Saturday,
}

// Valid reports whether w is in 1..7.
func (w Weekday) Valid() bool {
	return w >= Sunday && w <= Saturday
}

// String returns the English day name.
func (w Weekday) String() string {
	if !w.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(w))
	}
	return weekdayLabels[w]
}

// ParseWeekday accepts a code ("3"), an English name or prefix of at least
// three letters ("tue", "Tuesday"), or a Portuguese name ("terça-feira").
func ParseWeekday(s string) (Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		w := Weekday(n)
		if !w.Valid() {
			return 0, fmt.Errorf("weekday %d out of range 1-7", n)
		}
		return w, nil
	}
	if w, ok := weekdayAliases[s]; ok {
		return w, nil
	}
	if len(s) >= 3 {
		for w := Sunday; w <= Saturday; w++ {
			if strings.HasPrefix(strings.ToLower(weekdayLabels[w]), s) {
				return w, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// Client is a pool owner visited on a fixed weekday.
type Client struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Address      string    `json:"address"`
	Phone        string    `json:"phone"`
	VisitWeekday Weekday   `json:"visit_weekday"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Input holds the fields of a new client.
type Input struct {
	FullName     string
	Address      string
	Phone        string
	VisitWeekday Weekday
	Notes        string
}

// Patch holds client fields to change. Nil fields are left alone.
type Patch struct {
	FullName     *string
	Address      *string
	Phone        *string
	VisitWeekday *Weekday
	Notes        *string
}
