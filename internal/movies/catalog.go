// Package movies is an in-memory theater listing that backs the chat tools
// when no external listing service is configured.
package movies

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type Purchase struct {
	Code     string
	Theater  string
	Movie    string
	Showtime string
}

// Catalog implements chat.Tools.
type Catalog struct {
	mu        sync.Mutex
	showtimes map[string][]string // lowercased title -> times
	titles    map[string]string   // lowercased title -> display title
	purchases []Purchase
	newCode   func() string
}

func NewCatalog(showtimes map[string][]string) *Catalog {
	c := &Catalog{
		showtimes: make(map[string][]string, len(showtimes)),
		titles:    make(map[string]string, len(showtimes)),
		newCode: func() string {
			return strings.ToUpper(uuid.NewString()[:8])
		},
	}
	for title, times := range showtimes {
		key := normalize(title)
		c.titles[key] = title
		c.showtimes[key] = append([]string(nil), times...)
	}
	return c
}

// NewDemoCatalog returns a small fixed lineup.
func NewDemoCatalog() *Catalog {
	return NewCatalog(map[string][]string{
		"Dune: Part Two":      {"1:15 PM", "4:30 PM", "7:45 PM"},
		"Inside Out 2":        {"11:00 AM", "2:00 PM", "5:00 PM"},
		"Inception":           {"5:00 PM", "8:00 PM"},
		"The Wild Robot":      {"12:30 PM", "3:15 PM", "6:00 PM"},
		"Furiosa":             {"6:30 PM", "9:45 PM"},
		"Kingdom of the Apes": {"2:45 PM", "9:00 PM"},
	})
}

func (c *Catalog) NowPlaying(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.titles))
	for _, t := range c.titles {
		out = append(out, t)
	}
	sort.Strings(out)
	return out, nil
}

// Showtimes lists times for title in location. Every location shows the
// whole lineup at a single theater named after it.
func (c *Catalog) Showtimes(ctx context.Context, title, location string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	times, ok := c.showtimes[normalize(title)]
	if !ok {
		return nil, fmt.Errorf("%q is not playing", title)
	}
	theater := TheaterFor(location)
	out := make([]string, len(times))
	for i, t := range times {
		out[i] = fmt.Sprintf("%s at %s", t, theater)
	}
	return out, nil
}

func (c *Catalog) BuyTicket(ctx context.Context, theater, movie, showtime string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	key := normalize(movie)
	times, ok := c.showtimes[key]
	if !ok {
		return "", fmt.Errorf("%q is not playing", movie)
	}
	if !containsTime(times, showtime) {
		return "", fmt.Errorf("%s has no %s showing", c.titles[key], showtime)
	}
	p := Purchase{Code: c.newCode(), Theater: theater, Movie: c.titles[key], Showtime: showtime}
	c.purchases = append(c.purchases, p)
	return fmt.Sprintf("Ticket confirmed for %s at %s, %s. Confirmation code %s.", p.Movie, p.Theater, p.Showtime, p.Code), nil
}

// Purchases returns every ticket bought so far.
func (c *Catalog) Purchases() []Purchase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Purchase(nil), c.purchases...)
}

func TheaterFor(location string) string {
	location = strings.TrimSpace(location)
	if location == "" {
		return "Downtown Cinema"
	}
	return location + " Cinema"
}

// containsTime matches the bare time, ignoring any " at <theater>" suffix the
// model may echo back.
func containsTime(times []string, showtime string) bool {
	showtime, _, _ = strings.Cut(strings.TrimSpace(showtime), " at ")
	for _, t := range times {
		if strings.EqualFold(t, showtime) {
			return true
		}
	}
	return false
}

func normalize(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}
