// Package seed loads events and ticket tiers from a YAML file.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Shivanand-hulikatti/event-ticketing/internal/model"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Seeder stores an event with its tiers, leaving existing rows alone.
type Seeder interface {
	SeedEvent(ctx context.Context, event model.Event) error
}

type file struct {
	Events []eventDoc `yaml:"events"`
}

type eventDoc struct {
	ID          string    `yaml:"id"`
	Title       string    `yaml:"title"`
	Description string    `yaml:"description"`
	Date        string    `yaml:"date"`
	StartTime   string    `yaml:"start_time"`
	Location    string    `yaml:"location"`
	Tiers       []tierDoc `yaml:"tiers"`
}

type tierDoc struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Capacity int    `yaml:"capacity"`
}

// Load parses a seed document.
//
//	events:
//	  - id: gophercon
//	    title: GopherCon
//	    date: 2026-11-05
//	    start_time: "09:30"
//	    location: Hall A
//	    tiers:
//	      - {id: gophercon-ga, name: General, price: "0", capacity: 200}
func Load(r io.Reader) ([]model.Event, error) {
	var f file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	events := make([]model.Event, 0, len(f.Events))
	for i, doc := range f.Events {
		e, err := doc.toModel()
		if err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, doc.ID, err)
		}
		events = append(events, e)
	}
	return events, nil
}

// LoadFile is Load for a path on disk.
func LoadFile(path string) ([]model.Event, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Apply stores every event through s. Existing rows are left unchanged by
// the stores, so a seed file can be applied at every start.
func Apply(ctx context.Context, s Seeder, events []model.Event, log logrus.FieldLogger) error {
	for _, e := range events {
		if err := s.SeedEvent(ctx, e); err != nil {
			return fmt.Errorf("seed event %s: %w", e.ID, err)
		}
		log.WithFields(logrus.Fields{"event_id": e.ID, "tiers": len(e.Tiers)}).Debug("event seeded")
	}
	log.WithField("events", len(events)).Info("seed data applied")
	return nil
}

func (d eventDoc) toModel() (model.Event, error) {
	if strings.TrimSpace(d.ID) == "" {
		return model.Event{}, fmt.Errorf("id is required")
	}
	if strings.TrimSpace(d.Title) == "" {
		return model.Event{}, fmt.Errorf("title is required")
	}
	date, err := time.Parse(dateLayout, d.Date)
	if err != nil {
		return model.Event{}, fmt.Errorf("date: %w", err)
	}

	e := model.Event{
		ID:          d.ID,
		Title:       d.Title,
		Description: d.Description,
		Date:        date,
		Location:    d.Location,
	}
	if d.StartTime != "" {
		st, err := time.Parse(timeLayout, d.StartTime)
		if err != nil {
			return model.Event{}, fmt.Errorf("start_time: %w", err)
		}
		e.StartTime = &st
	}

	seen := make(map[string]bool, len(d.Tiers))
	for _, td := range d.Tiers {
		if td.ID == "" || td.Name == "" {
			return model.Event{}, fmt.Errorf("tier needs an id and a name")
		}
		if seen[td.Name] {
			return model.Event{}, fmt.Errorf("duplicate tier name %q", td.Name)
		}
		seen[td.Name] = true

		price := decimal.Zero
		if td.Price != "" {
			if price, err = decimal.NewFromString(td.Price); err != nil {
				return model.Event{}, fmt.Errorf("tier %s price: %w", td.ID, err)
			}
		}
		if price.IsNegative() {
			return model.Event{}, fmt.Errorf("tier %s price must not be negative", td.ID)
		}
		if td.Capacity < 0 {
			return model.Event{}, fmt.Errorf("tier %s capacity must not be negative", td.ID)
		}
		e.Tiers = append(e.Tiers, model.TicketTier{
			ID:       td.ID,
			EventID:  d.ID,
			Name:     td.Name,
			Price:    price,
			Capacity: td.Capacity,
		})
	}
	return e, nil
}
