package contest

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/mockvest/trading-engine/internal/model"
)

const dateLayout = "2006-01-02"

// catalogFile is the on-disk shape of the contest catalog.
// Fees and dates are strings so the YAML stays human-editable.
type catalogFile struct {
	Contests []contestSpec `yaml:"contests"`
}

type contestSpec struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	EntryFee  string `yaml:"entry_fee"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
}

// LoadCatalog reads and validates a YAML contest catalog.
func LoadCatalog(path string) ([]model.Contest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(file.Contests) == 0 {
		return nil, fmt.Errorf("catalog %s defines no contests", path)
	}

	catalog := make([]model.Contest, 0, len(file.Contests))
	for i, spec := range file.Contests {
		c, err := spec.toContest()
		if err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		catalog = append(catalog, c)
	}
	return catalog, nil
}

func (s contestSpec) toContest() (model.Contest, error) {
	if s.ID == "" || s.Name == "" {
		return model.Contest{}, fmt.Errorf("id and name are required")
	}

	fee, err := decimal.NewFromString(s.EntryFee)
	if err != nil {
		return model.Contest{}, fmt.Errorf("entry_fee %q: %w", s.EntryFee, err)
	}
	if fee.IsNegative() {
		return model.Contest{}, fmt.Errorf("entry_fee %s is negative", fee)
	}

	start, err := time.Parse(dateLayout, s.StartDate)
	if err != nil {
		return model.Contest{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, s.EndDate)
	if err != nil {
		return model.Contest{}, fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return model.Contest{}, fmt.Errorf("end_date %s before start_date %s", s.EndDate, s.StartDate)
	}

	return model.Contest{
		ID:        s.ID,
		Name:      s.Name,
		EntryFee:  fee,
		StartDate: start,
		EndDate:   end,
	}, nil
}

// DefaultCatalog returns the built-in contests used when no catalog file
// is configured.
func DefaultCatalog() []model.Contest {
	return []model.Contest{
		{
			ID:        "contest1",
			Name:      "Beginner Trader Challenge",
			EntryFee:  decimal.RequireFromString("100.00"),
			StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "contest2",
			Name:      "High-Stakes Showdown",
			EntryFee:  decimal.RequireFromString("500.00"),
			StartDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		},
	}
}
